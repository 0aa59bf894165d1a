package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"vkozyrev/photocaption/internal/model"
)

const captionPrompt = "describe the image. end your response in json"

// The two degradation captions. These exact values are persisted when
// the captioning service is unreachable, so they are part of the
// external contract.
var (
	uploadFailedCaption = model.Caption{
		Title:       "Upload Failed",
		Description: "Could not generate description due to upload error.",
		Status:      model.CaptionUploadFailed,
	}
	generationErrorCaption = model.Caption{
		Title:       "Error",
		Description: "An error occurred while generating the description.",
		Status:      model.CaptionError,
	}
)

const (
	captionAttempts       = 2
	captionRetryBaseDelay = 500 * time.Millisecond
)

// GeminiCaptioner talks to the Gemini REST API: raw media upload first,
// then content generation against the returned file URI.
type GeminiCaptioner struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewGeminiCaptioner(baseURL, apiKey, model string, timeout time.Duration) (*GeminiCaptioner, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("captioner: base url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("captioner: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("captioner: model is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiCaptioner{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Caption derives a title/description for the image. It never fails:
// an upload problem yields the "Upload Failed" caption and anything
// after that the "Error" caption, both persisted as valid results.
func (c *GeminiCaptioner) Caption(ctx context.Context, image []byte, mimeType string) model.Caption {
	fileURI, err := c.uploadAsset(ctx, image, mimeType)
	if err != nil {
		log.Printf("Captioning upload failed: %v", err)
		return uploadFailedCaption
	}

	text, err := c.generate(ctx, fileURI, mimeType)
	if err != nil {
		log.Printf("Caption generation failed: %v", err)
		return generationErrorCaption
	}

	title, description := parseCaption(text)
	return model.Caption{
		Title:       title,
		Description: description,
		Status:      model.CaptionDerived,
	}
}

type uploadedFile struct {
	File struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	} `json:"file"`
}

func (c *GeminiCaptioner) uploadAsset(ctx context.Context, image []byte, mimeType string) (string, error) {
	url := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Upload-Protocol", "raw")
		req.Header.Set("Content-Type", mimeType)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var parsed uploadedFile
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.File.URI == "" {
		return "", fmt.Errorf("upload returned no file reference")
	}
	return parsed.File.URI, nil
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	FileData *fileData `json:"file_data,omitempty"`
	Text     string    `json:"text,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiCaptioner) generate(ctx context.Context, fileURI, mimeType string) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{
				{FileData: &fileData{MimeType: mimeType, FileURI: fileURI}},
				{Text: captionPrompt},
			},
		}},
	})
	if err != nil {
		return "", err
	}

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate response missing content")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// doWithRetry sends the request up to captionAttempts times, backing off
// exponentially between attempts. Transport errors and 5xx responses are
// retried; other statuses fail immediately.
func (c *GeminiCaptioner) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < captionAttempts; attempt++ {
		if attempt > 0 {
			delay := captionRetryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("captioning service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("captioning service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return body, nil
	}
	return nil, lastErr
}

// parseCaption splits the model's free text into a title and description
// on the first ". " occurrence. The prompt asks for JSON but nothing
// enforces it, so this stays a heuristic: a mid-sentence period still
// mis-splits, and text without the delimiter gets a placeholder title.
func parseCaption(text string) (title, description string) {
	trimmed := strings.TrimSpace(text)
	if before, after, found := strings.Cut(trimmed, ". "); found {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return "Generated Title", trimmed
}
