package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"vkozyrev/photocaption/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captionServer struct {
	uploadStatus   int
	uploadURI      string
	generateStatus int
	generateText   string

	uploadCalls   atomic.Int32
	generateCalls atomic.Int32

	// failFirstUpload makes only the first upload attempt return 500.
	failFirstUpload bool
}

func (s *captionServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/upload/v1beta/files"):
			calls := s.uploadCalls.Add(1)
			if s.failFirstUpload && calls == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if s.uploadStatus != 0 && s.uploadStatus != http.StatusOK {
				w.WriteHeader(s.uploadStatus)
				return
			}
			fmt.Fprintf(w, `{"file":{"name":"files/abc","uri":%q}}`, s.uploadURI)
		case strings.Contains(r.URL.Path, ":generateContent"):
			s.generateCalls.Add(1)
			if s.generateStatus != 0 && s.generateStatus != http.StatusOK {
				w.WriteHeader(s.generateStatus)
				return
			}
			resp := map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"parts": []map[string]string{{"text": s.generateText}},
					},
				}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestCaptioner(t *testing.T, s *captionServer) *GeminiCaptioner {
	t.Helper()
	server := httptest.NewServer(s.handler())
	t.Cleanup(server.Close)

	captioner, err := NewGeminiCaptioner(server.URL, "test-key", "gemini-1.5-flash", 5*time.Second)
	require.NoError(t, err)
	return captioner
}

func TestCaptionSuccess(t *testing.T) {
	captioner := newTestCaptioner(t, &captionServer{
		uploadURI:    "https://files.test/abc",
		generateText: "A quiet harbor. Small boats rest on calm water.",
	})

	caption := captioner.Caption(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, model.Caption{
		Title:       "A quiet harbor",
		Description: "Small boats rest on calm water.",
		Status:      model.CaptionDerived,
	}, caption)
}

func TestCaptionUploadFailure(t *testing.T) {
	captioner := newTestCaptioner(t, &captionServer{
		uploadStatus: http.StatusBadRequest,
	})

	caption := captioner.Caption(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, model.Caption{
		Title:       "Upload Failed",
		Description: "Could not generate description due to upload error.",
		Status:      model.CaptionUploadFailed,
	}, caption)
}

func TestCaptionUploadWithoutFileReference(t *testing.T) {
	server := &captionServer{uploadURI: ""}
	captioner := newTestCaptioner(t, server)

	caption := captioner.Caption(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, "Upload Failed", caption.Title)
	assert.Equal(t, model.CaptionUploadFailed, caption.Status)
	assert.Zero(t, server.generateCalls.Load(), "generation must not run without an asset reference")
}

func TestCaptionGenerationFailure(t *testing.T) {
	captioner := newTestCaptioner(t, &captionServer{
		uploadURI:      "https://files.test/abc",
		generateStatus: http.StatusInternalServerError,
	})

	caption := captioner.Caption(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, model.Caption{
		Title:       "Error",
		Description: "An error occurred while generating the description.",
		Status:      model.CaptionError,
	}, caption)
}

func TestCaptionRetriesTransientUploadError(t *testing.T) {
	server := &captionServer{
		uploadURI:       "https://files.test/abc",
		generateText:    "A bridge. It spans the river.",
		failFirstUpload: true,
	}
	captioner := newTestCaptioner(t, server)

	caption := captioner.Caption(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, model.CaptionDerived, caption.Status)
	assert.Equal(t, int32(2), server.uploadCalls.Load())
}

func TestCaptionRespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	captioner, err := NewGeminiCaptioner(server.URL, "test-key", "gemini-1.5-flash", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	caption := captioner.Caption(ctx, []byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, model.CaptionUploadFailed, caption.Status)
}

func TestNewGeminiCaptionerValidation(t *testing.T) {
	_, err := NewGeminiCaptioner("", "key", "model", 0)
	assert.Error(t, err)

	_, err = NewGeminiCaptioner("https://example.test", "", "model", 0)
	assert.Error(t, err)

	_, err = NewGeminiCaptioner("https://example.test", "key", "", 0)
	assert.Error(t, err)
}

func TestParseCaption(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		title       string
		description string
	}{
		{
			name:        "splits on first delimiter",
			text:        "A. B C",
			title:       "A",
			description: "B C",
		},
		{
			name:        "no delimiter falls back to placeholder title",
			text:        "no period marker",
			title:       "Generated Title",
			description: "no period marker",
		},
		{
			name:        "only the first occurrence splits",
			text:        "First. Second. Third.",
			title:       "First",
			description: "Second. Third.",
		},
		{
			name:        "surrounding whitespace is trimmed",
			text:        "  A title. And a description.  ",
			title:       "A title",
			description: "And a description.",
		},
		{
			name:        "trailing period alone is not a delimiter",
			text:        "Just one sentence.",
			title:       "Generated Title",
			description: "Just one sentence.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, description := parseCaption(tt.text)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.description, description)
		})
	}
}
