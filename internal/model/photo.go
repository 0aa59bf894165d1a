package model

import "path"

// CaptionStatus tells how a caption was obtained.
type CaptionStatus string

const (
	CaptionDerived      CaptionStatus = "derived"
	CaptionUploadFailed CaptionStatus = "upload_failed"
	CaptionError        CaptionStatus = "error"
)

// Caption is the title/description pair derived for an uploaded image.
// Status is internal bookkeeping and is not part of the sidecar format.
type Caption struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      CaptionStatus `json:"-"`
}

// SidecarMetadata is the exact on-disk shape of the <stem>.json sidecar.
type SidecarMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PhotoRecord is one row in the structured store, one per ingested image.
// Name is unique so a repeated write for the same image is an upsert.
type PhotoRecord struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex"`
	URL         string `json:"url"`
	User        string `json:"user"`
	Timestamp   int64  `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (PhotoRecord) TableName() string {
	return "photos"
}

// IngestResult is what the upload endpoint renders back to the user.
type IngestResult struct {
	Name    string `json:"name"`
	Caption Caption
}

// DisplayPayload is the composed view of an image and its metadata.
type DisplayPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// SidecarKey derives the metadata object key stored beside an image:
// everything up to the last extension plus ".json". A key without an
// extension gets ".json" appended, same as the rsplit behavior callers
// rely on.
func SidecarKey(key string) string {
	ext := path.Ext(key)
	return key[:len(key)-len(ext)] + ".json"
}
