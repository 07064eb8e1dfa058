package dto

import (
	"time"

	"github.com/jduhalde/consulting/internal/model"
)

// UploadInitiateDTO is the request body for starting an upload.
type UploadInitiateDTO struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileType string `json:"file_type" validate:"required,max=127"`
	Category string `json:"category" validate:"max=64"`
}

// UploadCompleteDTO names the upload whose file has been pushed.
type UploadCompleteDTO struct {
	UploadID string `json:"upload_id" validate:"required"`
}

// UploadInitiateResponseDTO returns the signed PUT URL for the upload.
type UploadInitiateResponseDTO struct {
	UploadID  string    `json:"upload_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadResponseDTO is the caller-facing view of an upload record.
type UploadResponseDTO struct {
	ID          string     `json:"id"`
	FileName    string     `json:"file_name"`
	FileType    string     `json:"file_type"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	FileSize    int64      `json:"file_size"`
	DownloadURL string     `json:"download_url,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// UploadListResponseDTO wraps a page of uploads.
type UploadListResponseDTO struct {
	Uploads []UploadResponseDTO `json:"uploads"`
}

// NewUploadResponseDTO converts an upload model into its API shape.
func NewUploadResponseDTO(u *model.Upload, downloadURL string) UploadResponseDTO {
	return UploadResponseDTO{
		ID:          u.ID,
		FileName:    u.FileName,
		FileType:    u.FileType,
		Category:    u.Category,
		Status:      string(u.Status),
		FileSize:    u.FileSize,
		DownloadURL: downloadURL,
		UploadedAt:  u.UploadedAt,
		CompletedAt: u.CompletedAt,
	}
}
