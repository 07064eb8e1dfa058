package model

import "time"

// UploadStatus tracks the two-phase upload handshake.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
)

// Upload records a file a user pushed to blob storage via a signed URL.
type Upload struct {
	ID          string       `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"user_id"`
	FileName    string       `db:"file_name" json:"file_name"`
	FileType    string       `db:"file_type" json:"file_type"`
	Category    string       `db:"category" json:"category"`
	StoragePath string       `db:"storage_path" json:"storage_path"`
	Status      UploadStatus `db:"status" json:"status"`
	FileSize    int64        `db:"file_size" json:"file_size"`
	UploadedAt  time.Time    `db:"uploaded_at" json:"uploaded_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}
