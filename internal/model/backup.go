package model

import "time"

const (
	BackupStatusPending  = "pending"
	BackupStatusComplete = "complete"
	BackupStatusFailed   = "failed"
)

// Backup records one encrypted database snapshot uploaded to object storage.
type Backup struct {
	ID        int64     `json:"id"`
	ObjectKey string    `json:"object_key"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
