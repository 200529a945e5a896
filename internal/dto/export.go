package dto

import (
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Scope    models.ExportScope  `json:"scope" validate:"required,oneof=room professor all"`
	TargetID string              `json:"target_id"`
	Format   models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx ics"`
}

// ExportJobResponse exposes job progress metadata.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Scope       models.ExportScope  `json:"scope"`
	TargetID    string              `json:"target_id,omitempty"`
	Format      models.ExportFormat `json:"format"`
	CreatedAt   time.Time           `json:"created_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	DownloadURL *string             `json:"download_url,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
