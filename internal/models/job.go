package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeIngestion  = "asset-ingestion"
	JobTypeEnrichment = "asset-enrichment"
)

// IngestJob is the queued unit of work moving one asset through a pipeline
// stage. The job row is also where a stage's failure reason lives; the asset
// schema itself stays error-free.
type IngestJob struct {
	ID           uuid.UUID  `json:"id"`
	AssetID      uuid.UUID  `json:"asset_id"`
	Type         string     `json:"type"` // "asset-ingestion" | "asset-enrichment"
	UserID       *string    `json:"user_id,omitempty"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// WebSocket message types

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type AssetStatusEvent struct {
	AssetID uuid.UUID        `json:"asset_id"`
	Status  ProcessingStatus `json:"status"`
	Stage   string           `json:"stage"`
}

type AssetErrorEvent struct {
	AssetID      uuid.UUID `json:"asset_id"`
	Stage        string    `json:"stage"`
	ErrorMessage string    `json:"error_message"`
}

// API error envelope

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
