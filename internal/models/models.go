package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type DocumentStatus string

const (
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	// DocumentStatusPartial marks a document whose audio was produced with
	// one or more chunks missing — the output is playable but incomplete.
	DocumentStatusPartial DocumentStatus = "completed_with_errors"
	DocumentStatusFailed  DocumentStatus = "failed"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Document struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	SourceFormat string         `json:"source_format"` // "markdown", "epub", "text"
	SourceText   string         `json:"-"`             // Raw submitted content; never echoed in responses
	Voice        string         `json:"voice"`
	Provider     string         `json:"provider"`
	Status       DocumentStatus `json:"status"`
	// Report summarizes the chunk-level synthesis outcome:
	// total_chunks, synthesized, failed, failed_indices, total_attempts.
	Report       JSONB     `json:"report,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Track is one finished output part for a document. Documents that fit the
// part-duration ceiling have exactly one track; longer ones have several,
// ordered by PartIndex (1-based).
type Track struct {
	ID              uuid.UUID `json:"id"`
	DocumentID      uuid.UUID `json:"document_id"`
	PartIndex       int       `json:"part_index"`
	FileName        string    `json:"file_name"`
	LocalPath       string    `json:"-"`
	StoragePath     *string   `json:"storage_path,omitempty"` // Set when archived to remote storage
	DurationSeconds float64   `json:"duration_seconds"`
	ByteSize        int64     `json:"byte_size"`
	CreatedAt       time.Time `json:"created_at"`
}

// DTOs for API responses

type CreateDocumentRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Format  *string `json:"format,omitempty"` // Default: "markdown"
	Voice   *string `json:"voice,omitempty"`  // Default: env DEFAULT_VOICE
}

type CreateDocumentResponse struct {
	DocumentID uuid.UUID      `json:"document_id"`
	Status     DocumentStatus `json:"status"`
}

type TrackResponse struct {
	Track
	DownloadURL *string `json:"download_url,omitempty"`
}

type DocumentResponse struct {
	Document
	Tracks []TrackResponse `json:"tracks,omitempty"`
}

// DocumentSummary is a lightweight DTO for the list endpoint — no tracks
// array, just core fields plus the finished part count.
type DocumentSummary struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	SourceFormat string         `json:"source_format"`
	Voice        string         `json:"voice"`
	Status       DocumentStatus `json:"status"`
	TrackCount   int            `json:"track_count"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

type VoiceInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ProviderIDs map[string]string `json:"provider_ids"`
}

type ListVoicesResponse struct {
	Voices  []VoiceInfo `json:"voices"`
	Default string      `json:"default"`
}
