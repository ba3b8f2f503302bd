package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeIngest       = "ingest"
	JobTypeScanTerms    = "scan_terms"
	JobTypeExtractTerms = "extract_terms"
)

// Job is one tracked background run. Progress and Message are the in-flight
// status channel visible to callers; the outcome of a run lands on the book
// itself (process_status and remark).
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         string      `bun:",pk,nullzero" json:"id"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	Message    string      `json:"message"`
	ProcessID  *string     `json:"process_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeIngest:
		job.DataParsed = &JobIngestData{}
	case JobTypeScanTerms:
		job.DataParsed = &JobScanTermsData{}
	case JobTypeExtractTerms:
		job.DataParsed = &JobExtractTermsData{}
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

type JobIngestData struct {
	BookID  string `json:"book_id"`
	ActorID string `json:"actor_id"`
}

type JobScanTermsData struct {
	BookID  string `json:"book_id"`
	ActorID string `json:"actor_id"`
}

type JobExtractTermsData struct {
	BookID   string `json:"book_id"`
	ActorID  string `json:"actor_id"`
	FromPage int    `json:"from_page"`
	ToPage   int    `json:"to_page"`
}
