package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispatch legs.
const (
	LegText = "text"
	LegFile = "file"
)

// DispatchRecord is the audit entry written for every provider call.
type DispatchRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	RequestID     string    `db:"request_id" json:"request_id"`
	Leg           string    `db:"leg" json:"leg"`
	Provider      string    `db:"provider" json:"provider"`
	Model         string    `db:"model" json:"model"`
	OriginalModel string    `db:"original_model" json:"original_model,omitempty"`
	RuleID        int64     `db:"rule_id" json:"rule_id,omitempty"`
	LatencyMs     int64     `db:"latency_ms" json:"latency_ms"`
	ErrorKind     string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage  string    `db:"error_message" json:"error,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"timestamp"`
}

// Failed reports whether the dispatch ended in an error.
func (r *DispatchRecord) Failed() bool {
	return r.ErrorKind != ""
}
