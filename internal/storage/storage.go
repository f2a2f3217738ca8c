package storage

import (
	"context"
	"time"
)

// AuditRecord captures one serviced request for the audit trail.
type AuditRecord struct {
	Method     string    `json:"method"`
	Detail     string    `json:"detail"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AuditSink defines a sink for audit records.
type AuditSink interface {
	PutAudit(ctx context.Context, record AuditRecord) error
}

// NopSink discards audit records.
type NopSink struct{}

func (NopSink) PutAudit(context.Context, AuditRecord) error { return nil }
