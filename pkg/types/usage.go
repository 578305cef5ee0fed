package types

import "time"

// UsageCategory names a billable unit bucket
type UsageCategory string

const (
	UsageAIRequests        UsageCategory = "ai_requests"
	UsageLayoutGenerations UsageCategory = "layout_generations"
	UsageDocumentUploads   UsageCategory = "document_uploads"
	UsageProjectCreations  UsageCategory = "project_creations"
	UsageAPICallsHourly    UsageCategory = "api_calls_hourly"
)

// UsageRecord is one append-only ledger entry. Quota consumption counts
// only successful records within the billing period.
type UsageRecord struct {
	TenantID      string        `json:"tenant_id"`
	Category      UsageCategory `json:"category"`
	Units         int64         `json:"units"`
	Success       bool          `json:"success"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// QuotaDecision is the advisory outcome of a pre-check
type QuotaDecision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Remaining int64  `json:"remaining"`
	Limit     int64  `json:"limit"`
}

// Document is the stored metadata of an uploaded knowledge-base document.
// The raw file lives on disk; the extracted text flows through the chunker.
type Document struct {
	DocumentID   string            `json:"document_id"`
	TenantID     string            `json:"tenant_id"`
	ProjectID    string            `json:"project_id,omitempty"`
	Name         string            `json:"name"`
	DocumentType string            `json:"document_type"`
	Language     string            `json:"language,omitempty"`
	StoredPath   string            `json:"stored_path,omitempty"`
	SizeBytes    int64             `json:"size_bytes"`
	UploadedAt   time.Time         `json:"uploaded_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
