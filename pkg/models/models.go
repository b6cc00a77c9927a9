package models

import (
	"time"
)

// Status classifies how strongly the evidence supports a claim.
type Status string

const (
	StatusVerified   Status = "VERIFIED"
	StatusUnverified Status = "UNVERIFIED"
	StatusUnknown    Status = "UNKNOWN"
)

// CandidateDocument is a reference document retrieved by vector similarity
type CandidateDocument struct {
	ID         string  `json:"id"`
	CID        string  `json:"cid"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// RankedDocument is a candidate with the reranker's relevance score attached
type RankedDocument struct {
	CandidateDocument
	RelevanceScore float64 `json:"relevance_score"`
}

// DocumentConfidence is the final per-document score after aggregation
type DocumentConfidence struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// Citation points a client at the evidence behind a verification
type Citation struct {
	DocumentID string  `json:"document_id"`
	CID        string  `json:"cid"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
}

// VerificationResult is the outcome of verifying a single claim
type VerificationResult struct {
	Status           Status     `json:"status"`
	Confidence       float64    `json:"confidence"`
	Citations        []Citation `json:"citations"`
	Cached           bool       `json:"cached"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
}

// PerformanceMetrics is a point-in-time snapshot of pipeline health
type PerformanceMetrics struct {
	CacheHitRate          float64 `json:"cache_hit_rate"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	TotalRequests         int64   `json:"total_requests"`
	ErrorRate             float64 `json:"error_rate"`
}

// Document is a source document as exposed by the listing endpoint
type Document struct {
	ID        string    `json:"id"`
	CID       string    `json:"cid"`
	Title     string    `json:"title"`
	MimeType  string    `json:"mime_type"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
