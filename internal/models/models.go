package models

import "time"

// Page is one page of already-extracted plain text.
type Page struct {
	PageNumber int
	Text       string
}

// EmbeddingVector is one chunk ready for the vector index.
// ID is "<documentID>_chunk_<index>", unique across the document.
type EmbeddingVector struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// DocumentRecord is a single similarity-search hit.
type DocumentRecord struct {
	ID       string
	Text     string
	Source   string
	Page     string
	Score    float32
	ChunkID  string
	Metadata map[string]string
}

// QueryResult wraps the hits of one vector search.
// Documents are sorted by Score descending; TotalResults == len(Documents).
type QueryResult struct {
	Query          string
	TotalResults   int
	Documents      []DocumentRecord
	IndexUsed      string
	AreasUsed      []string
	FiltersApplied map[string][]string
}

// SearchFilters holds the optional metadata filter dimensions.
// Empty slices mean "no constraint on this dimension".
type SearchFilters struct {
	Category []string
	Source   []string
	Tags     []string
}

// UploadMetadata is the caller-supplied tagging for an ingested document.
type UploadMetadata struct {
	UserID   string
	Area     []string
	Category []string
	Source   []string
	Tags     []string
}

// UploadResult summarizes one successful ingestion.
type UploadResult struct {
	DocumentID      string
	ChunksProcessed int
	Filename        string
	TotalPages      int
	ProcessingTime  time.Duration
}

// Answer is the retrieval pipeline output. The pipeline never fails
// outright: Degraded marks answers produced after an internal error,
// Diagnostic carries the cause for operators and tests.
type Answer struct {
	Question            string
	Answer              string
	QueryResult         QueryResult
	ContextUsed         string
	TotalDocumentsFound int
	Degraded            bool
	Diagnostic          string
}

// HealthStatus reports per-service liveness plus the overall AND.
type HealthStatus struct {
	Embeddings  bool
	VectorIndex bool
	Overall     bool
}

// ExternalDocument is a record from the persistent document metadata
// store, carrying a time-limited signed download URL.
type ExternalDocument struct {
	ID                 string
	SignedURL          string
	FileName           string
	FileSize           int64
	ContentType        string
	StoragePath        string
	SignedURLExpiresAt time.Time
	Alias              string
	Description        string
	Area               string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ChatMessage is one user question with optional filter tags.
type ChatMessage struct {
	UserID   string
	Message  string
	Area     []string
	Category []string
	Source   []string
	Tags     []string
}

// Source points a chat answer back at a document fragment.
type Source struct {
	Page         string
	MatchingText string
	Source       string
	DocumentID   string
	Score        string
	SignedURL    string
}

// ChatResponse is the full answer surface returned to the chat caller.
type ChatResponse struct {
	Response       string
	Timestamp      time.Time
	Sources        []Source
	ResumeQuestion string
}
