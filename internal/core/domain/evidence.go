package domain

// GuidelineChunk is a stored span of guideline document text with its
// source metadata. It is the persisted unit of retrieval; the corpus is
// written by ingestion and read-only during assessment.
type GuidelineChunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// Text is the guideline excerpt.
	Text string `json:"text"`

	// Source is the guideline document identifier.
	Source string `json:"source"`

	// Page is the page number within the source, nil when unknown.
	Page *int `json:"page"`

	// Referral is the referral category label attached to the chunk,
	// e.g. "Urgent", "Very urgent", "Non-urgent". Empty when untagged.
	Referral string `json:"referral,omitempty"`

	// Metadata contains arbitrary extra key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Embedding is the vector representation for semantic search.
	Embedding []float32 `json:"-"`
}

// EvidenceChunk is a retrieval result: a guideline chunk as returned by
// a search, carrying its originating metadata unmodified. It is not
// persisted and has no lifecycle of its own.
type EvidenceChunk struct {
	Text     string         `json:"text"`
	Source   string         `json:"source"`
	Page     *int           `json:"page"`
	Referral string         `json:"referral,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EvidenceRecord is the citation-shaped view of an EvidenceChunk handed
// to the model by the evidence retrieval tool: page-attributed, with the
// excerpt truncated for presentation, and the referral tag preserved for
// referral-rule evaluation.
type EvidenceRecord struct {
	Source   string `json:"source"`
	Page     *int   `json:"page"`
	Excerpt  string `json:"excerpt"`
	Referral string `json:"referral,omitempty"`
}

// Citation is a page-attributed excerpt backing a clinical claim.
// It is derived one-to-one from an evidence record.
type Citation struct {
	Source  string `json:"source"`
	Page    *int   `json:"page"`
	Excerpt string `json:"excerpt"`
}
