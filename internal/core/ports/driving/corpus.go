package driving

import (
	"context"
	"io"
)

// CorpusService imports guideline corpus files into the evidence store.
type CorpusService interface {
	// Import reads a JSON array of pre-chunked guideline text and
	// ingests it. Returns the number of chunks ingested.
	Import(ctx context.Context, r io.Reader) (int, error)
}
