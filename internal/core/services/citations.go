package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

// DefaultExcerptLimit is the excerpt character budget used when a call
// site does not specify one.
const DefaultExcerptLimit = 300

// pagePattern matches in-text page markers like "Page 52 of 97".
var pagePattern = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+\d+`)

// InferPage scans text for a "Page <n> of <m>" marker and returns <n>.
// Returns nil when no marker is present. This is a best-effort fallback
// for chunks whose source metadata lacks an explicit page number.
func InferPage(text string) *int {
	match := pagePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	return domain.OptionalInt(match[1])
}

// CitationFormatter converts retrieved evidence chunks into attributed,
// page-numbered citation records. Output ordering mirrors input
// ordering; rank order from retrieval is preserved, never re-sorted.
type CitationFormatter struct {
	excerptLimit int
}

// NewCitationFormatter creates a formatter with the given excerpt
// character budget. A non-positive limit uses DefaultExcerptLimit.
func NewCitationFormatter(excerptLimit int) *CitationFormatter {
	if excerptLimit <= 0 {
		excerptLimit = DefaultExcerptLimit
	}
	return &CitationFormatter{excerptLimit: excerptLimit}
}

// Records converts chunks into the citation-shaped evidence records
// handed to the model: page numbers resolved (metadata first, in-text
// marker as fallback), excerpts truncated, referral tags preserved.
func (f *CitationFormatter) Records(chunks []domain.EvidenceChunk) []domain.EvidenceRecord {
	records := make([]domain.EvidenceRecord, 0, len(chunks))
	for _, chunk := range chunks {
		page := chunk.Page
		if page == nil {
			page = InferPage(chunk.Text)
		}
		records = append(records, domain.EvidenceRecord{
			Source:   chunk.Source,
			Page:     page,
			Excerpt:  f.truncate(chunk.Text),
			Referral: chunk.Referral,
		})
	}
	return records
}

// Format converts chunks into citations, one per chunk, in input order.
func (f *CitationFormatter) Format(chunks []domain.EvidenceChunk) []domain.Citation {
	records := f.Records(chunks)
	citations := make([]domain.Citation, len(records))
	for i, rec := range records {
		citations[i] = domain.Citation{
			Source:  rec.Source,
			Page:    rec.Page,
			Excerpt: rec.Excerpt,
		}
	}
	return citations
}

// truncate caps text at the excerpt budget and appends an ellipsis
// marker. A leading bracketed citation header is never split: the cut
// point is pushed past the closing bracket if it would land inside.
func (f *CitationFormatter) truncate(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= f.excerptLimit {
		return text
	}

	cut := f.excerptLimit
	if strings.HasPrefix(text, "[") {
		if end := strings.Index(text, "]"); end >= cut {
			cut = end + 1
			if cut >= len(text) {
				return text
			}
		}
	}

	// Never split a multi-byte rune at the cut point.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return strings.TrimRight(text[:cut], " \t\n") + "..."
}
