package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

func TestInferPage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *int
	}{
		{
			name: "footer marker",
			text: "Refer adults using a suspected cancer pathway.\nPage 12 of 54",
			want: domain.IntPtr(12),
		},
		{
			name: "case insensitive",
			text: "some text PAGE 3 OF 10 more text",
			want: domain.IntPtr(3),
		},
		{
			name: "no marker",
			text: "Refer adults using a suspected cancer pathway.",
			want: nil,
		},
		{
			name: "bare page number without total",
			text: "see page 12 for details",
			want: nil,
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferPage(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestCitationFormatterRecords(t *testing.T) {
	formatter := NewCitationFormatter(0)

	chunks := []domain.EvidenceChunk{
		{
			Source:   "ng12.pdf",
			Page:     domain.IntPtr(7),
			Text:     "Page 99 of 100\nRefer people aged 45 and over with unexplained visible haematuria.",
			Referral: "urgent",
		},
		{
			Source: "ng12.pdf",
			Text:   "Consider non-urgent referral.\nPage 21 of 54",
		},
		{
			Source: "ng12.pdf",
			Text:   "No footer here.",
		},
	}

	records := formatter.Records(chunks)
	require.Len(t, records, 3)

	// Stored page metadata wins over the inferred footer.
	require.NotNil(t, records[0].Page)
	assert.Equal(t, 7, *records[0].Page)
	assert.Equal(t, "urgent", records[0].Referral)

	// Footer inference fills in missing metadata.
	require.NotNil(t, records[1].Page)
	assert.Equal(t, 21, *records[1].Page)

	assert.Nil(t, records[2].Page)
}

func TestCitationFormatterTruncation(t *testing.T) {
	formatter := NewCitationFormatter(40)

	long := "[NG12 1.6.2] " + strings.Repeat("haematuria evidence ", 20)
	records := formatter.Records([]domain.EvidenceChunk{{Source: "ng12.pdf", Text: long}})
	require.Len(t, records, 1)

	excerpt := records[0].Excerpt
	assert.True(t, strings.HasSuffix(excerpt, "..."))
	assert.LessOrEqual(t, len(excerpt), 40+len("..."))
	// The bracketed header survives truncation intact.
	assert.True(t, strings.HasPrefix(excerpt, "[NG12 1.6.2]"))
}

func TestCitationFormatterTruncationKeepsValidUTF8(t *testing.T) {
	// Guideline prose carries multi-byte runes (en-dashes, µ). A cut
	// landing mid-rune must back up to the rune boundary.
	formatter := NewCitationFormatter(9)

	// "albumin " is 8 bytes; the 2-byte µ straddles the cut at 9.
	text := "albumin µmol levels measured repeatedly over time"
	records := formatter.Records([]domain.EvidenceChunk{{Source: "ng12.pdf", Text: text}})
	require.Len(t, records, 1)

	excerpt := records[0].Excerpt
	assert.True(t, utf8.ValidString(excerpt))
	assert.True(t, strings.HasSuffix(excerpt, "..."))
	assert.NotContains(t, excerpt, "�")
}

func TestCitationFormatterShortExcerptUntouched(t *testing.T) {
	formatter := NewCitationFormatter(300)

	text := "Refer urgently."
	records := formatter.Records([]domain.EvidenceChunk{{Source: "ng12.pdf", Text: text}})
	require.Len(t, records, 1)
	assert.Equal(t, text, records[0].Excerpt)
}

func TestCitationFormatterFormat(t *testing.T) {
	formatter := NewCitationFormatter(0)

	citations := formatter.Format([]domain.EvidenceChunk{
		{Source: "ng12.pdf", Page: domain.IntPtr(7), Text: "Refer urgently.", Referral: "urgent"},
	})
	require.Len(t, citations, 1)
	assert.Equal(t, "ng12.pdf", citations[0].Source)
	require.NotNil(t, citations[0].Page)
	assert.Equal(t, 7, *citations[0].Page)
	assert.Equal(t, "Refer urgently.", citations[0].Excerpt)
}

func TestCitationFormatterEmptyInput(t *testing.T) {
	formatter := NewCitationFormatter(0)
	assert.Empty(t, formatter.Records(nil))
	assert.Empty(t, formatter.Format(nil))
}
