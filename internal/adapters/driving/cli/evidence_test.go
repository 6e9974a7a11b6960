package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
)

func TestEvidenceCmd_Use(t *testing.T) {
	assert.Equal(t, "evidence [query]", evidenceCmd.Use)
}

func TestEvidenceCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"evidence"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestEvidenceCmd_HasTopKFlag(t *testing.T) {
	flag := evidenceCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag, "top-k flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
}

func TestEvidenceCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"evidence", "visible haematuria"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Evidence:")
	assert.Contains(t, buf.String(), "ng12.pdf p.12 (Urgent)")
	assert.Contains(t, buf.String(), "unexplained visible haematuria")
}

func TestEvidenceCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	evidenceService = &mockEvidenceService{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"evidence", "unrelated"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No evidence found.")
}

func TestEvidenceCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"evidence", "--json", "visible haematuria"})
	defer func() {
		rootCmd.SetArgs(nil)
		evidenceJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"source": "ng12.pdf"`)
	assert.Contains(t, buf.String(), `"referral": "Urgent"`)
}

func TestEvidenceCmd_ChunkWithoutPage(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	evidenceService = &mockEvidenceService{
		chunks: []domain.EvidenceChunk{
			{Source: "ng12.pdf", Text: "Unattributed excerpt."},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"evidence", "anything"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "ng12.pdf p.?")
}
