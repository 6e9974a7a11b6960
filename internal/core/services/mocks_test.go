package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// mockEmbedder is a deterministic embedding service for tests. It maps
// texts to fixed vectors, falling back to a default vector so every
// input embeds successfully.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	calls    []string
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder(dims int) *mockEmbedder {
	fallback := make([]float32, dims)
	fallback[0] = 1
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: fallback,
	}
}

func (m *mockEmbedder) set(text string, vec []float32) {
	m.vectors[text] = vec
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls = append(m.calls, text)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return len(m.fallback) }
func (m *mockEmbedder) ModelName() string          { return "mock-embedder" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockLLM replays a scripted sequence of responses and records every
// request it receives, so tests can assert on conversation shape and
// tool availability per turn.
type mockLLM struct {
	script    []driven.ToolChatResponse
	scriptErr []error

	// recorded per call
	turnHistory [][]driven.Turn
	toolsSeen   [][]driven.ToolDecl
	optsSeen    []driven.ToolChatOptions

	step int
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) ChatWithTools(_ context.Context, turns []driven.Turn, tools []driven.ToolDecl, opts driven.ToolChatOptions) (*driven.ToolChatResponse, error) {
	snapshot := make([]driven.Turn, len(turns))
	copy(snapshot, turns)
	m.turnHistory = append(m.turnHistory, snapshot)
	m.toolsSeen = append(m.toolsSeen, tools)
	m.optsSeen = append(m.optsSeen, opts)

	if m.step >= len(m.script) {
		return nil, fmt.Errorf("mock llm: unscripted call %d", m.step)
	}
	idx := m.step
	m.step++
	if idx < len(m.scriptErr) && m.scriptErr[idx] != nil {
		return nil, m.scriptErr[idx]
	}
	resp := m.script[idx]
	return &resp, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }
