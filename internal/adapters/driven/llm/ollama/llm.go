// Package ollama provides a tool-calling LLM service adapter using a
// local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.1:8b"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.1:8b). The model
	// must support tool calling.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides tool-calling LLM operations using Ollama.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []apiTool     `json:"tools,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format. Tool results travel as
// role "tool" messages.
type chatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolCalls []apiCall `json:"tool_calls,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
}

// apiCall is a tool invocation in the Ollama wire format. Ollama does
// not assign call ids.
type apiCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// apiTool declares a tool in the Ollama format.
type apiTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Parameters  any    `json:"parameters"`
	} `json:"function"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// ChatWithTools presents the conversation and the tool catalogue to the
// model and returns its reply.
func (s *LLMService) ChatWithTools(ctx context.Context, turns []driven.Turn, tools []driven.ToolDecl, opts driven.ToolChatOptions) (*driven.ToolChatResponse, error) {
	reqBody := chatRequest{
		Model:    s.model,
		Messages: encodeTurns(turns),
		Stream:   false,
	}

	// Ollama has no tool_choice control; withholding the catalogue is
	// the only way to force a tool-free turn.
	if opts.Choice != driven.ToolChoiceNone && len(tools) > 0 {
		reqBody.Tools = encodeTools(tools)
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	calls := make([]driven.ToolCall, 0, len(chatResp.Message.ToolCalls))
	for _, call := range chatResp.Message.ToolCalls {
		calls = append(calls, driven.ToolCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return &driven.ToolChatResponse{
		Text:       chatResp.Message.Content,
		ToolCalls:  calls,
		StopReason: chatResp.DoneReason,
	}, nil
}

// encodeTurns converts conversation turns into Ollama chat messages.
// Tool outcomes become role "tool" messages.
func encodeTurns(turns []driven.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(turns))
	for _, turn := range turns {
		if turn.Text != "" || len(turn.ToolCalls) > 0 {
			msg := chatMessage{
				Role:    turn.Role,
				Content: turn.Text,
			}
			for _, call := range turn.ToolCalls {
				var api apiCall
				api.Function.Name = call.Name
				api.Function.Arguments = call.Arguments
				msg.ToolCalls = append(msg.ToolCalls, api)
			}
			messages = append(messages, msg)
		}

		for _, outcome := range turn.ToolOutcomes {
			messages = append(messages, chatMessage{
				Role:     "tool",
				Content:  outcome.Content,
				ToolName: outcome.Name,
			})
		}
	}
	return messages
}

// encodeTools converts tool declarations into the Ollama format.
func encodeTools(tools []driven.ToolDecl) []apiTool {
	out := make([]apiTool, len(tools))
	for i, tool := range tools {
		out[i].Type = "function"
		out[i].Function.Name = tool.Name
		out[i].Function.Description = tool.Description
		out[i].Function.Parameters = tool.InputSchema
	}
	return out
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
