package driven

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Conversation roles on the model wire. There is no system role: the
// transports used here embed instructions in the first user turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolChoice controls whether the model may call tools on a turn.
type ToolChoice string

// Available tool choices.
const (
	// ToolChoiceAuto lets the model decide between a tool call and text.
	ToolChoiceAuto ToolChoice = "auto"

	// ToolChoiceAny forces the model to call one of the offered tools.
	ToolChoiceAny ToolChoice = "any"

	// ToolChoiceNone disables tool use for the turn.
	ToolChoiceNone ToolChoice = "none"
)

// ToolDecl declares a tool to the model: its name, a description, and
// a JSON schema for its parameters. Declarations are part of the wire
// contract and must stay in sync with the executing registry.
type ToolDecl struct {
	// Name is the tool name the model invokes.
	Name string

	// Description tells the model what the tool does.
	Description string

	// InputSchema is the JSON schema for the tool's arguments.
	InputSchema *jsonschema.Schema
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned call id, used to pair the result.
	// May be empty for providers without call ids.
	ID string

	// Name is the requested tool name.
	Name string

	// Arguments maps parameter names to values.
	Arguments map[string]any
}

// ToolOutcome is the result of executing a requested tool call, fed
// back to the model as conversation content.
type ToolOutcome struct {
	// CallID pairs the outcome with the originating ToolCall.ID.
	CallID string

	// Name is the tool that produced the result.
	Name string

	// Content is the JSON-serialised tool result.
	Content string

	// IsError marks the content as an error message.
	IsError bool
}

// Turn is one entry in a conversation: either plain text, a model turn
// containing tool calls, or a user turn carrying tool outcomes. The
// conversation is append-only and owned by a single agent run.
type Turn struct {
	// Role is RoleUser or RoleAssistant.
	Role string

	// Text is the turn's textual content, if any.
	Text string

	// ToolCalls are tool invocations the model requested on this turn.
	ToolCalls []ToolCall

	// ToolOutcomes are tool results being returned to the model.
	ToolOutcomes []ToolOutcome
}

// ToolChatOptions configures a tool-enabled chat turn.
type ToolChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// Choice controls tool availability for this turn.
	Choice ToolChoice
}

// ToolChatResponse is the model's reply to a tool-enabled chat turn.
// It contains either tool calls, final text, or both (some providers
// emit commentary text alongside a call).
type ToolChatResponse struct {
	// Text is the textual content of the reply.
	Text string

	// ToolCalls are the tool invocations the model requested.
	ToolCalls []ToolCall

	// StopReason is the provider's stop reason, for diagnostics.
	StopReason string
}

// LLMService provides tool-calling language model operations.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - Ollama (local models with tool support)
type LLMService interface {
	// ChatWithTools presents the conversation and the tool catalogue to
	// the model and returns its reply. The call is synchronous; callers
	// bound it with the context.
	ChatWithTools(ctx context.Context, turns []Turn, tools []ToolDecl, opts ToolChatOptions) (*ToolChatResponse, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to agentic mode.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
