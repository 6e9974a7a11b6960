package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// DefaultMaxSteps caps the tool-calling loop when the caller does not
// configure a budget.
const DefaultMaxSteps = 10

// defaultFinalizePrompt forces a tool-free answer on the last allowed
// step, using only results already gathered.
const defaultFinalizePrompt = `Finalize now using the tool results already provided above. Do NOT call any tools. Return the final answer.`

// AgentOrchestrator drives a bounded tool-calling conversation with the
// model: present instructions and the tool catalogue, dispatch requested
// tool calls through the registry, feed results back, and repeat until
// the model emits a final textual answer or the step budget forces a
// tool-free finalisation turn.
//
// Each Run owns its conversation exclusively; nothing is shared across
// runs and nothing survives the call.
type AgentOrchestrator struct {
	llm      driven.LLMService
	registry *ToolRegistry
	prompts  driven.PromptStore
}

// NewAgentOrchestrator creates an orchestrator. The prompts store is
// optional; a nil store uses the built-in finalisation prompt.
func NewAgentOrchestrator(llm driven.LLMService, registry *ToolRegistry, prompts driven.PromptStore) *AgentOrchestrator {
	return &AgentOrchestrator{
		llm:      llm,
		registry: registry,
		prompts:  prompts,
	}
}

// Run executes the tool-calling loop and returns the model's final
// text together with the number of model turns consumed. allowedTools
// restricts the catalogue presented to the model; empty means every
// registered tool. maxSteps <= 0 uses the default.
//
// Returns domain.ErrUnknownTool if the model requests a tool outside
// the allowed catalogue, domain.ErrExhausted if even the forced
// finalisation turn yields no text, and the tool's own error if a
// dispatched call fails. None of these are retried.
func (o *AgentOrchestrator) Run(
	ctx context.Context,
	systemInstructions string,
	userPrompt string,
	allowedTools []string,
	maxSteps int,
) (string, int, error) {
	if o.llm == nil {
		return "", 0, domain.ErrLLMUnavailable
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	logger.Section("Agent Loop")
	logger.Debug("Model: %s, max steps: %d", o.llm.ModelName(), maxSteps)

	decls, allowed := o.catalogue(allowedTools)
	logger.Debug("Tool catalogue: %d tools", len(decls))

	// The model transport has no distinct system role, so instructions
	// ride in the first user turn.
	turns := []driven.Turn{{
		Role: driven.RoleUser,
		Text: combinePrompt(systemInstructions, userPrompt),
	}}

	for step := 0; step < maxSteps; step++ {
		if step == maxSteps-1 {
			logger.Info("Step %d/%d: forcing tool-free finalisation", step+1, maxSteps)
			text, err := o.finalize(ctx, turns)
			return text, step + 1, err
		}

		logger.Debug("Step %d/%d: awaiting model", step+1, maxSteps)
		resp, err := o.llm.ChatWithTools(ctx, turns, decls, driven.ToolChatOptions{
			Choice: driven.ToolChoiceAuto,
		})
		if err != nil {
			return "", step + 1, fmt.Errorf("model call: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			logger.Info("Step %d: final answer (%d chars)", step+1, len(resp.Text))
			return strings.TrimSpace(resp.Text), step + 1, nil
		}

		logger.Info("Step %d: %d tool call(s) requested", step+1, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if !allowed[call.Name] || !o.registry.Has(call.Name) {
				return "", step + 1, fmt.Errorf("%w: %q", domain.ErrUnknownTool, call.Name)
			}
		}

		// Preserve the model's own turn, including its exact call
		// representation, so its record of having called the tools is
		// retained in context.
		turns = append(turns, driven.Turn{
			Role:      driven.RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		// Every preserved call must get a paired outcome on the next
		// user turn; the Anthropic wire rejects a tool_use block with
		// no matching tool_result.
		outcomes := make([]driven.ToolOutcome, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			logger.Debug("Dispatching tool: %s", call.Name)
			result, err := o.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				return "", step + 1, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			outcomes = append(outcomes, driven.ToolOutcome{
				CallID:  call.ID,
				Name:    call.Name,
				Content: result,
			})
		}

		turns = append(turns, driven.Turn{
			Role:         driven.RoleUser,
			ToolOutcomes: outcomes,
		})
	}

	// Unreachable: the last loop iteration always finalises.
	return "", maxSteps, domain.ErrExhausted
}

// finalize runs the forced last step: tools disabled, the model is told
// to answer from results already gathered.
func (o *AgentOrchestrator) finalize(ctx context.Context, turns []driven.Turn) (string, error) {
	turns = append(turns, driven.Turn{
		Role: driven.RoleUser,
		Text: o.finalizePrompt(),
	})

	resp, err := o.llm.ChatWithTools(ctx, turns, nil, driven.ToolChatOptions{
		Choice: driven.ToolChoiceNone,
	})
	if err != nil {
		return "", fmt.Errorf("finalisation call: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", domain.ErrExhausted
	}
	return text, nil
}

// catalogue filters the registry's declarations down to the allowed
// set and returns the allow-list as a lookup map.
func (o *AgentOrchestrator) catalogue(allowedTools []string) ([]driven.ToolDecl, map[string]bool) {
	all := o.registry.Declarations()

	if len(allowedTools) == 0 {
		allowed := make(map[string]bool, len(all))
		for _, d := range all {
			allowed[d.Name] = true
		}
		return all, allowed
	}

	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}

	decls := make([]driven.ToolDecl, 0, len(allowedTools))
	for _, d := range all {
		if allowed[d.Name] {
			decls = append(decls, d)
		}
	}
	return decls, allowed
}

// finalizePrompt loads the finalisation prompt, falling back to the
// built-in default.
func (o *AgentOrchestrator) finalizePrompt() string {
	if o.prompts == nil {
		return defaultFinalizePrompt
	}
	prompt, err := o.prompts.Load(driven.PromptFinalize)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return defaultFinalizePrompt
	}
	return prompt
}

// combinePrompt embeds the system instructions and the user request in
// a single first turn.
func combinePrompt(systemInstructions, userPrompt string) string {
	return strings.TrimSpace(fmt.Sprintf(
		"INSTRUCTIONS (follow strictly):\n%s\n\nUSER REQUEST:\n%s",
		systemInstructions, userPrompt,
	))
}
