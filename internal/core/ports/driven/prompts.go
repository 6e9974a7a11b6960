package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the
// binary, or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a
	// sensible default or an error, depending on whether the prompt
	// is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAssessorSystem is the system preamble for patient
	// assessment. It constrains the model to cite every clinical claim.
	// This prompt has no format placeholders.
	PromptAssessorSystem = "assessor_system"

	// PromptAssessorUser is the structured multi-step assessment
	// instruction. The template expects %s (patient id) and %d (top_k)
	// placeholders, in that order.
	PromptAssessorUser = "assessor_user"

	// PromptFinalize forces a tool-free final answer on the last agent
	// step. This prompt has no format placeholders.
	PromptFinalize = "finalize"
)
