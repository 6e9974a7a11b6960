package domain

// AIProvider identifies an AI service provider.
type AIProvider string

// Available providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if the provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderAnthropic
}

// String returns the provider identifier.
func (p AIProvider) String() string {
	return string(p)
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or a proxy).
	BaseURL string

	// APIKey is the API key (for Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid()
}

// EmbeddingDimensions returns vector sizes for known embedding models.
// Unknown models fall back to the adapter's default.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	}
}

// AgentSettings holds agent loop configuration.
type AgentSettings struct {
	// MaxSteps caps the tool-calling loop. The final allowed step is
	// always a forced tool-free finalisation turn.
	MaxSteps int

	// TopK is the default number of evidence chunks to retrieve.
	TopK int

	// MaxCitations caps the citation list in the final answer.
	MaxCitations int
}

// Settings aggregates all Triage configuration.
type Settings struct {
	// LLM is the language model configuration.
	LLM LLMSettings

	// Embedding is the embedding provider configuration.
	Embedding EmbeddingSettings

	// Agent is the agent loop configuration.
	Agent AgentSettings

	// PatientsPath is the path to the static patient dataset.
	PatientsPath string
}

// DefaultSettings returns settings with sensible defaults applied.
func DefaultSettings() Settings {
	return Settings{
		Agent: AgentSettings{
			MaxSteps:     10,
			TopK:         8,
			MaxCitations: 4,
		},
	}
}
