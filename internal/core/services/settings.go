package services

import (
	"github.com/custodia-labs/triage-cli/internal/core/domain"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

// LoadSettings builds runtime settings from the config store, applying
// defaults for anything unset. A nil store yields pure defaults.
func LoadSettings(cfg driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()
	if cfg == nil {
		return settings
	}

	settings.LLM = domain.LLMSettings{
		Provider: domain.AIProvider(cfg.GetString("llm.provider")),
		Model:    cfg.GetString("llm.model"),
		BaseURL:  cfg.GetString("llm.base_url"),
		APIKey:   cfg.GetString("llm.api_key"),
	}
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProvider(cfg.GetString("embedding.provider")),
		Model:    cfg.GetString("embedding.model"),
		BaseURL:  cfg.GetString("embedding.base_url"),
	}

	if n := cfg.GetInt("agent.max_steps"); n > 0 {
		settings.Agent.MaxSteps = n
	}
	if n := cfg.GetInt("agent.top_k"); n > 0 {
		settings.Agent.TopK = n
	}
	if n := cfg.GetInt("agent.max_citations"); n > 0 {
		settings.Agent.MaxCitations = n
	}
	if path := cfg.GetString("patients.path"); path != "" {
		settings.PatientsPath = path
	}

	return settings
}
