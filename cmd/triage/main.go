// Command triage is the entry point for the referral triage CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/triage-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/triage-cli/internal/adapters/driven/config/file"
	indexmem "github.com/custodia-labs/triage-cli/internal/adapters/driven/index/memory"
	patientfile "github.com/custodia-labs/triage-cli/internal/adapters/driven/patients/file"
	storagemem "github.com/custodia-labs/triage-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/triage-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/triage-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/core/services"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	settings := services.LoadSettings(configStore)

	promptStore, err := configfile.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("prompt store: %w", err)
	}
	go func() {
		if err := promptStore.Watch(ctx); err != nil {
			logger.Warn("Prompt watcher stopped: %v", err)
		}
	}()

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	patients := openPatientStore(settings.PatientsPath)

	// AI services are optional at startup: commands that need them fail
	// with a configuration error instead of blocking the whole CLI.
	var (
		llm        driven.LLMService
		embeddings driven.EmbeddingService
	)
	aiResult, err := ai.Initialise(settings)
	if err != nil {
		logger.Warn("AI services not available: %v", err)
	} else {
		llm = aiResult.LLMService
		embeddings = aiResult.EmbeddingService
		for _, w := range aiResult.Warnings {
			logger.Warn("%s", w)
		}
		defer aiResult.Close()
	}

	index, err := indexmem.BuildFromStore(ctx, store.GuidelineStore())
	if err != nil {
		return fmt.Errorf("vector index: %w", err)
	}

	evidence := services.NewEvidenceService(store.GuidelineStore(), index, embeddings)
	formatter := services.NewCitationFormatter(0)
	registry := services.NewToolRegistry(patients, evidence, formatter, settings.Agent.MaxCitations)
	orchestrator := services.NewAgentOrchestrator(llm, registry, promptStore)

	assessor := services.NewAssessor(orchestrator, registry, promptStore, store.AssessmentLog())
	assessor.SetMaxSteps(settings.Agent.MaxSteps)
	assessor.SetDefaultTopK(settings.Agent.TopK)

	ingest := services.NewIngestService(store.GuidelineStore(), index, embeddings)

	cli.SetServices(assessor, evidence, ingest)
	return cli.ExecuteContext(ctx)
}

// openPatientStore loads the static patient dataset. A missing or
// unreadable dataset degrades to an empty store so corpus and history
// commands still work.
func openPatientStore(path string) driven.PatientStore {
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".triage", "patients.json")
		}
	}

	store, err := patientfile.NewPatientStore(path)
	if err != nil {
		logger.Warn("Patient dataset unavailable (%v); assessments will not find patients", err)
		return storagemem.NewPatientStore()
	}
	return store
}
