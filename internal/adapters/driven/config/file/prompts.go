package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/triage-cli/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAssessorSystem: `You are a precise clinical AI assistant providing decision support for direct patient care.
Your task is to determine whether the presented patient requires an urgent referral, grounding every
clinical claim in the guideline corpus: the National Institute for Health and Care Excellence (NICE)
guideline for suspected cancer recognition and referral (NG12).

Rules:
- Do not make up information. Verify every answer with retrieved evidence.
- Every clinical claim in your rationale must be supported by at least one citation excerpt.
- Citations are objects of the form {source, page, excerpt}.
- If the patient does not meet urgent referral criteria, do not recommend any medical imaging.`,

	driven.PromptAssessorUser: `Assess the patient with patient_id=%q against the guideline corpus.

Step 1: Call get_patient with that patient_id.
Step 2: Call normalize_symptoms with the returned symptoms.
Step 3: Call build_retrieval_query with the normalized symptoms plus the patient's age,
smoking_history and symptom_duration_days.
Step 4: Call retrieve_guideline_evidence with that query and top_k=%d.
Step 5: Call evaluate_referral_criteria with the retrieved evidence records.
Step 6: Call recommend_imaging with the decision and the evidence records.
Step 7: Call extract_citations with the evidence records.
Step 8: Return JSON ONLY with keys: patient_id, decision, rationale, citations, imaging.
- decision is one of "Urgent Referral", "Non-urgent Referral", "Not Met / Insufficient Evidence".
- citations is a list of {source, page, excerpt} objects; every clinical claim in rationale must be
  supported by at least one of them.
- If evidence is insufficient, say so and choose "Not Met / Insufficient Evidence".

Return JSON only, no markdown.`,

	driven.PromptFinalize: `Finalize now using the tool results already provided above. Do NOT call any tools. Return the final answer.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.triage/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".triage", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Watch invalidates the cache whenever a prompt file changes on disk,
// so long-running servers pick up edits without a restart. Blocks until
// the context is cancelled.
func (s *PromptStore) Watch(ctx context.Context) error {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.promptDir); err != nil {
		return fmt.Errorf("watch prompt directory: %w", err)
	}
	logger.Debug("Watching prompt directory %s", s.promptDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("Prompt file changed: %s", filepath.Base(event.Name))
				s.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Triage Prompts

This directory contains customisable prompts used by the Triage assessment agent.

## Files

- ` + "`assessor_system.txt`" + ` - System preamble constraining the model to cited, evidence-grounded answers
- ` + "`assessor_user.txt`" + ` - The structured multi-step assessment instruction
- ` + "`finalize.txt`" + ` - Forces a tool-free final answer when the step budget runs out

## Customisation

Edit any file to customise agent behaviour. Changes take effect on the next
command, or immediately when the MCP server is running.

## Format Placeholders

Some prompts use Go fmt placeholders:
- ` + "`%q`" + ` - Quoted string (the patient id)
- ` + "`%d`" + ` - Integer (the evidence retrieval top_k)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
