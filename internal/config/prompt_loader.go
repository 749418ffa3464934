package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"careercoach/internal/types"
)

// LoadedPrompts are the configured prompt overrides for one flow.
// An empty field means the built-in default applies.
type LoadedPrompts struct {
	System string
	User   string
}

// promptFile identifies one configured prompt file
type promptFile struct {
	flow types.FlowName
	kind string // "system" or "user"
	path string
}

// PromptStore holds prompt overrides per flow. It is safe for concurrent use
// and can be refreshed while the server runs.
type PromptStore struct {
	mu      sync.RWMutex
	ai      *AIConfig
	prompts map[types.FlowName]LoadedPrompts
}

// NewPromptStore resolves inline prompts and reads every configured prompt file
func NewPromptStore(ai *AIConfig) (*PromptStore, error) {
	ps := &PromptStore{ai: ai}
	if err := ps.Reload(); err != nil {
		return nil, err
	}
	ps.logSummary()
	return ps, nil
}

// Get returns the prompt overrides for a flow
func (ps *PromptStore) Get(flow types.FlowName) LoadedPrompts {
	if ps == nil {
		return LoadedPrompts{}
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.prompts[flow]
}

// Reload re-reads all prompt files. On error the previous prompts stay in place.
func (ps *PromptStore) Reload() error {
	next := make(map[types.FlowName]LoadedPrompts, len(types.AllFlows))

	for _, flow := range types.AllFlows {
		cfg := ps.ai.Flows[string(flow)].Prompts
		loaded := LoadedPrompts{System: cfg.System, User: cfg.User}

		if cfg.SystemFile != "" {
			content, err := loadPromptFromFile(cfg.SystemFile, "system", flow)
			if err != nil {
				return err
			}
			loaded.System = content
		}
		if cfg.UserFile != "" {
			content, err := loadPromptFromFile(cfg.UserFile, "user", flow)
			if err != nil {
				return err
			}
			loaded.User = content
		}

		if loaded != (LoadedPrompts{}) {
			next[flow] = loaded
		}
	}

	ps.mu.Lock()
	ps.prompts = next
	ps.mu.Unlock()
	return nil
}

// Files returns the absolute paths of every configured prompt file
func (ps *PromptStore) Files() []string {
	var paths []string
	for _, f := range ps.ai.promptFiles() {
		if abs, err := filepath.Abs(f.path); err == nil {
			paths = append(paths, abs)
		}
	}
	sort.Strings(paths)
	return paths
}

func (c *AIConfig) promptFiles() []promptFile {
	var files []promptFile
	for _, flow := range types.AllFlows {
		cfg := c.Flows[string(flow)].Prompts
		if cfg.SystemFile != "" {
			files = append(files, promptFile{flow: flow, kind: "system", path: cfg.SystemFile})
		}
		if cfg.UserFile != "" {
			files = append(files, promptFile{flow: flow, kind: "user", path: cfg.UserFile})
		}
	}
	return files
}

// loadPromptFromFile loads a prompt from a file, rejecting empty files
func loadPromptFromFile(filePath, promptType string, flow types.FlowName) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", flow, promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", flow, promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", flow, promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", flow, promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		flow, promptType, absPath, len(trimmed))

	return trimmed, nil
}

// validatePromptFiles checks that every configured prompt file exists before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, f := range c.AI.promptFiles() {
		absPath, err := filepath.Abs(f.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", f.flow, f.kind, f.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", f.flow, f.kind, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

func (ps *PromptStore) logSummary() {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")
	count := 0
	for _, flow := range types.AllFlows {
		p, ok := ps.prompts[flow]
		if !ok {
			continue
		}
		if p.System != "" {
			log.Printf("[CONFIG] %s system prompt: loaded from config/file", flow)
			count++
		}
		if p.User != "" {
			log.Printf("[CONFIG] %s user prompt: loaded from config/file", flow)
			count++
		}
	}
	if count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}
	log.Println("[CONFIG] ==========================================")
}
