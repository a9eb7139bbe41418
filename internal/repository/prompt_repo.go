package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/liliang-cn/castle/internal/domain"
)

// PromptRepository stores prompt presets in a flat JSON file
type PromptRepository struct {
	path string
	mu   sync.Mutex
}

// NewPromptRepository creates a prompt repository backed by path
func NewPromptRepository(path string) *PromptRepository {
	return &PromptRepository{path: path}
}

// List returns all prompts. A missing or unreadable file is an empty list.
func (r *PromptRepository) List() (*domain.PromptList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns the prompt with the given name
func (r *PromptRepository) Get(name string) (*domain.Prompt, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		if list.Items[i].Name == name {
			return &list.Items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPromptNotFound, name)
}

// Upsert replaces the prompt with the same name in place, or appends it,
// and returns the full list
func (r *PromptRepository) Upsert(p domain.Prompt) (*domain.PromptList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range list.Items {
		if list.Items[i].Name == p.Name {
			list.Items[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		list.Items = append(list.Items, p)
	}

	if err := r.save(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PromptRepository) load() (*domain.PromptList, error) {
	list := &domain.PromptList{Items: []domain.Prompt{}}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return list, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	if err := json.Unmarshal(data, list); err != nil {
		// corrupt file reads as empty, matching a missing file
		return &domain.PromptList{Items: []domain.Prompt{}}, nil
	}
	if list.Items == nil {
		list.Items = []domain.Prompt{}
	}
	return list, nil
}

// save writes to a temp file in the same directory and renames it over
// the target so readers never see a partial file
func (r *PromptRepository) save(list *domain.PromptList) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prompts: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prompts-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write prompts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write prompts: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace prompts file: %w", err)
	}
	return nil
}
