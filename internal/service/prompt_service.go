package service

import (
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/repository"
)

// PromptService manages named system prompts
type PromptService struct {
	repo *repository.PromptRepository
}

// NewPromptService creates a new prompt service
func NewPromptService(repo *repository.PromptRepository) *PromptService {
	return &PromptService{repo: repo}
}

// List returns all prompts
func (s *PromptService) List() (*domain.PromptList, error) {
	return s.repo.List()
}

// Save creates or replaces a prompt and returns the updated list
func (s *PromptService) Save(p *domain.Prompt) (*domain.PromptList, error) {
	return s.repo.Upsert(*p)
}

// Text returns the text of the named prompt
func (s *PromptService) Text(name string) (string, error) {
	p, err := s.repo.Get(name)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}
