package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"preflight/internal/cache"
	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/repository"
)

var ErrInvalidCatalog = errors.New("invalid question catalog")

// CatalogSource lists the question catalog ordered by index
type CatalogSource interface {
	ListQuestions(ctx context.Context) ([]model.QuestionDefinition, error)
}

// CatalogService reads the catalog through the Redis cache
type CatalogService struct {
	repo  repository.QuestionRepo
	cache cache.CatalogCache
	log   *logger.Logger
}

func NewCatalogService(repo repository.QuestionRepo, c cache.CatalogCache, log *logger.Logger) *CatalogService {
	return &CatalogService{repo: repo, cache: c, log: log}
}

func (s *CatalogService) ListQuestions(ctx context.Context) ([]model.QuestionDefinition, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("catalog cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, questions); err != nil {
			s.log.Warn("catalog cache write failed", "error", err)
		}
	}
	return questions, nil
}

// Replace validates and stores a new catalog, then drops the cached copy
func (s *CatalogService) Replace(ctx context.Context, questions []model.QuestionDefinition) error {
	normalized, err := NormalizeCatalog(questions)
	if err != nil {
		return err
	}
	for _, q := range normalized {
		if !q.Type.Valid() {
			s.log.Warn("question has unknown type, answers will not be validated", "questionId", q.ID, "type", q.Type)
		}
	}
	if err := s.repo.ReplaceAll(ctx, normalized); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("catalog cache invalidation failed", "error", err)
		}
	}
	s.log.Info("catalog replaced", "questions", len(normalized))
	return nil
}

// NormalizeCatalog checks ids, indexes and constraint records, orders
// questions by index and closes gaps so indexes run 0..n-1. Two questions
// with the same index are rejected.
func NormalizeCatalog(questions []model.QuestionDefinition) ([]model.QuestionDefinition, error) {
	out := make([]model.QuestionDefinition, len(questions))
	copy(out, questions)

	seen := make(map[string]bool, len(out))
	indexes := make(map[int]string, len(out))
	for _, q := range out {
		if q.ID == "" {
			return nil, fmt.Errorf("%w: question %q has no id", ErrInvalidCatalog, q.Prompt)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = true
		if other, dup := indexes[q.Index]; dup {
			return nil, fmt.Errorf("%w: questions %q and %q share index %d", ErrInvalidCatalog, other, q.ID, q.Index)
		}
		indexes[q.Index] = q.ID
		if err := q.Validation.Check(); err != nil {
			return nil, fmt.Errorf("%w: question %q: %v", ErrInvalidCatalog, q.ID, err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	for i := range out {
		out[i].Index = i
	}
	return out, nil
}
