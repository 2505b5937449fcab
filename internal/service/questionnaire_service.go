package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"preflight/internal/cache"
	"preflight/internal/export"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/repository"
)

// listConcurrency bounds parallel answer loads when summarising a list
const listConcurrency = 8

// QuestionnaireItem is one entry of an owner's questionnaire list
type QuestionnaireItem struct {
	model.QuestionnaireRecord
	Summary model.Summary `json:"summary"`
}

// QuestionnaireDetail is a questionnaire with its catalog and answers
type QuestionnaireDetail struct {
	Questionnaire model.QuestionnaireRecord  `json:"questionnaire"`
	Summary       model.Summary              `json:"summary"`
	Catalog       []model.QuestionDefinition `json:"catalog"`
	Answers       []model.AnswerRecord       `json:"answers"`
}

type QuestionnaireService struct {
	questionnaires repository.QuestionnaireRepo
	answers        repository.AnswerRepo
	catalog        CatalogSource
	sessions       cache.SessionCache
	broadcaster    Broadcaster
	metrics        *metrics.Metrics
	log            *logger.Logger
}

func NewQuestionnaireService(
	questionnaires repository.QuestionnaireRepo,
	answers repository.AnswerRepo,
	catalog CatalogSource,
	sessions cache.SessionCache,
	m *metrics.Metrics,
	log *logger.Logger,
) *QuestionnaireService {
	return &QuestionnaireService{
		questionnaires: questionnaires,
		answers:        answers,
		catalog:        catalog,
		sessions:       sessions,
		broadcaster:    noopBroadcaster{},
		metrics:        m,
		log:            log,
	}
}

// SetBroadcaster sets the broadcaster for deletion events
func (s *QuestionnaireService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// List returns the owner's questionnaires, newest first, with answer counts
func (s *QuestionnaireService) List(ctx context.Context, ownerID string) ([]QuestionnaireItem, error) {
	records, err := s.questionnaires.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]QuestionnaireItem, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, rec := range records {
		g.Go(func() error {
			answers, err := s.answers.ListByQuestionnaire(gctx, rec.ID)
			if err != nil {
				return err
			}
			items[i] = QuestionnaireItem{QuestionnaireRecord: rec, Summary: model.Summarize(catalog, answers)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Detail loads the catalog and answers of an owned questionnaire concurrently
func (s *QuestionnaireService) Detail(ctx context.Context, ownerID, id string) (*QuestionnaireDetail, error) {
	rec, err := s.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var (
		catalog []model.QuestionDefinition
		answers []model.AnswerRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.catalog.ListQuestions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = s.answers.ListByQuestionnaire(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &QuestionnaireDetail{
		Questionnaire: *rec,
		Summary:       model.Summarize(catalog, answers),
		Catalog:       catalog,
		Answers:       answers,
	}, nil
}

// Bundle is the export input for an owned questionnaire
func (s *QuestionnaireService) Bundle(ctx context.Context, ownerID, id string) (export.Bundle, error) {
	d, err := s.Detail(ctx, ownerID, id)
	if err != nil {
		return export.Bundle{}, err
	}
	return export.Bundle{Questionnaire: d.Questionnaire, Catalog: d.Catalog, Answers: d.Answers}, nil
}

// Delete removes an owned questionnaire, its answers and any parked wizard
// session writing to it.
func (s *QuestionnaireService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.authorize(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.cascade(ctx, ownerID, id); err != nil {
		return err
	}
	s.metrics.QuestionnaireDeleted("owner")
	s.log.Info("questionnaire deleted", "questionnaireId", id, "ownerId", ownerID)
	return nil
}

// ReapStale deletes in-progress questionnaires started more than maxAge ago
func (s *QuestionnaireService) ReapStale(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	stale, err := s.questionnaires.ListStale(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, rec := range stale {
		if err := s.cascade(ctx, rec.OwnerID, rec.ID); err != nil {
			s.log.Warn("failed to reap questionnaire", "questionnaireId", rec.ID, "error", err)
			continue
		}
		s.metrics.QuestionnaireDeleted("reaper")
		reaped++
	}
	return reaped, nil
}

func (s *QuestionnaireService) cascade(ctx context.Context, ownerID, id string) error {
	// Record first so a failed cascade never leaves an empty questionnaire.
	if err := s.questionnaires.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.answers.DeleteByQuestionnaire(ctx, id); err != nil {
		return err
	}
	s.dropSessions(ctx, ownerID, id)
	s.broadcaster.BroadcastToOwner(ownerID, EventQuestionnaireUpdated, QuestionnaireEvent{
		QuestionnaireID: id,
		Status:          "deleted",
	})
	return nil
}

func (s *QuestionnaireService) dropSessions(ctx context.Context, ownerID, questionnaireID string) {
	if s.sessions == nil {
		return
	}
	ids, err := s.sessions.ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Warn("failed to list wizard sessions", "ownerId", ownerID, "error", err)
		return
	}
	for _, sid := range ids {
		state, err := s.sessions.Get(ctx, sid)
		if err != nil || state == nil || state.QuestionnaireID != questionnaireID {
			continue
		}
		if err := s.sessions.Delete(ctx, sid); err != nil {
			s.log.Warn("failed to drop wizard session", "sessionId", sid, "error", err)
		}
	}
}

// authorize loads a questionnaire and checks the acting identity owns it
func (s *QuestionnaireService) authorize(ctx context.Context, ownerID, id string) (*model.QuestionnaireRecord, error) {
	rec, err := s.questionnaires.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, model.ErrNotFound
	}
	if rec.OwnerID != ownerID {
		return nil, model.ErrUnauthorized
	}
	return rec, nil
}
