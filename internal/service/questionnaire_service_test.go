package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/cache"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
)

type questionnaireFixture struct {
	svc            *QuestionnaireService
	questionnaires *memQuestionnaireRepo
	answers        *memAnswerRepo
	sessions       cache.SessionCache
	events         *recordingBroadcaster
}

func newQuestionnaireFixture(t *testing.T) *questionnaireFixture {
	f := &questionnaireFixture{
		questionnaires: newMemQuestionnaireRepo(),
		answers:        newMemAnswerRepo(),
		sessions:       newSessions(t),
		events:         &recordingBroadcaster{},
	}
	f.svc = NewQuestionnaireService(f.questionnaires, f.answers, staticCatalog(twoQuestions()), f.sessions, metrics.New(), logger.Nop())
	f.svc.SetBroadcaster(f.events)
	return f
}

func (f *questionnaireFixture) seed(t *testing.T, ownerID string) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.questionnaires.Create(ctx, ownerID)
	require.NoError(t, err)
	_, err = f.answers.Upsert(ctx, id, "name", model.TextValue("Acme"), false)
	require.NoError(t, err)
	return id
}

func TestQuestionnaire_ListAndDetail(t *testing.T) {
	f := newQuestionnaireFixture(t)
	ctx := context.Background()
	id := f.seed(t, "u1")
	f.seed(t, "u2")

	items, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, model.Summary{Total: 2, Answered: 1, Missing: 1, CompletionPercent: 50}, items[0].Summary)

	d, err := f.svc.Detail(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, d.Catalog, 2)
	assert.Len(t, d.Answers, 1)

	b, err := f.svc.Bundle(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, id, b.Questionnaire.ID)
}

func TestQuestionnaire_Authorization(t *testing.T) {
	f := newQuestionnaireFixture(t)
	ctx := context.Background()
	id := f.seed(t, "u1")

	_, err := f.svc.Detail(ctx, "u2", id)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Delete(ctx, "u2", id), model.ErrUnauthorized)
	assert.Len(t, f.answers.byKey, 1, "no partial mutation")

	_, err = f.svc.Detail(ctx, "u1", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestQuestionnaire_DeleteCascades(t *testing.T) {
	f := newQuestionnaireFixture(t)
	ctx := context.Background()
	id := f.seed(t, "u1")
	keep := f.seed(t, "u1")

	require.NoError(t, f.sessions.Set(ctx, &model.WizardState{SessionID: "s1", OwnerID: "u1", QuestionnaireID: id}))
	require.NoError(t, f.sessions.Set(ctx, &model.WizardState{SessionID: "s2", OwnerID: "u1", QuestionnaireID: keep}))

	require.NoError(t, f.svc.Delete(ctx, "u1", id))

	rec, _ := f.questionnaires.Get(ctx, id)
	assert.Nil(t, rec)
	left, _ := f.answers.ListByQuestionnaire(ctx, id)
	assert.Empty(t, left)
	kept, _ := f.answers.ListByQuestionnaire(ctx, keep)
	assert.Len(t, kept, 1)

	s1, _ := f.sessions.Get(ctx, "s1")
	assert.Nil(t, s1)
	s2, _ := f.sessions.Get(ctx, "s2")
	assert.NotNil(t, s2)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, QuestionnaireEvent{QuestionnaireID: id, Status: "deleted"}, f.events.events[0].payload)
}

type failingDeleteRepo struct {
	*memQuestionnaireRepo
}

func (failingDeleteRepo) Delete(context.Context, string) error {
	return errors.New("mongo: server selection timeout")
}

func TestQuestionnaire_DeleteFailureKeepsAnswers(t *testing.T) {
	f := newQuestionnaireFixture(t)
	ctx := context.Background()
	id := f.seed(t, "u1")

	svc := NewQuestionnaireService(failingDeleteRepo{f.questionnaires}, f.answers, staticCatalog(twoQuestions()), f.sessions, metrics.New(), logger.Nop())
	require.Error(t, svc.Delete(ctx, "u1", id))

	d, err := f.svc.Detail(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, d.Answers, 1, "a questionnaire that survives keeps its answers")
}

func TestQuestionnaire_ReapStale(t *testing.T) {
	f := newQuestionnaireFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	f.questionnaires.now = func() time.Time { return now.Add(-48 * time.Hour) }
	old := f.seed(t, "u1")
	done := f.seed(t, "u1")
	require.NoError(t, f.questionnaires.SetCompleted(ctx, done, now))

	f.questionnaires.now = func() time.Time { return now.Add(-time.Hour) }
	fresh := f.seed(t, "u1")

	n, err := f.svc.ReapStale(ctx, 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[string]bool{old: false, done: true, fresh: true} {
		rec, _ := f.questionnaires.Get(ctx, id)
		assert.Equal(t, want, rec != nil, id)
	}
}
