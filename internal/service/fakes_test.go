package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"preflight/internal/cache"
	"preflight/internal/model"
	"preflight/internal/repository"
)

type memQuestionnaireRepo struct {
	mu      sync.Mutex
	records map[string]model.QuestionnaireRecord
	seq     int
	now     func() time.Time
}

func newMemQuestionnaireRepo() *memQuestionnaireRepo {
	return &memQuestionnaireRepo{records: map[string]model.QuestionnaireRecord{}, now: time.Now}
}

func (r *memQuestionnaireRepo) Create(_ context.Context, ownerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("qn-%d", r.seq)
	r.records[id] = model.QuestionnaireRecord{ID: id, OwnerID: ownerID, Status: model.StatusInProgress, StartedAt: r.now()}
	return id, nil
}

func (r *memQuestionnaireRepo) Get(_ context.Context, id string) (*model.QuestionnaireRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memQuestionnaireRepo) SetCompleted(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return model.ErrNotFound
	}
	if rec.Status == model.StatusInProgress {
		rec.Status = model.StatusCompleted
		rec.CompletedAt = &at
		r.records[id] = rec
	}
	return nil
}

func (r *memQuestionnaireRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *memQuestionnaireRepo) ListByOwner(_ context.Context, ownerID string) ([]model.QuestionnaireRecord, error) {
	return r.filter(func(rec model.QuestionnaireRecord) bool { return rec.OwnerID == ownerID }), nil
}

func (r *memQuestionnaireRepo) ListStale(_ context.Context, before time.Time) ([]model.QuestionnaireRecord, error) {
	return r.filter(func(rec model.QuestionnaireRecord) bool {
		return rec.Status == model.StatusInProgress && rec.StartedAt.Before(before)
	}), nil
}

func (r *memQuestionnaireRepo) filter(keep func(model.QuestionnaireRecord) bool) []model.QuestionnaireRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.QuestionnaireRecord{}
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

type memAnswerRepo struct {
	mu    sync.Mutex
	byKey map[string]model.AnswerRecord
	seq   int
}

func newMemAnswerRepo() *memAnswerRepo {
	return &memAnswerRepo{byKey: map[string]model.AnswerRecord{}}
}

func (r *memAnswerRepo) Upsert(_ context.Context, qnID, qID string, v model.AnswerValue, skipped bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := qnID + "/" + qID
	rec, ok := r.byKey[key]
	if !ok {
		r.seq++
		rec = model.AnswerRecord{ID: fmt.Sprintf("a-%d", r.seq), QuestionnaireID: qnID, QuestionID: qID}
	}
	rec.Value = v
	rec.Skipped = skipped
	r.byKey[key] = rec
	return rec.ID, nil
}

func (r *memAnswerRepo) ListByQuestionnaire(_ context.Context, qnID string) ([]model.AnswerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.AnswerRecord{}
	for _, rec := range r.byKey {
		if rec.QuestionnaireID == qnID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAnswerRepo) DeleteByQuestionnaire(_ context.Context, qnID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rec := range r.byKey {
		if rec.QuestionnaireID == qnID {
			delete(r.byKey, k)
		}
	}
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
	seq   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]model.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	r.seq++
	u.ID = fmt.Sprintf("u-%d", r.seq)
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) SetTier(_ context.Context, id string, tier model.AccountTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.Tier = tier
	r.users[id] = u
	return nil
}

type memQuestionRepo struct {
	questions []model.QuestionDefinition
	reads     int
}

func (r *memQuestionRepo) ListQuestions(context.Context) ([]model.QuestionDefinition, error) {
	r.reads++
	out := make([]model.QuestionDefinition, len(r.questions))
	copy(out, r.questions)
	return out, nil
}

func (r *memQuestionRepo) GetByID(_ context.Context, id string) (*model.QuestionDefinition, error) {
	for _, q := range r.questions {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, nil
}

func (r *memQuestionRepo) ReplaceAll(_ context.Context, qs []model.QuestionDefinition) error {
	r.questions = qs
	return nil
}

type staticCatalog []model.QuestionDefinition

func (c staticCatalog) ListQuestions(context.Context) ([]model.QuestionDefinition, error) {
	return c, nil
}

type sentEvent struct {
	ownerID string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) BroadcastToOwner(ownerID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{ownerID, msgType, payload})
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newSessions(t *testing.T) cache.SessionCache {
	_, client := newRedis(t)
	return cache.NewSessionCache(client, time.Hour)
}
