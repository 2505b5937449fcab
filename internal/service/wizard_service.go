package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"preflight/internal/cache"
	"preflight/internal/codec"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/repository"
	"preflight/internal/wizard"
)

var (
	ErrSessionNotFound = fmt.Errorf("wizard session %w", model.ErrNotFound)
	// ErrSessionBusy is returned when another request kept the session
	// locked for longer than the service waits.
	ErrSessionBusy = errors.New("wizard session is busy, retry")
)

const defaultLockWait = 5 * time.Second

// WizardView is what a client needs to render the active step
type WizardView struct {
	SessionID       string                    `json:"sessionId"`
	QuestionnaireID string                    `json:"questionnaireId,omitempty"`
	Completed       bool                      `json:"completed"`
	Progress        model.Progress            `json:"progress"`
	Question        *model.QuestionDefinition `json:"question"`
	Draft           codec.FormInput           `json:"draft,omitempty"`
	Field           string                    `json:"field"`
	Subfields       []string                  `json:"subfields,omitempty"`
}

// SubmitResult is the outcome of a submission plus the step to render next
type SubmitResult struct {
	Outcome         wizard.Outcome `json:"outcome"`
	QuestionnaireID string         `json:"questionnaireId,omitempty"`
	AnswerID        string         `json:"answerId,omitempty"`
	Skipped         bool           `json:"skipped"`
	View            *WizardView    `json:"view"`
}

// WizardService runs wizard controllers across HTTP requests. State is parked
// in Redis after every call and a controller is rebuilt per request. Requests
// that change a session hold its Redis lock from load to park.
type WizardService struct {
	catalog        CatalogSource
	questionnaires repository.QuestionnaireRepo
	answers        repository.AnswerRepo
	sessions       cache.SessionCache
	broadcaster    Broadcaster
	metrics        *metrics.Metrics
	log            *logger.Logger
	now            func() time.Time
	lockWait       time.Duration
}

func NewWizardService(
	catalog CatalogSource,
	questionnaires repository.QuestionnaireRepo,
	answers repository.AnswerRepo,
	sessions cache.SessionCache,
	m *metrics.Metrics,
	log *logger.Logger,
) *WizardService {
	return &WizardService{
		catalog:        catalog,
		questionnaires: questionnaires,
		answers:        answers,
		sessions:       sessions,
		broadcaster:    noopBroadcaster{},
		metrics:        m,
		log:            log,
		now:            time.Now,
		lockWait:       defaultLockWait,
	}
}

// SetBroadcaster sets the broadcaster for answer and completion events
func (s *WizardService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start opens a new wizard run at the first question. No questionnaire is
// created until the first answer is saved.
func (s *WizardService) Start(ctx context.Context, ownerID string) (*WizardView, error) {
	catalog, err := s.catalog.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	ctrl, err := wizard.Resume(catalog, model.WizardState{
		SessionID: uuid.New().String(),
		OwnerID:   ownerID,
	}, s.questionnaires, s.answers, s.options()...)
	if err != nil {
		return nil, err
	}
	if err := s.park(ctx, ctrl); err != nil {
		return nil, err
	}
	s.log.Debug("wizard started", "sessionId", ctrl.State().SessionID, "ownerId", ownerID)
	return view(ctrl), nil
}

func (s *WizardService) Get(ctx context.Context, ownerID, sessionID string) (*WizardView, error) {
	ctrl, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return view(ctrl), nil
}

// SaveDraft buffers input for the active question without validating it
func (s *WizardService) SaveDraft(ctx context.Context, ownerID, sessionID string, form codec.FormInput) (*WizardView, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctrl, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Buffer(form); err != nil {
		return nil, err
	}
	if err := s.park(ctx, ctrl); err != nil {
		return nil, err
	}
	return view(ctrl), nil
}

func (s *WizardService) Back(ctx context.Context, ownerID, sessionID string) (*WizardView, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctrl, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Back(); err != nil {
		return nil, err
	}
	if err := s.park(ctx, ctrl); err != nil {
		return nil, err
	}
	return view(ctrl), nil
}

// Submit saves the answer to the active question. confirmSkip is the user's
// answer to the skip prompt for an empty optional question.
func (s *WizardService) Submit(ctx context.Context, ownerID, sessionID string, form codec.FormInput, confirmSkip bool) (*SubmitResult, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctrl, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	q := ctrl.Current()

	var confirm wizard.SkipConfirmer
	if confirmSkip {
		confirm = wizard.AlwaysSkip
	}
	res, err := ctrl.Submit(ctx, form, confirm)
	if err != nil {
		// The buffered input is kept so a retry starts from it.
		if parkErr := s.park(ctx, ctrl); parkErr != nil {
			s.log.Warn("failed to park wizard state", "sessionId", sessionID, "error", parkErr)
		}
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ValidationRejected(string(q.Type), verr.Rule)
		}
		return nil, err
	}

	if err := s.park(ctx, ctrl); err != nil {
		s.log.Error("failed to park wizard state after submit", "sessionId", sessionID, "error", err)
		// The parked state still has no questionnaire id, so a retry would
		// create another one.
		if res.Created {
			s.dropCreated(ctx, res.QuestionnaireID)
		}
		return nil, fmt.Errorf("%w: %v", wizard.ErrSaveFailed, err)
	}

	if res.Outcome != wizard.OutcomeSkipDeclined {
		s.metrics.AnswerSaved(string(q.Type), res.Skipped)
		if res.Created {
			s.metrics.QuestionnaireStarted()
		}
		status := string(model.StatusInProgress)
		if res.Outcome == wizard.OutcomeCompleted {
			status = string(model.StatusCompleted)
			s.metrics.QuestionnaireCompleted()
		}
		s.broadcaster.BroadcastToOwner(ownerID, EventQuestionnaireUpdated, QuestionnaireEvent{
			QuestionnaireID: res.QuestionnaireID,
			QuestionID:      q.ID,
			Status:          status,
		})
	}

	return &SubmitResult{
		Outcome:         res.Outcome,
		QuestionnaireID: res.QuestionnaireID,
		AnswerID:        res.AnswerID,
		Skipped:         res.Skipped,
		View:            view(ctrl),
	}, nil
}

// Discard drops a parked wizard run
func (s *WizardService) Discard(ctx context.Context, ownerID, sessionID string) error {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.loadState(ctx, ownerID, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// lock takes the session lock. The returned release never fails the request.
func (s *WizardService) lock(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.sessions.Lock(ctx, sessionID, s.lockWait)
	if errors.Is(err, cache.ErrSessionLocked) {
		return nil, ErrSessionBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release wizard lock", "sessionId", sessionID, "error", err)
		}
	}, nil
}

// dropCreated undoes a questionnaire created by a submit whose state could
// not be parked.
func (s *WizardService) dropCreated(ctx context.Context, questionnaireID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.questionnaires.Delete(ctx, questionnaireID); err != nil {
		s.log.Error("failed to drop orphaned questionnaire", "questionnaireId", questionnaireID, "error", err)
		return
	}
	if err := s.answers.DeleteByQuestionnaire(ctx, questionnaireID); err != nil {
		s.log.Error("failed to drop orphaned answers", "questionnaireId", questionnaireID, "error", err)
	}
}

func (s *WizardService) loadState(ctx context.Context, ownerID, sessionID string) (*model.WizardState, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	if state.OwnerID != ownerID {
		return nil, model.ErrUnauthorized
	}
	return state, nil
}

func (s *WizardService) load(ctx context.Context, ownerID, sessionID string) (*wizard.Controller, error) {
	state, err := s.loadState(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return wizard.Resume(catalog, *state, s.questionnaires, s.answers, s.options()...)
}

func (s *WizardService) park(ctx context.Context, ctrl *wizard.Controller) error {
	state := ctrl.State()
	state.UpdatedAt = s.now()
	return s.sessions.Set(ctx, &state)
}

func (s *WizardService) options() []wizard.Option {
	return []wizard.Option{wizard.WithClock(s.now), wizard.WithLogger(s.log)}
}

func view(ctrl *wizard.Controller) *WizardView {
	state := ctrl.State()
	q := ctrl.Current()
	draft := ctrl.Buffered()
	v := &WizardView{
		SessionID:       state.SessionID,
		QuestionnaireID: state.QuestionnaireID,
		Completed:       state.Completed,
		Progress:        ctrl.Progress(),
		Question:        q,
		Draft:           draft,
		Field:           q.FieldName(),
	}
	if draft != nil {
		v.Subfields = codec.Subfields(q, draft)
	}
	return v
}
