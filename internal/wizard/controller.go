// Package wizard sequences a user through the question catalog, one answer
// at a time.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"preflight/internal/codec"
	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/validation"
)

var (
	ErrEmptyCatalog = errors.New("question catalog is empty")
	ErrAtStart      = errors.New("already at the first question")
	ErrCompleted    = errors.New("questionnaire already completed")
	ErrBadState     = errors.New("wizard state does not match catalog")
	// ErrSaveFailed wraps persistence errors. The wizard stays on the current
	// question and nothing is retried.
	ErrSaveFailed = errors.New("failed to save answer")
)

// QuestionnaireStore is the part of the questionnaire store the wizard needs
type QuestionnaireStore interface {
	Create(ctx context.Context, ownerID string) (string, error)
	// Get returns nil, nil when the questionnaire does not exist
	Get(ctx context.Context, id string) (*model.QuestionnaireRecord, error)
	SetCompleted(ctx context.Context, id string, completedAt time.Time) error
}

// AnswerStore upserts on (questionnaireID, questionID)
type AnswerStore interface {
	Upsert(ctx context.Context, questionnaireID, questionID string, value model.AnswerValue, skipped bool) (string, error)
}

// SkipConfirmer asks the user whether an empty answer should be saved as a
// skip. A nil confirmer declines.
type SkipConfirmer func(q *model.QuestionDefinition) bool

// AlwaysSkip confirms every skip
func AlwaysSkip(*model.QuestionDefinition) bool { return true }

// ValidationError is a user-correctable rejection of the active answer
type ValidationError struct {
	QuestionID string
	Rule       string
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Outcome string

const (
	OutcomeAdvanced     Outcome = "advanced"
	OutcomeCompleted    Outcome = "completed"
	OutcomeSkipDeclined Outcome = "skip_declined"
)

// Result describes what a successful Submit did
type Result struct {
	Outcome         Outcome
	QuestionnaireID string
	AnswerID        string
	Skipped         bool
	Value           model.AnswerValue
	Created         bool // the questionnaire was created by this submission
}

type Option func(*Controller)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller holds one wizard run. It is not safe for concurrent use; each
// session owns its controller.
type Controller struct {
	catalog        []model.QuestionDefinition
	state          model.WizardState
	schema         validation.Schema
	questionnaires QuestionnaireStore
	answers        AnswerStore
	now            func() time.Time
	log            *logger.Logger
}

// New starts a wizard at the first question with no questionnaire yet
func New(catalog []model.QuestionDefinition, ownerID string, qs QuestionnaireStore, as AnswerStore, opts ...Option) (*Controller, error) {
	return Resume(catalog, model.WizardState{OwnerID: ownerID}, qs, as, opts...)
}

// Resume rebuilds a controller from a parked state
func Resume(catalog []model.QuestionDefinition, state model.WizardState, qs QuestionnaireStore, as AnswerStore, opts ...Option) (*Controller, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if state.CurrentIndex < 0 || state.CurrentIndex >= len(catalog) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrBadState, state.CurrentIndex, len(catalog))
	}
	if state.Pending == nil {
		state.Pending = make(map[string]map[string]any)
	}

	c := &Controller{
		catalog:        catalog,
		state:          state,
		questionnaires: qs,
		answers:        as,
		now:            time.Now,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recomputeSchema()
	return c, nil
}

// State returns a copy of the wizard state suitable for parking
func (c *Controller) State() model.WizardState {
	s := c.state
	s.Pending = make(map[string]map[string]any, len(c.state.Pending))
	for k, v := range c.state.Pending {
		s.Pending[k] = cloneForm(v)
	}
	return s
}

func (c *Controller) Completed() bool {
	return c.state.Completed
}

func (c *Controller) Index() int {
	return c.state.CurrentIndex
}

// Current returns the active question
func (c *Controller) Current() *model.QuestionDefinition {
	return &c.catalog[c.state.CurrentIndex]
}

// Schema is the validation schema of the active question
func (c *Controller) Schema() validation.Schema {
	return c.schema
}

// Progress reports "Question i of N"
func (c *Controller) Progress() model.Progress {
	return model.ProgressOf(c.state.CurrentIndex, len(c.catalog))
}

// Buffered returns the in-progress input held for the active question
func (c *Controller) Buffered() codec.FormInput {
	return codec.FormInput(cloneForm(c.state.Pending[c.Current().ID]))
}

// Buffer stores in-progress input for the active question without saving it
func (c *Controller) Buffer(form codec.FormInput) error {
	if c.state.Completed {
		return ErrCompleted
	}
	c.state.Pending[c.Current().ID] = cloneForm(form)
	return nil
}

// Back moves to the previous question. Nothing is persisted and buffered
// input of every question is kept.
func (c *Controller) Back() error {
	if c.state.Completed {
		return ErrCompleted
	}
	if c.state.CurrentIndex == 0 {
		return ErrAtStart
	}
	c.state.CurrentIndex--
	c.recomputeSchema()
	return nil
}

// Submit shapes, validates and saves the answer to the active question, then
// advances or completes. Validation failures return *ValidationError and
// persistence failures wrap ErrSaveFailed; in both cases the wizard stays on
// the active question.
func (c *Controller) Submit(ctx context.Context, form codec.FormInput, confirm SkipConfirmer) (*Result, error) {
	if c.state.Completed {
		return nil, ErrCompleted
	}
	q := c.Current()
	if form != nil {
		c.state.Pending[q.ID] = cloneForm(form)
	}
	input := codec.FormInput(c.state.Pending[q.ID])

	value, empty, err := codec.Shape(q, input)
	if err != nil {
		return nil, &ValidationError{QuestionID: q.ID, Rule: "type", Message: err.Error()}
	}

	skipped := false
	if empty {
		if q.Required() {
			return nil, c.requiredError(q, value)
		}
		if confirm == nil || !confirm(q) {
			return &Result{Outcome: OutcomeSkipDeclined, QuestionnaireID: c.state.QuestionnaireID}, nil
		}
		skipped = true
		value = codec.Empty(q)
	} else if err := c.schema.Validate(value); err != nil {
		return nil, toValidationError(q.ID, err)
	}

	created, err := c.ensureQuestionnaire(ctx)
	if err != nil {
		return nil, err
	}

	answerID, err := c.answers.Upsert(ctx, c.state.QuestionnaireID, q.ID, value, skipped)
	if err != nil {
		c.log.Warn("answer upsert failed", "questionnaireId", c.state.QuestionnaireID, "questionId", q.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	res := &Result{
		QuestionnaireID: c.state.QuestionnaireID,
		AnswerID:        answerID,
		Skipped:         skipped,
		Value:           value,
		Created:         created,
	}

	if c.state.CurrentIndex == len(c.catalog)-1 {
		if err := c.questionnaires.SetCompleted(ctx, c.state.QuestionnaireID, c.now()); err != nil {
			c.log.Warn("questionnaire completion failed", "questionnaireId", c.state.QuestionnaireID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
		c.state.Completed = true
		res.Outcome = OutcomeCompleted
		c.log.Info("questionnaire completed", "questionnaireId", c.state.QuestionnaireID)
		return res, nil
	}

	c.state.CurrentIndex++
	c.recomputeSchema()
	res.Outcome = OutcomeAdvanced
	return res, nil
}

// ensureQuestionnaire creates the questionnaire on first submission, or checks
// ownership of the existing one before it is mutated.
func (c *Controller) ensureQuestionnaire(ctx context.Context) (bool, error) {
	if c.state.QuestionnaireID == "" {
		id, err := c.questionnaires.Create(ctx, c.state.OwnerID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
		c.state.QuestionnaireID = id
		c.log.Info("questionnaire started", "questionnaireId", id, "ownerId", c.state.OwnerID)
		return true, nil
	}

	rec, err := c.questionnaires.Get(ctx, c.state.QuestionnaireID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if rec == nil {
		return false, model.ErrNotFound
	}
	if rec.OwnerID != c.state.OwnerID {
		return false, model.ErrUnauthorized
	}
	if rec.IsCompleted() {
		return false, ErrCompleted
	}
	return false, nil
}

func (c *Controller) recomputeSchema() {
	c.schema = validation.For(c.Current())
}

func (c *Controller) requiredError(q *model.QuestionDefinition, value model.AnswerValue) error {
	if err := c.schema.Validate(value); err != nil {
		return toValidationError(q.ID, err)
	}
	msg := "This field is required"
	if q.Validation != nil && q.Validation.ErrorMessage != "" {
		msg = q.Validation.ErrorMessage
	}
	return &ValidationError{QuestionID: q.ID, Rule: "required", Message: msg}
}

func toValidationError(questionID string, err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{QuestionID: questionID, Rule: fe.Rule, Message: fe.Message}
	}
	return &ValidationError{QuestionID: questionID, Message: err.Error()}
}

func cloneForm(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
