// Package session orchestrates one visitor's run through one exam: access
// resolution, lazy question loading, clock-driven phase gating, checking,
// autosave and the final signed submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/access"
	"github.com/examforge/sessiond/internal/autosave"
	"github.com/examforge/sessiond/internal/clock"
	"github.com/examforge/sessiond/internal/evaluator"
	"github.com/examforge/sessiond/internal/model"
	"github.com/examforge/sessiond/internal/registry"
	"github.com/examforge/sessiond/internal/signer"
)

// State is the controller's lifecycle state.
type State string

const (
	StateResolving State = "resolving-access"
	StateLoading   State = "loading-questions"
	StateReady     State = "ready"
	// StateBlocked is terminal: denied access, unknown exam, or a failed
	// question load. The block reason replaces the form.
	StateBlocked State = "blocked"
)

// Gate errors returned by session operations.
var (
	ErrNotAuthorized  = errors.New("not authorized for this exam")
	ErrNotStarted     = errors.New("exam has not started yet")
	ErrEnded          = errors.New("exam has ended")
	ErrReadOnly       = errors.New("access is read-only")
	ErrNotReady       = errors.New("questions are not loaded")
	ErrRestoreUsed    = errors.New("history entry already restored")
	ErrNoHistoryEntry = errors.New("no such history entry")
)

// Backend is the slice of the grading backend the controller needs.
type Backend interface {
	Submit(ctx context.Context, sub *model.SignedSubmission) error
	History(ctx context.Context, quiz, email string, limit int) ([]model.HistoryRecord, error)
}

// Deps are the collaborators a controller is wired with.
type Deps struct {
	Registry     *registry.Registry
	Resolver     *access.Resolver
	Store        autosave.Store
	Signer       *signer.Signer
	Backend      Backend
	HistoryLimit int
	TickInterval time.Duration
	Log          zerolog.Logger
	// Now overrides the time source (tests).
	Now func() time.Time
}

// Controller runs one (exam, visitor) session. All state is behind one
// mutex; the clock callback, HTTP handlers and the WebSocket loop all
// funnel through it, preserving the source's single-threaded model.
type Controller struct {
	mu sync.Mutex

	deps Deps
	now  func() time.Time
	log  zerolog.Logger

	examID    string
	real      model.Identity
	effective model.Identity

	state      State
	blockErr   error
	desc       *model.ExamDescriptor
	level      model.AccessLevel
	start, end time.Time

	questions []model.Question
	eval      *evaluator.Evaluator
	draft     model.Draft

	monitor   *clock.Monitor
	lastTick  clock.Tick
	countdown string

	restored  map[int]bool
	submitted bool
}

// NewController creates an unstarted controller.
func NewController(examID string, ident model.Identity, deps Deps) *Controller {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 3
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Second
	}
	return &Controller{
		deps:     deps,
		now:      now,
		log:      deps.Log.With().Str("component", "session").Str("exam_id", examID).Str("email", ident.Email).Logger(),
		examID:   examID,
		real:     ident,
		state:    StateResolving,
		draft:    model.Draft{},
		restored: make(map[int]bool),
	}
}

// Start resolves access, loads what the phase/role combination permits and
// arms the clock monitor. Resolution and authorization failures leave the
// controller in StateBlocked rather than returning an error: the page
// renders the block reason inline.
func (c *Controller) Start(ctx context.Context, impersonate string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desc, err := c.deps.Registry.Descriptor(ctx, c.examID)
	if err != nil {
		c.block(err)
		return
	}
	c.desc = desc

	res := c.deps.Resolver.Resolve(ctx, desc, c.real, impersonate)
	c.level = res.Level
	c.effective = res.Effective

	if !c.level.CanView() {
		c.block(ErrNotAuthorized)
		return
	}

	c.start, c.end = desc.Window(c.effective.Email)
	c.applyTick(c.tickNow())

	if c.mayLoadQuestions() {
		c.loadQuestionsLocked(ctx)
	} else {
		c.state = StateLoading
	}

	c.monitor = clock.NewMonitor(c.start, c.end, c.deps.TickInterval, c.onTick, c.log, clock.WithNowFunc(c.now))
	c.monitor.Start(ctx)
}

// Close tears down the clock monitor.
func (c *Controller) Close() {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor != nil {
		monitor.Stop()
	}
}

// onTick is the re-entrant clock callback: it refreshes the countdown and
// retries the lazy question load across the start boundary (the page left
// open through "not yet started" comes alive without a reload).
func (c *Controller) onTick(t clock.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyTick(t)

	if c.state == StateLoading && c.mayLoadQuestions() {
		c.loadQuestionsLocked(context.Background())
	}
}

func (c *Controller) applyTick(t clock.Tick) {
	// Phase transitions are monotonic for a fixed window; the tick math
	// guarantees it, so the raw tick is stored as-is.
	c.lastTick = t
	c.countdown = clock.CountdownText(t)
}

func (c *Controller) tickNow() clock.Tick {
	now := c.now()
	phase := clock.PhaseAt(now, c.start, c.end)
	var until time.Duration
	switch phase {
	case model.PhasePending:
		until = c.start.Sub(now)
	default:
		until = c.end.Sub(now)
	}
	return clock.Tick{Phase: phase, Until: until, Now: now}
}

// mayLoadQuestions: admins always; everyone else only once the exam has
// started.
func (c *Controller) mayLoadQuestions() bool {
	return c.level == model.AccessAdmin || c.lastTick.Phase != model.PhasePending
}

func (c *Controller) loadQuestionsLocked(ctx context.Context) {
	mounts := make(map[string]string)
	qs, err := c.deps.Registry.Questions(ctx, c.examID, c.effective, mounts)
	if err != nil {
		// LoadError is terminal for this load; the message and trace are
		// rendered, the page keeps working.
		c.block(err)
		return
	}

	c.questions = qs
	c.eval = evaluator.New(qs)

	// Restore the saved draft before any check happens.
	draft, err := c.deps.Store.Restore(ctx, c.examID, c.effective.Email)
	if err != nil {
		c.log.Warn().Err(err).Msg("Draft restore failed, starting empty")
		draft = model.Draft{}
	}
	c.draft = draft

	c.state = StateReady
	c.log.Info().Int("questions", len(qs)).Msg("Questions loaded")
}

func (c *Controller) block(err error) {
	c.state = StateBlocked
	c.blockErr = err
	c.log.Warn().Err(err).Msg("Session blocked")
}

// ─── Gates ─────────────────────────────────────────────────────────

func (c *Controller) editGateLocked() error {
	if c.state != StateReady {
		return c.notReadyErr()
	}
	if c.level == model.AccessAdmin {
		return nil
	}
	if c.level == model.AccessReadOnly {
		return ErrReadOnly
	}
	switch c.lastTick.Phase {
	case model.PhasePending:
		return ErrNotStarted
	case model.PhaseEnded:
		return ErrEnded
	}
	return nil
}

func (c *Controller) checkGateLocked() error {
	if c.state != StateReady {
		return c.notReadyErr()
	}
	if c.level == model.AccessAdmin {
		return nil
	}
	switch c.lastTick.Phase {
	case model.PhasePending:
		return ErrNotStarted
	case model.PhaseEnded:
		return ErrEnded
	}
	return nil
}

func (c *Controller) submitGateLocked() error {
	if c.state != StateReady {
		return c.notReadyErr()
	}
	if !c.level.CanSubmit() {
		return ErrReadOnly
	}
	if c.level == model.AccessAdmin {
		return nil
	}
	switch c.lastTick.Phase {
	case model.PhasePending:
		return ErrNotStarted
	case model.PhaseEnded:
		return ErrEnded
	}
	return nil
}

func (c *Controller) notReadyErr() error {
	if c.state == StateBlocked {
		return c.blockErr
	}
	return ErrNotReady
}

// ─── Operations ────────────────────────────────────────────────────

// Save records one field edit in the draft and autosaves it. File-typed
// fields are never persisted.
func (c *Controller) Save(ctx context.Context, questionID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editGateLocked(); err != nil {
		return err
	}
	q, ok := c.eval.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", evaluator.ErrUnknownQuestion, questionID)
	}

	c.draft[questionID] = value

	if q.Type == model.FieldTypeFile {
		return nil
	}
	return c.deps.Store.SaveField(ctx, c.examID, c.effective.Email, questionID, value)
}

// CheckOne checks a single question. A nil value re-reads the current
// draft, mirroring the source's re-read of the form.
func (c *Controller) CheckOne(ctx context.Context, questionID string, value *string) (model.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkGateLocked(); err != nil {
		return model.Verdict{}, err
	}
	if _, ok := c.eval.Question(questionID); !ok {
		return model.Verdict{}, fmt.Errorf("%w: %s", evaluator.ErrUnknownQuestion, questionID)
	}

	v := ""
	if value != nil {
		v = *value
		c.draft[questionID] = *value
	} else {
		v = c.draft[questionID]
	}

	return c.eval.CheckOne(ctx, questionID, v)
}

// CheckAll checks every currently-submitted field sequentially.
func (c *Controller) CheckAll(ctx context.Context) (model.CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkGateLocked(); err != nil {
		return model.CheckResult{}, err
	}
	return c.eval.CheckAll(ctx, c.draft), nil
}

// Submit runs a full check, seals the result and forwards it to the
// grading backend. Created exactly once per call; a failed POST surfaces
// the upstream message and leaves the session retryable (resubmission
// overwrites the prior score).
func (c *Controller) Submit(ctx context.Context) (*model.SignedSubmission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.submitGateLocked(); err != nil {
		return nil, err
	}

	result := c.eval.CheckAll(ctx, c.draft)

	sub := &model.SignedSubmission{
		Answers:   result.Answers,
		Scores:    result.Scores,
		Total:     result.Total,
		Max:       result.Max,
		Quiz:      c.examID,
		Deadline:  c.end,
		Email:     c.effective.Email,
		ExamToken: c.effective.ExamToken,
	}
	if err := c.deps.Signer.Sign(sub); err != nil {
		return nil, fmt.Errorf("sign submission: %w", err)
	}

	if err := c.deps.Backend.Submit(ctx, sub); err != nil {
		return nil, err
	}

	c.submitted = true
	c.log.Info().Float64("total", sub.Total).Float64("max", sub.Max).Msg("Submission accepted")
	return sub, nil
}

// History fetches the visitor's recent records. Fetch failures degrade to
// an empty view rather than an error.
func (c *Controller) History(ctx context.Context) []model.HistoryRecord {
	c.mu.Lock()
	examID, email, limit := c.examID, c.effective.Email, c.deps.HistoryLimit
	c.mu.Unlock()

	records, err := c.deps.Backend.History(ctx, examID, email, limit)
	if err != nil {
		c.log.Warn().Err(err).Msg("History fetch failed, showing empty view")
		return []model.HistoryRecord{}
	}
	return records
}

// RestoreHistory overwrites the in-memory draft with a prior record's
// answers, without re-submitting. Each entry is single-use.
func (c *Controller) RestoreHistory(ctx context.Context, index int) (model.Draft, error) {
	records := c.History(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkGateLocked(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(records) {
		return nil, ErrNoHistoryEntry
	}
	if c.restored[index] {
		return nil, ErrRestoreUsed
	}
	c.restored[index] = true

	draft := model.Draft{}
	for qid, value := range records[index].Answers {
		if _, ok := c.eval.Question(qid); ok {
			draft[qid] = value
		}
	}
	c.draft = draft

	// Rewrite the autosaved copy so a reload restores the same view.
	// Best effort: the in-memory draft is already authoritative.
	if err := c.deps.Store.Clear(ctx, c.examID, c.effective.Email); err != nil {
		c.log.Warn().Err(err).Msg("Autosave clear failed during restore")
	} else {
		for qid, value := range draft {
			if q, ok := c.eval.Question(qid); ok && q.Type != model.FieldTypeFile {
				if err := c.deps.Store.SaveField(ctx, c.examID, c.effective.Email, qid, value); err != nil {
					c.log.Warn().Err(err).Str("question_id", qid).Msg("Autosave rewrite failed during restore")
				}
			}
		}
	}

	return draft.Clone(), nil
}
