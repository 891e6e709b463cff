// Package intake drives the step-by-step collection of one check-in:
// Intro, one question per rating dimension, free text, then submission.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var (
	ErrInvalidTransition = errors.New("intake: invalid transition")
	ErrSubmitting        = errors.New("intake: submission in progress")
)

// Classifier labels a completed draft. It must always return a usable
// classification.
type Classifier interface {
	Classify(ctx context.Context, d pulse.Draft) pulse.Classification
}

// History receives each classified entry once.
type History interface {
	Append(ctx context.Context, e pulse.Entry) error
}

type HistoryFunc func(ctx context.Context, e pulse.Entry) error

func (f HistoryFunc) Append(ctx context.Context, e pulse.Entry) error { return f(ctx, e) }

type Options struct {
	Scale pulse.Scale
	Now   func() time.Time
	// Last seeds timestamp monotonicity, typically the newest entry in history.
	Last time.Time
}

// Wizard is safe for concurrent use; callers on one session still see a
// single linear flow.
type Wizard struct {
	mu      sync.Mutex
	scale   pulse.Scale
	step    Step
	draft   pulse.Draft
	last    time.Time
	now     func() time.Time
	classes Classifier
	history History
	log     *logger.Logger
}

func NewWizard(c Classifier, h History, baseLog *logger.Logger, opts Options) *Wizard {
	scale := opts.Scale
	if scale.Check() != nil {
		scale = pulse.DefaultScale()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Wizard{
		scale:   scale,
		step:    StepIntro,
		draft:   pulse.NewDraft(scale),
		last:    opts.Last,
		now:     now,
		classes: c,
		history: h,
		log:     baseLog.With("component", "IntakeWizard"),
	}
}

func (w *Wizard) CurrentStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() pulse.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

func (w *Wizard) Scale() pulse.Scale { return w.scale }

func (w *Wizard) busy() bool { return w.step == StepSubmitting || w.step == StepComplete }

// Next advances one step. The wizard only leaves FreeText through Submit.
func (w *Wizard) Next() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy() {
		return w.step, ErrSubmitting
	}
	if w.step >= StepFreeText {
		return w.step, fmt.Errorf("%w: next from %s", ErrInvalidTransition, w.step)
	}
	w.step++
	return w.step, nil
}

// Back moves one step toward Intro; at Intro it does nothing.
func (w *Wizard) Back() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy() {
		return w.step, ErrSubmitting
	}
	if w.step > StepIntro {
		w.step--
	}
	return w.step, nil
}

// SetRating writes the rating for the current question.
func (w *Wizard) SetRating(v float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy() {
		return ErrSubmitting
	}
	dim, ok := w.step.Dimension()
	if !ok {
		return fmt.Errorf("%w: rating at %s", ErrInvalidTransition, w.step)
	}
	if err := w.scale.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", dim, err)
	}
	w.draft.Ratings.Set(dim, v)
	return nil
}

func (w *Wizard) SetText(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy() {
		return ErrSubmitting
	}
	if w.step != StepFreeText {
		return fmt.Errorf("%w: text at %s", ErrInvalidTransition, w.step)
	}
	w.draft.Text = s
	return nil
}

// Abandon discards the draft. Once Submit has started it has no effect: the
// pending classification still completes and is recorded.
func (w *Wizard) Abandon() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy() {
		return
	}
	w.resetLocked()
}

// Submit classifies the draft and appends the entry to history, then resets
// to Intro with a blank draft. Cancelling ctx does not stop it.
func (w *Wizard) Submit(ctx context.Context) (pulse.Entry, error) {
	w.mu.Lock()
	if w.busy() {
		w.mu.Unlock()
		return pulse.Entry{}, ErrSubmitting
	}
	if w.step != StepFreeText {
		step := w.step
		w.mu.Unlock()
		return pulse.Entry{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, step)
	}
	draft := w.draft
	if err := draft.Validate(w.scale); err != nil {
		w.mu.Unlock()
		return pulse.Entry{}, err
	}
	w.step = StepSubmitting
	w.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	c := w.classes.Classify(ctx, draft)

	w.mu.Lock()
	at := w.stampLocked()
	entry := pulse.NewEntry(draft, c, at)
	w.step = StepComplete
	w.mu.Unlock()

	if err := w.history.Append(ctx, entry); err != nil {
		w.mu.Lock()
		w.step = StepFreeText
		w.mu.Unlock()
		w.log.Error("history append failed", "error", err)
		return pulse.Entry{}, fmt.Errorf("append entry: %w", err)
	}

	w.mu.Lock()
	w.last = at
	w.resetLocked()
	w.mu.Unlock()

	w.log.Debug("entry submitted", "sentiment", entry.Sentiment, "day", entry.Day)
	return entry, nil
}

// stampLocked returns a millisecond timestamp strictly after the previous one.
func (w *Wizard) stampLocked() time.Time {
	at := w.now().UTC().Truncate(time.Millisecond)
	if !at.After(w.last) {
		at = w.last.Add(time.Millisecond)
	}
	return at
}

func (w *Wizard) resetLocked() {
	w.step = StepIntro
	w.draft = pulse.NewDraft(w.scale)
}
