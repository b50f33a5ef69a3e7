package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oratify/backend/internal/models"
)

var (
	// ErrSessionNotFound is returned when the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionEnded is returned for operations that are meaningless
	// on an ended session, such as changing the current slide.
	ErrSessionEnded = errors.New("session has ended")

	// ErrSlideNotInPresentation is returned when the requested slide does
	// not belong to the session's presentation.
	ErrSlideNotInPresentation = errors.New("slide does not belong to this presentation")
)

// InvalidTransitionError reports a lifecycle move the state machine forbids.
type InvalidTransitionError struct {
	From models.SessionStatus
	To   models.SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition session from %s to %s", e.From, e.To)
}

// transitions is the allowed lifecycle graph. Ended is terminal.
var transitions = map[models.SessionStatus]map[models.SessionStatus]bool{
	models.SessionPending: {models.SessionActive: true},
	models.SessionActive:  {models.SessionPaused: true, models.SessionEnded: true},
	models.SessionPaused:  {models.SessionActive: true, models.SessionEnded: true},
	models.SessionEnded:   {},
}

// CanTransition reports whether the lifecycle allows moving from one
// status to another.
func CanTransition(from, to models.SessionStatus) bool {
	return transitions[from][to]
}

// Store is the session persistence surface the lifecycle needs.
type Store interface {
	DetailByID(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, startedAt, endedAt *time.Time) error
	UpdateCurrentSlide(ctx context.Context, id, slideID uuid.UUID) error
}

// SlideFinder resolves a slide within a given presentation.
type SlideFinder interface {
	SlideInPresentation(ctx context.Context, slideID, presentationID uuid.UUID) (*models.Slide, error)
}

// Lifecycle applies session state transitions against the store.
type Lifecycle struct {
	store  Store
	slides SlideFinder
	now    func() time.Time
}

// NewLifecycle creates the session lifecycle service.
func NewLifecycle(store Store, slides SlideFinder) *Lifecycle {
	return &Lifecycle{store: store, slides: slides, now: time.Now}
}

// Start moves a pending session to active and stamps the start time.
func (l *Lifecycle) Start(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.SessionPending {
		return nil, &InvalidTransitionError{From: d.Status, To: models.SessionActive}
	}
	startedAt := l.now()
	if err := l.store.UpdateStatus(ctx, id, models.SessionActive, &startedAt, nil); err != nil {
		return nil, err
	}
	d.Status = models.SessionActive
	d.StartedAt = &startedAt
	return d, nil
}

// Pause moves an active session to paused.
func (l *Lifecycle) Pause(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.SessionActive {
		return nil, &InvalidTransitionError{From: d.Status, To: models.SessionPaused}
	}
	if err := l.store.UpdateStatus(ctx, id, models.SessionPaused, nil, nil); err != nil {
		return nil, err
	}
	d.Status = models.SessionPaused
	return d, nil
}

// Resume moves a paused session back to active. Resuming from any other
// status is an invalid transition, including from active itself.
func (l *Lifecycle) Resume(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.SessionPaused {
		return nil, &InvalidTransitionError{From: d.Status, To: models.SessionActive}
	}
	if err := l.store.UpdateStatus(ctx, id, models.SessionActive, nil, nil); err != nil {
		return nil, err
	}
	d.Status = models.SessionActive
	return d, nil
}

// End terminates an active or paused session and stamps the end time.
func (l *Lifecycle) End(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(d.Status, models.SessionEnded) {
		return nil, &InvalidTransitionError{From: d.Status, To: models.SessionEnded}
	}
	endedAt := l.now()
	if err := l.store.UpdateStatus(ctx, id, models.SessionEnded, nil, &endedAt); err != nil {
		return nil, err
	}
	d.Status = models.SessionEnded
	d.EndedAt = &endedAt
	return d, nil
}

// ChangeSlide points the session at another slide of its presentation.
// Allowed in any live status, including paused, so the speaker can line
// up the next slide during a break.
func (l *Lifecycle) ChangeSlide(ctx context.Context, id, slideID uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == models.SessionEnded {
		return nil, ErrSessionEnded
	}
	slide, err := l.slides.SlideInPresentation(ctx, slideID, d.PresentationID)
	if err != nil {
		return nil, err
	}
	if slide == nil {
		return nil, ErrSlideNotInPresentation
	}
	if err := l.store.UpdateCurrentSlide(ctx, id, slideID); err != nil {
		return nil, err
	}
	d.CurrentSlideID = &slide.ID
	d.CurrentSlide = slide
	return d, nil
}

func (l *Lifecycle) load(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	d, err := l.store.DetailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrSessionNotFound
	}
	return d, nil
}
