package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oratify/backend/internal/models"
)

type fakeStore struct {
	detail *models.SessionDetail
}

func (f *fakeStore) DetailByID(_ context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, nil
	}
	cp := *f.detail
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, _ uuid.UUID, status models.SessionStatus, startedAt, endedAt *time.Time) error {
	f.detail.Status = status
	if startedAt != nil {
		f.detail.StartedAt = startedAt
	}
	if endedAt != nil {
		f.detail.EndedAt = endedAt
	}
	return nil
}

func (f *fakeStore) UpdateCurrentSlide(_ context.Context, _ uuid.UUID, slideID uuid.UUID) error {
	f.detail.CurrentSlideID = &slideID
	return nil
}

type fakeSlides struct {
	slides map[uuid.UUID]uuid.UUID // slide -> presentation
}

func (f *fakeSlides) SlideInPresentation(_ context.Context, slideID, presentationID uuid.UUID) (*models.Slide, error) {
	if f.slides[slideID] != presentationID {
		return nil, nil
	}
	return &models.Slide{ID: slideID, PresentationID: presentationID}, nil
}

func newTestLifecycle(status models.SessionStatus) (*Lifecycle, *fakeStore, uuid.UUID) {
	id := uuid.New()
	store := &fakeStore{detail: &models.SessionDetail{
		Session: models.Session{
			ID:             id,
			PresentationID: uuid.New(),
			JoinCode:       "ABC234",
			Status:         status,
		},
	}}
	return NewLifecycle(store, &fakeSlides{slides: map[uuid.UUID]uuid.UUID{}}), store, id
}

func TestStartFromPending(t *testing.T) {
	l, store, id := newTestLifecycle(models.SessionPending)
	d, err := l.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Status != models.SessionActive {
		t.Fatalf("status = %s, want active", d.Status)
	}
	if d.StartedAt == nil {
		t.Fatal("StartedAt not set")
	}
	if store.detail.Status != models.SessionActive {
		t.Fatalf("store status = %s, want active", store.detail.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		from models.SessionStatus
		op   func(*Lifecycle, uuid.UUID) error
	}{
		{"start from active", models.SessionActive, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Start(context.Background(), id)
			return err
		}},
		{"start from ended", models.SessionEnded, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Start(context.Background(), id)
			return err
		}},
		{"pause from pending", models.SessionPending, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Pause(context.Background(), id)
			return err
		}},
		{"pause from paused", models.SessionPaused, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Pause(context.Background(), id)
			return err
		}},
		{"resume from active", models.SessionActive, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Resume(context.Background(), id)
			return err
		}},
		{"resume from pending", models.SessionPending, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Resume(context.Background(), id)
			return err
		}},
		{"resume from ended", models.SessionEnded, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.Resume(context.Background(), id)
			return err
		}},
		{"end from pending", models.SessionPending, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.End(context.Background(), id)
			return err
		}},
		{"end from ended", models.SessionEnded, func(l *Lifecycle, id uuid.UUID) error {
			_, err := l.End(context.Background(), id)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, store, id := newTestLifecycle(tc.from)
			err := tc.op(l, id)
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want InvalidTransitionError", err)
			}
			if invalid.From != tc.from {
				t.Fatalf("From = %s, want %s", invalid.From, tc.from)
			}
			if store.detail.Status != tc.from {
				t.Fatalf("status changed to %s despite invalid transition", store.detail.Status)
			}
		})
	}
}

func TestPauseResumeEnd(t *testing.T) {
	l, _, id := newTestLifecycle(models.SessionActive)
	ctx := context.Background()

	d, err := l.Pause(ctx, id)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if d.Status != models.SessionPaused {
		t.Fatalf("status = %s, want paused", d.Status)
	}

	d, err = l.Resume(ctx, id)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if d.Status != models.SessionActive {
		t.Fatalf("status = %s, want active", d.Status)
	}

	d, err = l.End(ctx, id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if d.Status != models.SessionEnded {
		t.Fatalf("status = %s, want ended", d.Status)
	}
	if d.EndedAt == nil {
		t.Fatal("EndedAt not set")
	}
}

func TestEndFromPaused(t *testing.T) {
	l, _, id := newTestLifecycle(models.SessionPaused)
	d, err := l.End(context.Background(), id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if d.Status != models.SessionEnded {
		t.Fatalf("status = %s, want ended", d.Status)
	}
}

func TestChangeSlide(t *testing.T) {
	l, store, id := newTestLifecycle(models.SessionPaused)
	slideID := uuid.New()
	l.slides = &fakeSlides{slides: map[uuid.UUID]uuid.UUID{slideID: store.detail.PresentationID}}

	d, err := l.ChangeSlide(context.Background(), id, slideID)
	if err != nil {
		t.Fatalf("ChangeSlide: %v", err)
	}
	if d.CurrentSlideID == nil || *d.CurrentSlideID != slideID {
		t.Fatal("current slide not updated")
	}
	if d.CurrentSlide == nil || d.CurrentSlide.ID != slideID {
		t.Fatal("current slide detail not set")
	}
}

func TestChangeSlideForeignSlide(t *testing.T) {
	l, _, id := newTestLifecycle(models.SessionActive)
	_, err := l.ChangeSlide(context.Background(), id, uuid.New())
	if !errors.Is(err, ErrSlideNotInPresentation) {
		t.Fatalf("err = %v, want ErrSlideNotInPresentation", err)
	}
}

func TestChangeSlideEndedSession(t *testing.T) {
	l, _, id := newTestLifecycle(models.SessionEnded)
	_, err := l.ChangeSlide(context.Background(), id, uuid.New())
	if !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("err = %v, want ErrSessionEnded", err)
	}
}

func TestOperationsOnMissingSession(t *testing.T) {
	l, _, _ := newTestLifecycle(models.SessionPending)
	_, err := l.Start(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
