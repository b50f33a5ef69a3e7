package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/oratify/backend/internal/models"
)

func TestSessionStateResolvesSlideFromID(t *testing.T) {
	presentationID := uuid.New()
	slides := []models.Slide{
		{ID: uuid.New(), PresentationID: presentationID, OrderIndex: 0},
		{ID: uuid.New(), PresentationID: presentationID, OrderIndex: 1, Type: models.SlideTypeMultipleChoice, Content: json.RawMessage(`{"options":["a","b"]}`)},
	}
	// CurrentSlide deliberately left unset; only the ID identifies it.
	d := &models.SessionDetail{
		Session: models.Session{
			ID:             uuid.New(),
			PresentationID: presentationID,
			JoinCode:       "ABC234",
			CurrentSlideID: &slides[1].ID,
			Status:         models.SessionActive,
		},
		Slides: slides,
	}

	state := NewSessionState(d, 3)
	if state.CurrentSlide == nil {
		t.Fatal("current slide not resolved from the slide list")
	}
	if state.CurrentSlide.ID != slides[1].ID {
		t.Fatalf("resolved slide %s, want %s", state.CurrentSlide.ID, slides[1].ID)
	}
	if state.CurrentSlide.Index != 1 || state.CurrentSlide.Total != 2 {
		t.Fatalf("index/total = %d/%d, want 1/2", state.CurrentSlide.Index, state.CurrentSlide.Total)
	}
	if state.TotalSlides != 2 || state.ParticipantCount != 3 {
		t.Fatalf("unexpected snapshot %+v", state)
	}
}

func TestSessionStateWithoutCurrentSlide(t *testing.T) {
	d := &models.SessionDetail{
		Session: models.Session{
			ID:       uuid.New(),
			JoinCode: "ABC234",
			Status:   models.SessionPending,
		},
	}
	state := NewSessionState(d, 0)
	if state.CurrentSlide != nil {
		t.Fatalf("current slide = %+v, want nil", state.CurrentSlide)
	}
}
