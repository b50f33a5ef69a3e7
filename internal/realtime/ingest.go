package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oratify/backend/internal/models"
	"github.com/oratify/backend/pkg/queue"
)

var (
	// ErrForbidden is returned when a connection submits without having
	// joined as an audience member.
	ErrForbidden = errors.New("connection is not a joined participant")

	// ErrSessionNotActive is returned when responses arrive while the
	// session is pending or paused.
	ErrSessionNotActive = errors.New("session is not accepting responses")

	// ErrUnknownSlide is returned when the response targets a slide
	// outside the session's presentation.
	ErrUnknownSlide = errors.New("slide does not belong to this session")

	// ErrNoCurrentSlide is returned when a question arrives before any
	// slide is being shown.
	ErrNoCurrentSlide = errors.New("session has no current slide")
)

// AnswerQueue enqueues question answering jobs for the background worker.
type AnswerQueue interface {
	EnqueueAIAnswer(ctx context.Context, payload queue.AIAnswerPayload) error
}

// Ingestor validates and persists audience input arriving over WebSockets.
type Ingestor struct {
	sessions  SessionStore
	responses ResponseStore
	hub       *Hub
	answers   AnswerQueue
	logger    *zap.Logger
}

// NewIngestor creates the response ingestion service. answers may be nil,
// which disables question answering.
func NewIngestor(sessions SessionStore, responses ResponseStore, hub *Hub, answers AnswerQueue, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		sessions:  sessions,
		responses: responses,
		hub:       hub,
		answers:   answers,
		logger:    logger,
	}
}

// Submit persists a participant's response to a slide and forwards it to
// the speaker. Responses are never echoed to other audience members.
func (i *Ingestor) Submit(ctx context.Context, c *Connection, slideID uuid.UUID, content json.RawMessage) (*models.Response, error) {
	if c.Role != RoleAudience || c.ParticipantID == nil {
		return nil, ErrForbidden
	}
	d, err := i.liveSession(ctx, c.JoinCode)
	if err != nil {
		return nil, err
	}
	if d.Status != models.SessionActive {
		return nil, ErrSessionNotActive
	}
	if !slideInSession(d, slideID) {
		return nil, ErrUnknownSlide
	}

	resp := &models.Response{
		SessionID:     d.ID,
		SlideID:       slideID,
		ParticipantID: c.ParticipantID,
		Content:       content,
	}
	if err := i.responses.Create(ctx, resp); err != nil {
		return nil, err
	}

	i.hub.SendToSpeaker(c.JoinCode, NewResponseReceived(resp, c.DisplayName))
	return resp, nil
}

// AskQuestion persists an audience question against the current slide,
// notifies the speaker, and hands the question to the answer worker when
// one is configured.
func (i *Ingestor) AskQuestion(ctx context.Context, c *Connection, question string) (*models.Response, error) {
	if c.Role != RoleAudience || c.ParticipantID == nil {
		return nil, ErrForbidden
	}
	d, err := i.liveSession(ctx, c.JoinCode)
	if err != nil {
		return nil, err
	}
	if d.Status != models.SessionActive {
		return nil, ErrSessionNotActive
	}
	if d.CurrentSlideID == nil {
		return nil, ErrNoCurrentSlide
	}

	content, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	resp := &models.Response{
		SessionID:     d.ID,
		SlideID:       *d.CurrentSlideID,
		ParticipantID: c.ParticipantID,
		Content:       content,
	}
	if err := i.responses.Create(ctx, resp); err != nil {
		return nil, err
	}

	i.hub.SendToSpeaker(c.JoinCode, QuestionAsked{
		Type:          TypeQuestionAsked,
		ResponseID:    resp.ID,
		ParticipantID: c.ParticipantID,
		DisplayName:   c.DisplayName,
		Question:      question,
	})

	if i.answers != nil {
		err := i.answers.EnqueueAIAnswer(ctx, queue.AIAnswerPayload{
			QuestionResponseID: resp.ID,
			SessionID:          d.ID,
			SlideID:            resp.SlideID,
			JoinCode:           d.JoinCode,
			PresentationTitle:  d.PresentationTitle,
			QuestionText:       question,
		})
		if err != nil {
			i.logger.Error("failed to enqueue answer job",
				zap.String("session_id", d.ID.String()), zap.Error(err))
		}
	}
	return resp, nil
}

func (i *Ingestor) liveSession(ctx context.Context, joinCode string) (*models.SessionDetail, error) {
	d, err := i.sessions.DetailByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrSessionNotFound
	}
	return d, nil
}

func slideInSession(d *models.SessionDetail, slideID uuid.UUID) bool {
	for _, s := range d.Slides {
		if s.ID == slideID {
			return true
		}
	}
	return false
}
