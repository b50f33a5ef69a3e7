package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/oratify/backend/internal/models"
	"github.com/oratify/backend/internal/realtime"
	"github.com/oratify/backend/pkg/queue"
)

// Answerer generates an answer to an audience question.
type Answerer interface {
	Answer(ctx context.Context, presentationTitle, question string) (string, error)
}

// ResponseStore persists generated answers.
type ResponseStore interface {
	Create(ctx context.Context, r *models.Response) error
}

// Broadcaster pushes finished answers back into the live session.
type Broadcaster interface {
	AIAnswerReady(joinCode string, msg realtime.AIResponse)
}

// AnswerProcessor drains the answer queue: for every queued question it
// calls the assist API, stores the answer as a response, and broadcasts
// it to the session.
type AnswerProcessor struct {
	queue     *queue.Queue
	answerer  Answerer
	responses ResponseStore
	events    Broadcaster
	logger    *zap.Logger
}

// NewAnswerProcessor creates the answer worker.
func NewAnswerProcessor(q *queue.Queue, answerer Answerer, responses ResponseStore, events Broadcaster, logger *zap.Logger) *AnswerProcessor {
	return &AnswerProcessor{
		queue:     q,
		answerer:  answerer,
		responses: responses,
		events:    events,
		logger:    logger,
	}
}

// Run consumes jobs until ctx is cancelled. Failed jobs are retried with
// backoff and land in the dead-letter queue after too many attempts.
func (p *AnswerProcessor) Run(ctx context.Context) {
	p.logger.Info("answer worker started")
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("answer worker stopped")
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-time.After(queue.RetryBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := p.process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

func (p *AnswerProcessor) process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAIAnswer {
		p.logger.Warn("skipping unknown job type", zap.String("type", string(job.Type)))
		return nil
	}
	var payload queue.AIAnswerPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("dropping malformed job", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	answer, err := p.answerer.Answer(ctx, payload.PresentationTitle, payload.QuestionText)
	if err != nil {
		return err
	}

	content, err := json.Marshal(map[string]interface{}{
		"answer":      answer,
		"question_id": payload.QuestionResponseID,
	})
	if err != nil {
		return err
	}
	resp := &models.Response{
		SessionID:    payload.SessionID,
		SlideID:      payload.SlideID,
		Content:      content,
		IsAIResponse: true,
	}
	if err := p.responses.Create(ctx, resp); err != nil {
		return err
	}

	p.events.AIAnswerReady(payload.JoinCode, realtime.AIResponse{
		Type:       realtime.TypeAIResponse,
		ResponseID: resp.ID,
		QuestionID: payload.QuestionResponseID,
		SlideID:    resp.SlideID,
		Content:    resp.Content,
		CreatedAt:  resp.CreatedAt,
	})
	p.logger.Info("answered question",
		zap.String("session_id", payload.SessionID.String()),
		zap.String("response_id", resp.ID.String()))
	return nil
}
