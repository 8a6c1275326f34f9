package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	resmodel "flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReservationEventPayload is the data section of reservation.* envelopes.
type ReservationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	UserID        string    `json:"user_id"`
	ItemID        string    `json:"item_id"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Publisher wraps the asynq client behind the envelope schema. Every message
// carries type, recipient, payload and metadata; consumers never see raw
// task payloads without the envelope.
type Publisher struct {
	client *asynq.Client
}

func NewPublisher(client *asynq.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) envelope(eventType, to string, data any, userID string) (*shared.EventEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return &shared.EventEnvelope{
		Type: eventType,
		To:   to,
		Data: raw,
		Metadata: shared.EventMetadata{
			UserID:    userID,
			EventID:   uuid.NewString(),
			Timestamp: time.Now().UTC(),
		},
	}, nil
}

func (p *Publisher) enqueue(ctx context.Context, env *shared.EventEnvelope, opts ...asynq.Option) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	info, err := p.client.EnqueueContext(ctx, asynq.NewTask(env.Type, payload), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", env.Type, err)
	}

	logger.Debug("event published", map[string]interface{}{
		"type":     env.Type,
		"event_id": env.Metadata.EventID,
		"queue":    info.Queue,
	})
	return nil
}

// PublishReservationEvent fans a lifecycle transition out on the default
// queue for analytics and audit consumers.
func (p *Publisher) PublishReservationEvent(ctx context.Context, eventType string, res *resmodel.Reservation) error {
	payload := ReservationEventPayload{
		ReservationID: res.ID.String(),
		Code:          res.Code,
		UserID:        res.UserID.String(),
		ItemID:        res.ItemID.String(),
		Quantity:      res.Quantity,
		Status:        string(res.Status),
		ExpiresAt:     res.ExpiresAt,
	}

	env, err := p.envelope(eventType, "", payload, res.UserID.String())
	if err != nil {
		return err
	}

	return p.enqueue(ctx, env,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
}

// PublishDeadLetter parks a message that was malformed or exhausted its
// retries. The dead queue has no automatic consumer; operators inspect and
// requeue by hand.
func (p *Publisher) PublishDeadLetter(ctx context.Context, original []byte, cause error) error {
	dl := shared.DeadLetter{
		Original:  original,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	_, err = p.client.EnqueueContext(ctx, asynq.NewTask(shared.TypeDeadLetter, payload),
		asynq.Queue(shared.QueueDead),
		asynq.MaxRetry(0),
		asynq.Retention(7*24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue dead letter: %w", err)
	}

	logger.Warn("message moved to dead letter queue", map[string]interface{}{
		"cause": cause.Error(),
	})
	return nil
}

// EnqueueSweepTick schedules one sweep pass. Manual ticks come from the
// admin trigger endpoint; scheduled ticks come from the cron scheduler.
func (p *Publisher) EnqueueSweepTick(ctx context.Context, manual bool) error {
	payload, err := json.Marshal(shared.SweepTickPayload{Manual: manual})
	if err != nil {
		return fmt.Errorf("failed to marshal sweep tick: %w", err)
	}

	_, err = p.client.EnqueueContext(ctx, asynq.NewTask(shared.TypeSweeperTick, payload),
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sweep tick: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
