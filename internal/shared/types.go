package shared

import (
	"encoding/json"
	"time"
)

// Task types routed through the event bus. Email types match the notification
// workers; reservation types fan out lifecycle transitions for analytics and
// audit consumers.
const (
	TypeEmailVerification    = "email.verification"
	TypeEmailPasswordReset   = "email.password_reset"
	TypeEmailPasswordChanged = "email.password_changed"
	TypeEmailAccountApproval = "email.account_approval"

	TypeReservationCreated   = "reservation.created"
	TypeReservationConfirmed = "reservation.confirmed"
	TypeReservationCancelled = "reservation.cancelled"
	TypeReservationExpired   = "reservation.expired"

	TypeSweeperTick = "sweeper.tick"
	TypeDeadLetter  = "dlq.message"
)

// Queue names with worker priorities configured in cmd/worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
	QueueDead     = "dead"
)

// EventMetadata travels with every published message.
type EventMetadata struct {
	UserID     string    `json:"user_id,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// EventEnvelope is the wire schema for all bus messages.
type EventEnvelope struct {
	Type     string          `json:"type"`
	To       string          `json:"to"`
	Data     json.RawMessage `json:"data"`
	Metadata EventMetadata   `json:"metadata"`
}

// DeadLetter wraps a message that exhausted its retry budget or was malformed.
type DeadLetter struct {
	Original  json.RawMessage `json:"original"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

// SweepTickPayload triggers one sweeper pass in the worker.
type SweepTickPayload struct {
	Manual bool `json:"manual"`
}
