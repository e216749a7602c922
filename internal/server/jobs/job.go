// Package jobs runs background work (outbound e-mail) off the request path.
// Delivery is at-least-once: a job is acknowledged only after its handler
// returns nil, so handlers must be idempotent.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeWelcomeEmail       = "welcome_email"
	TypePasswordResetEmail = "password_reset_email"
)

// ErrQueueClosed is returned by Receive once a queue has been closed.
var ErrQueueClosed = errors.New("queue closed")

// Job is the unit of background work as it travels through a queue.
type Job struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// RecordPayload points a job at a durable database row. Jobs never carry
// secrets themselves; the handler reloads the row.
type RecordPayload struct {
	RecordID int64 `json:"recordId"`
}

// NewJob marshals payload into a new job of the given type.
func NewJob(typ string, payload any) (*Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &Job{ID: uuid.NewString(), Type: typ, Payload: b}, nil
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Type, err)
	}
	return nil
}

// Delivery is a received job that must be settled with Ack or Nack.
type Delivery interface {
	Job() *Job
	// Ack removes the job from the queue.
	Ack(ctx context.Context) error
	// Nack releases the job for redelivery once delay has passed. It must
	// not block for the delay.
	Nack(ctx context.Context, delay time.Duration) error
}

type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Receive blocks until a job is available or ctx is done.
	Receive(ctx context.Context) (Delivery, error)
}

// Handler processes one job type.
type Handler func(ctx context.Context, job *Job) error
