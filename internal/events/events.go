// Package events publishes approval outcomes to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TypeMilestoneApproval is the event type for approval submissions.
const TypeMilestoneApproval = "milestone.approval"

// Event is one approval outcome.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Campaign    string    `json:"campaign"`
	Milestone   uint64    `json:"milestone"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Status      string    `json:"status"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewApprovalEvent creates an approval event with a fresh ID.
func NewApprovalEvent(campaign string, milestone uint64, txHash, status string, block uint64, errMsg string, at time.Time) Event {
	return Event{
		ID:          uuid.New().String(),
		Type:        TypeMilestoneApproval,
		Campaign:    campaign,
		Milestone:   milestone,
		TxHash:      txHash,
		Status:      status,
		BlockNumber: block,
		Error:       errMsg,
		OccurredAt:  at.UTC(),
	}
}

// RoutingKey returns the topic routing key, e.g. milestone.approval.confirmed.
func (e Event) RoutingKey() string {
	return e.Type + "." + e.Status
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
