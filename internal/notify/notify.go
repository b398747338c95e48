// Package notify hands outbound notifications to a queue. Delivery,
// templating and retries belong to the consumer on the other side; callers
// only ever enqueue.
package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindTicketIssued          Kind = "ticket_issued"
	KindCheckedIn             Kind = "checked_in"
	KindRegistrationCancelled Kind = "registration_cancelled"
)

type Notification struct {
	Recipient  string         `json:"recipient"`
	Kind       Kind           `json:"kind"`
	Data       map[string]any `json:"data,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

func RoutingKey(k Kind) string {
	return "notification." + string(k)
}
