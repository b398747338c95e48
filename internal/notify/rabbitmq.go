package notify

import (
	"context"
	"fmt"
	"time"
)

const Exchange = "notifications"

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type rabbitNotifier struct {
	pub Publisher
	now func() time.Time
}

func NewRabbitMQNotifier(pub Publisher) Notifier {
	return &rabbitNotifier{pub: pub, now: time.Now}
}

func (n *rabbitNotifier) Enqueue(ctx context.Context, msg Notification) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = n.now().UTC()
	}
	if err := n.pub.Publish(ctx, RoutingKey(msg.Kind), msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return nil
}
