package notify

import (
	"context"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

type logNotifier struct {
	l logger.Logger
}

// NewLogNotifier writes notifications to the log instead of a queue.
func NewLogNotifier(l logger.Logger) Notifier {
	return &logNotifier{l: l}
}

func (n *logNotifier) Enqueue(ctx context.Context, msg Notification) error {
	n.l.Infof(ctx, "notify: %s -> %s %v", msg.Kind, msg.Recipient, msg.Data)
	return nil
}
