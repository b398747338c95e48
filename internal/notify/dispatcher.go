package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

const DefaultSendTimeout = 3 * time.Second

// Dispatcher hands notifications to a Notifier in the background. Dispatch
// never blocks on the queue; failures are logged and dropped.
type Dispatcher struct {
	next    Notifier
	timeout time.Duration
	l       logger.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(next Notifier, timeout time.Duration, l logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{next: next, timeout: timeout, l: l}
}

// Dispatch starts sending n and returns immediately. The send is detached
// from ctx cancellation but keeps its values.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || d.next == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.next.Enqueue(sendCtx, n); err != nil {
			d.l.Warnf(ctx, "notify.Dispatcher: %s for %s: %v", n.Kind, n.Recipient, err)
		}
	}()
}

// Flush waits for in-flight sends. It returns ctx.Err() if ctx ends first.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
