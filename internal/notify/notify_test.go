package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

type mockPublisher struct {
	PublishFunc func(ctx context.Context, routingKey string, payload any) error
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	return m.PublishFunc(ctx, routingKey, payload)
}

func TestRabbitMQNotifier_Enqueue(t *testing.T) {
	var gotKey string
	var got Notification
	pub := &mockPublisher{
		PublishFunc: func(_ context.Context, routingKey string, payload any) error {
			gotKey = routingKey
			got = payload.(Notification)
			return nil
		},
	}

	n := NewRabbitMQNotifier(pub)
	err := n.Enqueue(context.Background(), Notification{
		Recipient: "user-1",
		Kind:      KindTicketIssued,
		Data:      map[string]any{"registration_id": "r-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "notification.ticket_issued", gotKey)
	assert.Equal(t, "user-1", got.Recipient)
	assert.False(t, got.EnqueuedAt.IsZero())
}

func TestRabbitMQNotifier_PropagatesPublishError(t *testing.T) {
	pub := &mockPublisher{
		PublishFunc: func(context.Context, string, any) error {
			return errors.New("channel closed")
		},
	}

	err := NewRabbitMQNotifier(pub).Enqueue(context.Background(), Notification{Kind: KindCheckedIn})
	assert.ErrorContains(t, err, "channel closed")
}

func TestKafkaNotifier_Enqueue(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	defer prod.Close()

	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n Notification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.Kind != KindRegistrationCancelled || n.Recipient != "user-2" {
			return errors.New("unexpected notification payload")
		}
		return nil
	})

	n := NewKafkaNotifier(prod, "")
	err := n.Enqueue(context.Background(), Notification{
		Recipient:  "user-2",
		Kind:       KindRegistrationCancelled,
		EnqueuedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}

func TestKafkaNotifier_PropagatesSendError(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	defer prod.Close()

	prod.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := NewKafkaNotifier(prod, "custom.topic").Enqueue(context.Background(), Notification{Kind: KindCheckedIn})
	assert.Error(t, err)
}

func TestLogNotifier_NeverFails(t *testing.T) {
	n := NewLogNotifier(logger.InitializeTestZapLogger())
	assert.NoError(t, n.Enqueue(context.Background(), Notification{Kind: KindCheckedIn, Recipient: "user-3"}))
}

type blockingNotifier struct {
	release chan struct{}
	got     chan Notification
}

func (b *blockingNotifier) Enqueue(_ context.Context, n Notification) error {
	<-b.release
	b.got <- n
	return nil
}

func TestDispatcher_DispatchDoesNotBlock(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{}), got: make(chan Notification, 1)}
	d := NewDispatcher(next, time.Second, logger.InitializeTestZapLogger())

	start := time.Now()
	d.Dispatch(context.Background(), Notification{Recipient: "user-1", Kind: KindTicketIssued})
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Flush(ctx), context.DeadlineExceeded)

	close(next.release)
	require.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, "user-1", (<-next.got).Recipient)
}

func TestDispatcher_SurvivesCallerCancellation(t *testing.T) {
	var gotErr error
	pub := &mockPublisher{
		PublishFunc: func(ctx context.Context, _ string, _ any) error {
			gotErr = ctx.Err()
			return nil
		},
	}
	d := NewDispatcher(NewRabbitMQNotifier(pub), time.Second, logger.InitializeTestZapLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, Notification{Kind: KindCheckedIn})

	require.NoError(t, d.Flush(context.Background()))
	assert.NoError(t, gotErr)
}

func TestDispatcher_SwallowsSendErrors(t *testing.T) {
	pub := &mockPublisher{
		PublishFunc: func(context.Context, string, any) error {
			return errors.New("channel closed")
		},
	}
	d := NewDispatcher(NewRabbitMQNotifier(pub), 0, logger.InitializeTestZapLogger())

	d.Dispatch(context.Background(), Notification{Kind: KindRegistrationCancelled})
	assert.NoError(t, d.Flush(context.Background()))
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), Notification{Kind: KindCheckedIn})
	assert.NoError(t, d.Flush(context.Background()))
}
