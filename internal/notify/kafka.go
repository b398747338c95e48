package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const DefaultTopic = "ticketing.notifications"

type kafkaNotifier struct {
	prod  sarama.SyncProducer
	topic string
	now   func() time.Time
}

func NewKafkaNotifier(prod sarama.SyncProducer, topic string) Notifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafkaNotifier{prod: prod, topic: topic, now: time.Now}
}

func (n *kafkaNotifier) Enqueue(_ context.Context, msg Notification) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = n.now().UTC()
	}
	val, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	// Keyed by recipient so one user's notifications stay ordered.
	_, _, err = n.prod.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(msg.Recipient),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return nil
}
