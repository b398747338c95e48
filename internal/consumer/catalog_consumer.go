package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

const (
	Exchange = "events"
	Queue    = "ticketing-service.catalog"
)

// Bindings are the routing keys the catalog queue listens on.
var Bindings = []string{"event.*", "ticket_type.*"}

var errMalformed = errors.New("malformed catalog message")

type EventMessage struct {
	ID          string             `json:"id"`
	OrganizerID string             `json:"organizer_id"`
	Name        string             `json:"name"`
	Status      models.EventStatus `json:"status"`
	Capacity    int                `json:"capacity"`
	StartAt     time.Time          `json:"start_at"`
	EndAt       time.Time          `json:"end_at"`
}

type TicketTypeMessage struct {
	ID       string  `json:"id"`
	EventID  string  `json:"event_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CatalogConsumer keeps local copies of events and ticket types published
// by the event service so the ticketing transactions have rows to lock.
type CatalogConsumer struct {
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	l           logger.Logger
}

func NewCatalogConsumer(events repository.EventRepository, ticketTypes repository.TicketTypeRepository, l logger.Logger) *CatalogConsumer {
	return &CatalogConsumer{events: events, ticketTypes: ticketTypes, l: l}
}

// Run handles deliveries until ctx is done or msgs is closed.
func (cc *CatalogConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				cc.l.Warn(ctx, "consumer.CatalogConsumer.Run: delivery channel closed")
				return nil
			}
			cc.handleMessage(ctx, msg)
		}
	}
}

func (cc *CatalogConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	err := cc.apply(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformed), errors.Is(err, repository.ErrQuantityBelowSold):
		cc.l.Warnf(ctx, "consumer.CatalogConsumer.handleMessage: %s: %v", msg.RoutingKey, err)
		_ = msg.Nack(false, false)
	default:
		cc.l.Errorf(ctx, "consumer.CatalogConsumer.handleMessage: %s: %v", msg.RoutingKey, err)
		_ = msg.Nack(false, true)
	}
}

func (cc *CatalogConsumer) apply(ctx context.Context, routingKey string, body []byte) error {
	kind, _, _ := strings.Cut(routingKey, ".")
	switch kind {
	case "event":
		var m EventMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		event, err := m.toModel()
		if err != nil {
			return err
		}
		if err := cc.events.Upsert(ctx, event); err != nil {
			return fmt.Errorf("upsert event %s: %w", event.ID, err)
		}
		cc.l.Debugf(ctx, "consumer.CatalogConsumer: synced event %s (%s)", event.ID, event.Status)
	case "ticket_type":
		var m TicketTypeMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		tt, err := m.toModel()
		if err != nil {
			return err
		}
		if err := cc.ticketTypes.Upsert(ctx, tt); err != nil {
			return fmt.Errorf("upsert ticket type %s: %w", tt.ID, err)
		}
		cc.l.Debugf(ctx, "consumer.CatalogConsumer: synced ticket type %s", tt.ID)
	default:
		cc.l.Debugf(ctx, "consumer.CatalogConsumer: ignoring %s", routingKey)
	}
	return nil
}

func (m EventMessage) toModel() (*models.Event, error) {
	if !validUUID(m.ID) {
		return nil, fmt.Errorf("%w: event id %q", errMalformed, m.ID)
	}
	switch m.Status {
	case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusCancelled, models.EventStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: event status %q", errMalformed, m.Status)
	}
	if m.Capacity < 0 || m.EndAt.Before(m.StartAt) {
		return nil, fmt.Errorf("%w: event %s has invalid capacity or window", errMalformed, m.ID)
	}
	return &models.Event{
		ID:          strings.ToLower(m.ID),
		OrganizerID: m.OrganizerID,
		Name:        m.Name,
		Status:      m.Status,
		Capacity:    m.Capacity,
		StartAt:     m.StartAt.UTC(),
		EndAt:       m.EndAt.UTC(),
	}, nil
}

func (m TicketTypeMessage) toModel() (*models.TicketType, error) {
	if !validUUID(m.ID) || !validUUID(m.EventID) {
		return nil, fmt.Errorf("%w: ticket type ids %q/%q", errMalformed, m.ID, m.EventID)
	}
	if m.Quantity <= 0 || m.Price < 0 {
		return nil, fmt.Errorf("%w: ticket type %s has invalid quantity or price", errMalformed, m.ID)
	}
	return &models.TicketType{
		ID:       strings.ToLower(m.ID),
		EventID:  strings.ToLower(m.EventID),
		Name:     m.Name,
		Price:    m.Price,
		Quantity: m.Quantity,
	}, nil
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
