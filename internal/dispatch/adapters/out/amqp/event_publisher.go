package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	out "github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/mq"
)

// eventPublisher публикует события движка в RabbitMQ
type eventPublisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

func NewEventPublisher(conn *mq.RabbitMQ, log *logger.Logger) out.EventPublisher {
	return &eventPublisher{mq: conn, log: log}
}

type serviceEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Service   domain.Service `json:"service"`
}

type riderStatusEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RiderID   string    `json:"rider_id"`
	Status    string    `json:"status"`
}

// PublishServiceEvent: dispatch_topic / service.{created|assigned|...}
func (p *eventPublisher) PublishServiceEvent(ctx context.Context, eventType string, svc domain.Service) error {
	body, err := json.Marshal(serviceEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Service:   svc,
	})
	if err != nil {
		return fmt.Errorf("marshal service event: %w", err)
	}

	// SERVICE_CREATED -> service.created
	routingKey := "service." + strings.ToLower(strings.TrimPrefix(eventType, "SERVICE_"))
	return p.mq.Publish(ctx, mq.ExchangeDispatchTopic, routingKey, body)
}

// PublishRiderStatusChanged: rider_topic / rider.status.{rider_id}
func (p *eventPublisher) PublishRiderStatusChanged(ctx context.Context, riderID, status string) error {
	body, err := json.Marshal(riderStatusEvent{
		Type:      "RIDER_STATUS_CHANGED",
		Timestamp: time.Now().UTC(),
		RiderID:   riderID,
		Status:    status,
	})
	if err != nil {
		return fmt.Errorf("marshal rider status event: %w", err)
	}

	return p.mq.Publish(ctx, mq.ExchangeRiderTopic, "rider.status."+riderID, body)
}
