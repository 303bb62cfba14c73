package out

import (
	"context"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
)

// EventPublisher — публикация событий движка. Fire-and-forget: ошибка
// публикации логируется и никогда не откатывает переход состояния.
type EventPublisher interface {
	// PublishServiceEvent публикует событие жизненного цикла сервиса.
	// Exchange: dispatch_topic, RoutingKey: service.{created|assigned|started|completed|deleted}
	PublishServiceEvent(ctx context.Context, eventType string, svc domain.Service) error

	// PublishRiderStatusChanged публикует изменение статуса курьера.
	// Exchange: rider_topic, RoutingKey: rider.status.{rider_id}
	PublishRiderStatusChanged(ctx context.Context, riderID, status string) error
}
