package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	out "github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// positionSource — коллаборатор позиционирования поверх location_fanout:
// GPS-демон устройства курьера публикует фиксы в fanout, мы подписываемся
// эксклюзивной auto-delete очередью и фильтруем по rider_id.
type positionSource struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

func NewPositionSource(conn *mq.RabbitMQ, log *logger.Logger) out.PositionSource {
	return &positionSource{mq: conn, log: log}
}

// positionFix — формат сообщения в location_fanout
type positionFix struct {
	RiderID   string    `json:"rider_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *positionSource) Watch(ctx context.Context, riderID string, opts out.WatchOptions,
	onUpdate func(domain.Location), onErr func(error)) (out.CancelFunc, error) {

	ch := s.mq.Channel()
	if ch == nil {
		return nil, fmt.Errorf("rabbitmq channel not available")
	}

	// Своя очередь на подписку: exclusive + auto-delete, имя генерирует сервер
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare position queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", mq.ExchangeLocationFanout, false, nil); err != nil {
		return nil, fmt.Errorf("bind position queue: %w", err)
	}

	consumerTag := "position-" + riderID
	msgs, err := ch.Consume(q.Name, consumerTag, true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume position queue: %w", err)
	}

	watchCtx, cancelCtx := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				s.handleFix(msg, riderID, opts, onUpdate, onErr)
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		if err := ch.Cancel(consumerTag, false); err != nil {
			s.log.Error(logger.Entry{
				Action:  "position_consumer_cancel_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}
	return cancel, nil
}

func (s *positionSource) handleFix(msg amqp.Delivery, riderID string, opts out.WatchOptions,
	onUpdate func(domain.Location), onErr func(error)) {

	var fix positionFix
	if err := json.Unmarshal(msg.Body, &fix); err != nil {
		onErr(fmt.Errorf("decode position fix: %w", err))
		return
	}
	if fix.RiderID != riderID {
		return
	}

	// Слишком старые фиксы отбрасываем (maxAge исходной подписки)
	if opts.MaxAge > 0 && !fix.Timestamp.IsZero() && time.Since(fix.Timestamp) > opts.MaxAge {
		return
	}

	onUpdate(domain.Location{
		Lat:       fix.Lat,
		Lng:       fix.Lng,
		Timestamp: fix.Timestamp,
	})
}
