package mq

import (
	"fmt"
)

// Exchanges и очереди движка диспетчеризации
const (
	ExchangeDispatchTopic  = "dispatch_topic"  // события жизненного цикла сервисов
	ExchangeRiderTopic     = "rider_topic"     // изменения статуса курьеров
	ExchangeLocationFanout = "location_fanout" // GPS-фиксы от устройств курьеров
)

// SetupTopology создает exchanges, queues и bindings (идемпотентно)
func SetupTopology(mq *RabbitMQ) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	// 1. Exchange: dispatch_topic (topic)
	if err := ch.ExchangeDeclare(
		ExchangeDispatchTopic,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		return fmt.Errorf("declare dispatch_topic: %w", err)
	}

	// 2. Exchange: rider_topic (topic)
	if err := ch.ExchangeDeclare(
		ExchangeRiderTopic,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare rider_topic: %w", err)
	}

	// 3. Exchange: location_fanout (fanout)
	if err := ch.ExchangeDeclare(
		ExchangeLocationFanout,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare location_fanout: %w", err)
	}

	// 4. Очереди для dispatch_topic
	dispatchQueues := []string{
		"service.created",
		"service.assigned",
		"service.started",
		"service.completed",
		"service.deleted",
	}
	for _, q := range dispatchQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, ExchangeDispatchTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	// 5. Очередь для rider_topic
	if _, err := ch.QueueDeclare("rider.status_changed", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare rider.status_changed: %w", err)
	}
	if err := ch.QueueBind("rider.status_changed", "rider.status.*", ExchangeRiderTopic, false, nil); err != nil {
		return fmt.Errorf("bind rider.status_changed: %w", err)
	}

	// location_fanout: очереди объявляются подписчиками (exclusive, auto-delete)
	return nil
}
