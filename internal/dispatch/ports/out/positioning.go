package out

import (
	"context"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
)

// WatchOptions — параметры подписки на позицию (значения исходной системы:
// high accuracy, maxAge 10s, timeout 5s)
type WatchOptions struct {
	HighAccuracy bool
	MaxAge       time.Duration
	Timeout      time.Duration
}

// DefaultWatchOptions возвращает параметры подписки по умолчанию
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		MaxAge:       10 * time.Second,
		Timeout:      5 * time.Second,
	}
}

// CancelFunc отменяет подписку. Идемпотентна со стороны координатора:
// хэндл после отмены очищается и повторно не используется.
type CancelFunc func()

// PositionSource — коллаборатор позиционирования. onUpdate вызывается
// конкурентно с остальными операциями; ошибки подписки идут в onErr и не
// меняют состояние трекинга.
type PositionSource interface {
	Watch(ctx context.Context, riderID string, opts WatchOptions,
		onUpdate func(domain.Location), onErr func(error)) (CancelFunc, error)
}
