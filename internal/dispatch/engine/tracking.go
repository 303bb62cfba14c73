package engine

import (
	"context"
	"sync"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// TrackingCoordinator держит не более одной живой подписки на позицию для
// аутентифицированной DELIVERY-сессии, по флагу isTracking курьера.
// STOPPED -> WATCHING при включении флага, WATCHING -> STOPPED при
// выключении, завершении сессии или остановке движка.
type TrackingCoordinator struct {
	store     *store.Store
	positions out.PositionSource
	log       *logger.Logger

	mu      sync.Mutex
	cancel  out.CancelFunc
	riderID string
}

func NewTrackingCoordinator(st *store.Store, positions out.PositionSource, log *logger.Logger) *TrackingCoordinator {
	return &TrackingCoordinator{store: st, positions: positions, log: log}
}

// SetTracking переключает флаг трекинга курьера и приводит подписку в
// соответствие с ним.
func (c *TrackingCoordinator) SetTracking(ctx context.Context, riderID string, enabled bool) error {
	found := c.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
		for i := range riders {
			if riders[i].ID != riderID {
				continue
			}
			if riders[i].IsTracking == enabled {
				return nil, false
			}
			riders[i].IsTracking = enabled
			return riders, true
		}
		return nil, false
	})
	_ = found // повторное включение/выключение — no-op, не ошибка

	c.Sync(ctx, riderID)

	c.log.Info(logger.Entry{
		Action: "tracking_toggled",
		Additional: map[string]any{
			"rider_id": riderID,
			"enabled":  enabled,
		},
	})
	return nil
}

// Sync приводит подписку в соответствие с флагом isTracking курьера.
// Вызывается при установке DELIVERY-сессии и после переключения флага.
func (c *TrackingCoordinator) Sync(ctx context.Context, riderID string) {
	tracking := false
	for _, r := range c.store.Riders() {
		if r.ID == riderID {
			tracking = r.IsTracking
			break
		}
	}

	if tracking {
		c.start(ctx, riderID)
	} else {
		c.Stop()
	}
}

// start открывает подписку. Попытка стартовать вторую, пока активна
// первая — no-op, не ошибка.
func (c *TrackingCoordinator) start(ctx context.Context, riderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	cancel, err := c.positions.Watch(ctx, riderID, out.DefaultWatchOptions(),
		func(loc domain.Location) { c.applyLocation(riderID, loc) },
		func(err error) {
			// Ошибка позиционирования не меняет состояние: трекинг остаётся
			// включённым, следующий фикс может прийти
			c.log.Error(logger.Entry{
				Action:  "positioning_error",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
				Additional: map[string]any{
					"rider_id": riderID,
				},
			})
		},
	)
	if err != nil {
		c.log.Error(logger.Entry{
			Action:  "position_watch_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"rider_id": riderID,
			},
		})
		return
	}

	c.cancel = cancel
	c.riderID = riderID

	c.log.Info(logger.Entry{
		Action: "tracking_started",
		Additional: map[string]any{
			"rider_id": riderID,
		},
	})
}

// Stop синхронно и безусловно отменяет активную подписку. Идемпотентна:
// повторный Stop ничего не отменяет.
func (c *TrackingCoordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return
	}

	c.cancel()
	c.cancel = nil

	c.log.Info(logger.Entry{
		Action: "tracking_stopped",
		Additional: map[string]any{
			"rider_id": c.riderID,
		},
	})
	c.riderID = ""
}

// applyLocation вызывается из callback подписки конкурентно с остальными
// операциями; запись идёт через тот же сериализованный путь Store.
func (c *TrackingCoordinator) applyLocation(riderID string, loc domain.Location) {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = time.Now().UTC()
	}

	c.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
		for i := range riders {
			if riders[i].ID != riderID {
				continue
			}
			l := loc
			riders[i].Location = &l
			return riders, true
		}
		return nil, false
	})

	c.log.Debug(logger.Entry{
		Action: "location_updated",
		Additional: map[string]any{
			"rider_id": riderID,
			"lat":      loc.Lat,
			"lng":      loc.Lng,
		},
	})
}
