package engine

import (
	"context"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// DeriveRiderStatus — чистая функция доступности курьера: BUSY, если за ним
// числится хотя бы один сервис в ASSIGNED или IN_PROGRESS, иначе AVAILABLE.
// OFFLINE движком не производится: это валидное, но не выводимое состояние.
func DeriveRiderStatus(riderID string, services []domain.Service) string {
	for _, s := range services {
		if s.AssignedToRiderID != riderID {
			continue
		}
		if s.Status == model.ServiceStatusAssigned || s.Status == model.ServiceStatusInProgress {
			return model.RiderStatusBusy
		}
	}
	return model.RiderStatusAvailable
}

// RefreshRiderStatus пересчитывает статус курьера из текущих сервисов.
// Идемпотентна: если статус не изменился, lastStatusChange не трогается и
// нотификации не рассылаются. Вызывается при установке DELIVERY-сессии.
func (l *Lifecycle) RefreshRiderStatus(ctx context.Context, riderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshRiderStatus(ctx, riderID)
}

func (l *Lifecycle) refreshRiderStatus(ctx context.Context, riderID string) {
	derived := DeriveRiderStatus(riderID, l.store.Services())

	changed := l.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
		for i := range riders {
			if riders[i].ID != riderID {
				continue
			}
			if riders[i].Status == derived {
				return nil, false
			}
			riders[i].Status = derived
			riders[i].LastStatusChange = time.Now().UTC()
			return riders, true
		}
		return nil, false
	})

	if !changed {
		return
	}

	if err := l.events.PublishRiderStatusChanged(ctx, riderID, derived); err != nil {
		l.log.Error(logger.Entry{
			Action:  "rider_status_publish_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не фатальная ошибка
	}

	l.log.Info(logger.Entry{
		Action:  "rider_status_changed",
		Message: derived,
		Additional: map[string]any{
			"rider_id": riderID,
		},
	})
}
