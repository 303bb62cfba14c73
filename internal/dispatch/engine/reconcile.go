package engine

import (
	"context"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// RetentionHorizon — возраст, после которого завершённый сервис подлежит
// удалению
const RetentionHorizon = 30 * 24 * time.Hour

// Reconciler вливает внешний срез трёх коллекций в локальный Store.
// Слияние аддитивное, по идентичности: локальная запись всегда побеждает,
// существующие id не перезаписываются. Если слияние изменило коллекцию
// сервисов, статус курьера текущей DELIVERY-сессии пересчитывается: влитое
// извне активное назначение обязано перевести его в BUSY.
type Reconciler struct {
	store     *store.Store
	sessions  *SessionManager
	lifecycle *Lifecycle
	log       *logger.Logger
}

func NewReconciler(st *store.Store, sessions *SessionManager, lifecycle *Lifecycle, log *logger.Logger) *Reconciler {
	return &Reconciler{store: st, sessions: sessions, lifecycle: lifecycle, log: log}
}

// mergeByID: local ∪ {x ∈ incoming : id(x) ∉ ids(local)}. Порядок:
// локальные в исходном порядке, затем новые в порядке incoming.
func mergeByID[T any](local, incoming []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(local))
	for _, item := range local {
		seen[id(item)] = struct{}{}
	}
	merged := local
	for _, item := range incoming {
		if _, ok := seen[id(item)]; ok {
			continue
		}
		merged = append(merged, item)
	}
	return merged
}

// Import вливает внешний срез в Store. Идемпотентен: повторный импорт того
// же среза ничего не меняет. Изменение коллекции сервисов влечёт пересчёт
// статуса курьера активной сессии.
func (r *Reconciler) Import(ctx context.Context, snap domain.Snapshot) {
	added := 0

	r.store.UpdateRiders(func(local []domain.Rider) ([]domain.Rider, bool) {
		merged := mergeByID(local, snap.Riders, func(x domain.Rider) string { return x.ID })
		if len(merged) == len(local) {
			return nil, false
		}
		added += len(merged) - len(local)
		return merged, true
	})

	servicesChanged := r.store.UpdateServices(func(local []domain.Service) ([]domain.Service, bool) {
		merged := mergeByID(local, snap.Services, func(x domain.Service) string { return x.ID })
		if len(merged) == len(local) {
			return nil, false
		}
		added += len(merged) - len(local)
		return merged, true
	})

	r.store.UpdateCustomers(func(local []domain.Customer) ([]domain.Customer, bool) {
		merged := mergeByID(local, snap.Customers, func(x domain.Customer) string { return x.ID })
		if len(merged) == len(local) {
			return nil, false
		}
		added += len(merged) - len(local)
		return merged, true
	})

	if servicesChanged {
		r.refreshSessionRider(ctx)
	}

	r.log.Info(logger.Entry{
		Action:  "snapshot_imported",
		Message: "external snapshot reconciled",
		Additional: map[string]any{
			"added":     added,
			"riders":    len(snap.Riders),
			"services":  len(snap.Services),
			"customers": len(snap.Customers),
		},
	})
}

// refreshSessionRider пересчитывает статус курьера текущей DELIVERY-сессии
// после изменения коллекции сервисов
func (r *Reconciler) refreshSessionRider(ctx context.Context) {
	if r.sessions == nil || r.lifecycle == nil {
		return
	}
	sess := r.sessions.Current()
	if sess == nil || sess.Role != model.RoleDelivery {
		return
	}
	r.lifecycle.RefreshRiderStatus(ctx, sess.ID)
}

// Export отдаёт полный срез для передачи на другое устройство
func (r *Reconciler) Export() domain.Snapshot {
	return r.store.Snapshot()
}

// PurgeCompleted удаляет сервис тогда и только тогда, когда он COMPLETED и
// создан раньше now-horizon. Всё незавершённое и всё свежее завершённое
// сохраняется безусловно.
func PurgeCompleted(services []domain.Service, now time.Time, horizon time.Duration) []domain.Service {
	cutoff := now.Add(-horizon)
	kept := services[:0:0]
	for _, s := range services {
		if s.Status == model.ServiceStatusCompleted && s.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// PurgeOldServices применяет политику хранения к Store, возвращает число
// удалённых сервисов
func (r *Reconciler) PurgeOldServices(now time.Time) int {
	removed := 0

	r.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		kept := PurgeCompleted(services, now, RetentionHorizon)
		if len(kept) == len(services) {
			return nil, false
		}
		removed = len(services) - len(kept)
		return kept, true
	})

	if removed > 0 {
		r.log.Info(logger.Entry{
			Action:  "old_services_purged",
			Message: "completed services beyond retention horizon removed",
			Additional: map[string]any{
				"removed": removed,
			},
		})
	}
	return removed
}
