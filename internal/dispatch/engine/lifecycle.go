package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/utils"
)

// Lifecycle — конечный автомат сервиса плюс административные операции над
// курьерами и клиентами. Каждый успешный переход — одна замена коллекции в
// Store; пересчёт статуса курьера выполняется явным пост-мутационным хуком.
// Мьютекс сериализует составные операции (переход + пересчёт).
type Lifecycle struct {
	mu     sync.Mutex
	store  *store.Store
	events out.EventPublisher
	log    *logger.Logger
}

func NewLifecycle(st *store.Store, events out.EventPublisher, log *logger.Logger) *Lifecycle {
	return &Lifecycle{store: st, events: events, log: log}
}

// CreateService создает сервис. При переданном riderID сервис сразу ASSIGNED
// (предназначение при создании), иначе PENDING.
func (l *Lifecycle) CreateService(ctx context.Context, input domain.ServiceInput, riderID string) (domain.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	svc := domain.Service{
		ID:            utils.NewUUID(),
		CustomerID:    input.CustomerID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Activity:      input.Activity,
		Value:         input.Value,
		PaymentType:   input.PaymentType,
		Status:        model.ServiceStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if riderID != "" {
		svc.Status = model.ServiceStatusAssigned
		svc.AssignedToRiderID = riderID
	}

	l.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		// Новые сервисы идут в начало списка, как в исходной системе
		return append([]domain.Service{svc}, services...), true
	})

	l.publishService(ctx, model.EventServiceCreated, svc)
	if riderID != "" {
		l.refreshRiderStatus(ctx, riderID)
	}

	l.log.Info(logger.Entry{
		Action:    "service_created",
		Message:   svc.Activity,
		ServiceID: svc.ID,
		Additional: map[string]any{
			"status":   svc.Status,
			"rider_id": riderID,
		},
	})
	return svc, nil
}

// AssignService назначает PENDING сервис курьеру. Из любого другого
// состояния переход нелегален.
func (l *Lifecycle) AssignService(ctx context.Context, serviceID, riderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var assigned domain.Service
	err := domain.ErrServiceNotFound

	l.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		for i := range services {
			if services[i].ID != serviceID {
				continue
			}
			if services[i].Status != model.ServiceStatusPending {
				err = fmt.Errorf("%w: assign from %s", domain.ErrInvalidTransition, services[i].Status)
				return nil, false
			}
			services[i].Status = model.ServiceStatusAssigned
			services[i].AssignedToRiderID = riderID
			assigned = services[i]
			err = nil
			return services, true
		}
		return nil, false
	})

	if err != nil {
		l.log.Warn(logger.Entry{
			Action:    "service_assign_rejected",
			Message:   err.Error(),
			ServiceID: serviceID,
			Additional: map[string]any{
				"rider_id": riderID,
			},
		})
		return err
	}

	l.publishService(ctx, model.EventServiceAssigned, assigned)
	l.refreshRiderStatus(ctx, riderID)

	l.log.Info(logger.Entry{
		Action:    "service_assigned",
		Message:   assigned.Activity,
		ServiceID: serviceID,
		Additional: map[string]any{
			"rider_id": riderID,
		},
	})
	return nil
}

// StartService переводит ASSIGNED сервис в IN_PROGRESS и фиксирует время
// начала.
func (l *Lifecycle) StartService(ctx context.Context, serviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var started domain.Service
	err := domain.ErrServiceNotFound

	l.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		for i := range services {
			if services[i].ID != serviceID {
				continue
			}
			if services[i].Status != model.ServiceStatusAssigned {
				err = fmt.Errorf("%w: start from %s", domain.ErrInvalidTransition, services[i].Status)
				return nil, false
			}
			now := time.Now().UTC()
			services[i].Status = model.ServiceStatusInProgress
			services[i].StartedAt = &now
			started = services[i]
			err = nil
			return services, true
		}
		return nil, false
	})

	if err != nil {
		l.log.Warn(logger.Entry{
			Action:    "service_start_rejected",
			Message:   err.Error(),
			ServiceID: serviceID,
		})
		return err
	}

	l.publishService(ctx, model.EventServiceStarted, started)
	l.refreshRiderStatus(ctx, started.AssignedToRiderID)

	l.log.Info(logger.Entry{
		Action:    "service_started",
		Message:   started.Activity,
		ServiceID: serviceID,
	})
	return nil
}

// CompleteService завершает сервис из IN_PROGRESS или ASSIGNED (курьер мог
// завершить без явного старта). Статус курьера оптимистично форсируется в
// AVAILABLE — завершение всегда освобождает мощность; последующий пересчёт
// вернёт BUSY только если уже есть другое активное назначение.
func (l *Lifecycle) CompleteService(ctx context.Context, serviceID, actingRiderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var completed domain.Service
	err := domain.ErrServiceNotFound

	l.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		for i := range services {
			if services[i].ID != serviceID {
				continue
			}
			st := services[i].Status
			if st != model.ServiceStatusInProgress && st != model.ServiceStatusAssigned {
				err = fmt.Errorf("%w: complete from %s", domain.ErrInvalidTransition, st)
				return nil, false
			}
			now := time.Now().UTC()
			services[i].Status = model.ServiceStatusCompleted
			services[i].CompletedAt = &now
			completed = services[i]
			err = nil
			return services, true
		}
		return nil, false
	})

	if err != nil {
		l.log.Warn(logger.Entry{
			Action:    "service_complete_rejected",
			Message:   err.Error(),
			ServiceID: serviceID,
		})
		return err
	}

	// Оптимистичное освобождение действующего курьера
	if actingRiderID != "" {
		l.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
			for i := range riders {
				if riders[i].ID != actingRiderID {
					continue
				}
				now := time.Now().UTC()
				riders[i].LastCompletedAt = &now
				if riders[i].Status != model.RiderStatusAvailable {
					riders[i].Status = model.RiderStatusAvailable
					riders[i].LastStatusChange = now
				}
				return riders, true
			}
			return nil, false
		})
	}

	l.publishService(ctx, model.EventServiceCompleted, completed)
	// Пересчёт обязан выполниться и после оптимистичного обновления
	if actingRiderID != "" {
		l.refreshRiderStatus(ctx, actingRiderID)
	}

	l.log.Info(logger.Entry{
		Action:    "service_completed",
		Message:   completed.Activity,
		ServiceID: serviceID,
		Additional: map[string]any{
			"rider_id": actingRiderID,
		},
	})
	return nil
}

// DeleteService удаляет сервис безусловно. Admin-only по соглашению
// транспорта, не инвариант движка.
func (l *Lifecycle) DeleteService(ctx context.Context, serviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var deleted domain.Service
	found := false

	l.store.UpdateServices(func(services []domain.Service) ([]domain.Service, bool) {
		next := services[:0]
		for _, s := range services {
			if s.ID == serviceID {
				deleted = s
				found = true
				continue
			}
			next = append(next, s)
		}
		return next, found
	})

	if !found {
		return domain.ErrServiceNotFound
	}

	l.publishService(ctx, model.EventServiceDeleted, deleted)
	if deleted.AssignedToRiderID != "" {
		l.refreshRiderStatus(ctx, deleted.AssignedToRiderID)
	}

	l.log.Info(logger.Entry{
		Action:    "service_deleted",
		ServiceID: serviceID,
	})
	return nil
}

// CreateRider создает курьера: AVAILABLE, трекинг выключен
func (l *Lifecycle) CreateRider(ctx context.Context, username, password, name string) (domain.Rider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rider := domain.Rider{
		ID:               utils.NewUUID(),
		Username:         username,
		Password:         password,
		Name:             name,
		Status:           model.RiderStatusAvailable,
		LastStatusChange: time.Now().UTC(),
		IsTracking:       false,
	}

	l.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
		return append(riders, rider), true
	})

	l.log.Info(logger.Entry{
		Action:  "rider_created",
		Message: name,
		Additional: map[string]any{
			"rider_id": rider.ID,
			"username": username,
		},
	})
	return rider, nil
}

// DeleteRider удаляет курьера
func (l *Lifecycle) DeleteRider(ctx context.Context, riderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := false
	l.store.UpdateRiders(func(riders []domain.Rider) ([]domain.Rider, bool) {
		next := riders[:0]
		for _, r := range riders {
			if r.ID == riderID {
				found = true
				continue
			}
			next = append(next, r)
		}
		return next, found
	})

	if !found {
		return domain.ErrRiderNotFound
	}

	l.log.Info(logger.Entry{
		Action: "rider_deleted",
		Additional: map[string]any{
			"rider_id": riderID,
		},
	})
	return nil
}

// CreateCustomer создает клиента. Клиент неизменяем после создания.
func (l *Lifecycle) CreateCustomer(ctx context.Context, name, phone, address string) (domain.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	customer := domain.Customer{
		ID:      utils.NewUUID(),
		Name:    name,
		Phone:   phone,
		Address: address,
	}

	l.store.UpdateCustomers(func(customers []domain.Customer) ([]domain.Customer, bool) {
		return append(customers, customer), true
	})

	l.log.Info(logger.Entry{
		Action:  "customer_created",
		Message: name,
		Additional: map[string]any{
			"customer_id": customer.ID,
		},
	})
	return customer, nil
}

// DeleteCustomer удаляет клиента
func (l *Lifecycle) DeleteCustomer(ctx context.Context, customerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	found := false
	l.store.UpdateCustomers(func(customers []domain.Customer) ([]domain.Customer, bool) {
		next := customers[:0]
		for _, c := range customers {
			if c.ID == customerID {
				found = true
				continue
			}
			next = append(next, c)
		}
		return next, found
	})

	if !found {
		return domain.ErrCustomerNotFound
	}

	l.log.Info(logger.Entry{
		Action: "customer_deleted",
		Additional: map[string]any{
			"customer_id": customerID,
		},
	})
	return nil
}

func (l *Lifecycle) publishService(ctx context.Context, eventType string, svc domain.Service) {
	if err := l.events.PublishServiceEvent(ctx, eventType, svc); err != nil {
		l.log.Error(logger.Entry{
			Action:    "service_event_publish_failed",
			Message:   err.Error(),
			ServiceID: svc.ID,
			Error:     &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"event_type": eventType,
			},
		})
		// Не фатальная ошибка: переход состояния авторитативен
	}
}
