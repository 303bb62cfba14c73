package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// Тексты уведомления исходной системы
const (
	notificationTitle = "¡Nuevo Servicio!"
	notificationBody  = "Hay %d servicios disponibles en la nube."
)

// NotificationTrigger следит за ростом числа PENDING сервисов и шлёт одно
// уведомление на каждый рост. Единственное состояние — последний
// наблюдавшийся счётчик; он обновляется в обе стороны, поэтому падение
// сбрасывает базовую линию и колебание обратно к уже виденному значению
// алертит заново только при превышении.
type NotificationTrigger struct {
	notifier out.Notifier
	sessions *SessionManager
	log      *logger.Logger

	mu          sync.Mutex
	lastPending int
}

func NewNotificationTrigger(notifier out.Notifier, sessions *SessionManager, log *logger.Logger) *NotificationTrigger {
	return &NotificationTrigger{notifier: notifier, sessions: sessions, log: log}
}

// Seed устанавливает базовый счётчик из стартового среза ДО первого живого
// сравнения: инициализация движка не должна алертить.
func (t *NotificationTrigger) Seed(snap domain.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPending = countPending(snap.Services)
}

// Observe — наблюдатель Store. Сравнение выполняется только когда активна
// DELIVERY-сессия: администратору о новой работе не алертим.
func (t *NotificationTrigger) Observe(col store.Collection, snap domain.Snapshot) {
	if col != store.Services {
		return
	}
	sess := t.sessions.Current()
	if sess == nil || sess.Role != model.RoleDelivery {
		return
	}

	t.mu.Lock()
	pending := countPending(snap.Services)
	fire := pending > t.lastPending
	t.lastPending = pending
	t.mu.Unlock()

	if !fire {
		return
	}

	body := fmt.Sprintf(notificationBody, pending)
	if err := t.notifier.Emit(context.Background(), notificationTitle, body); err != nil {
		t.log.Error(logger.Entry{
			Action:  "notification_emit_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не фатальная ошибка: уведомления best-effort
		return
	}

	t.log.Info(logger.Entry{
		Action:  "new_work_notified",
		Message: body,
		Additional: map[string]any{
			"pending_count": pending,
		},
	})
}

func countPending(services []domain.Service) int {
	n := 0
	for _, s := range services {
		if s.Status == model.ServiceStatusPending {
			n++
		}
	}
	return n
}
