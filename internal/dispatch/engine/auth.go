package engine

import (
	"context"
	"sync"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

// adminDisplayName — имя администратора в исходной системе
const adminDisplayName = "Administrador"

// Authenticator разрешает пару логин/пароль в сессию с ролью.
// Сравнение — непрозрачные строки, без хэширования: это контракт
// аутентификации этого ядра (см. DESIGN.md), менять его — менять контракт.
type Authenticator struct {
	store *store.Store
	admin config.AdminConfig
	log   *logger.Logger
}

func NewAuthenticator(st *store.Store, admin config.AdminConfig, log *logger.Logger) *Authenticator {
	return &Authenticator{store: st, admin: admin, log: log}
}

// Authenticate: зарезервированная админская пара даёт ADMIN-сессию с
// фиксированной синтетической идентичностью; иначе точное совпадение
// username+password по курьерам даёт DELIVERY-сессию.
func (a *Authenticator) Authenticate(username, password string) (*domain.Session, error) {
	if username == a.admin.Username && password == a.admin.Password {
		return &domain.Session{
			ID:       "admin",
			Username: a.admin.Username,
			Role:     model.RoleAdmin,
			Name:     adminDisplayName,
		}, nil
	}

	for _, r := range a.store.Riders() {
		if r.Username == username && r.Password == password {
			return &domain.Session{
				ID:       r.ID,
				Username: r.Username,
				Role:     model.RoleDelivery,
				Name:     r.Name,
			}, nil
		}
	}

	a.log.Warn(logger.Entry{
		Action:  "auth_rejected",
		Message: "invalid credentials",
		Additional: map[string]any{
			"username": username,
		},
	})
	return nil, domain.ErrInvalidCredentials
}

// SessionManager — процессный владелец текущей сессии с явным жизненным
// циклом: Restore при старте, Establish при входе, Clear при выходе.
// Сессия персистится как capability-токен в единственном слоте.
type SessionManager struct {
	mu      sync.Mutex
	current *domain.Session

	tokens *auth.JWTService
	slot   out.SessionStore
	log    *logger.Logger

	// OnEstablish/OnClear — хуки композиции: пересчёт статуса курьера и
	// синхронизация трекинга при входе, снятие подписки при выходе
	OnEstablish func(ctx context.Context, sess *domain.Session)
	OnClear     func(sess *domain.Session)
}

func NewSessionManager(tokens *auth.JWTService, slot out.SessionStore, log *logger.Logger) *SessionManager {
	return &SessionManager{tokens: tokens, slot: slot, log: log}
}

// Current возвращает активную сессию или nil
func (m *SessionManager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	sess := *m.current
	return &sess
}

// Establish делает сессию текущей, сохраняет её токен в слот и возвращает
// его вызывающему. Ошибка сохранения best-effort: вход не блокируется.
func (m *SessionManager) Establish(ctx context.Context, sess *domain.Session) string {
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	token, err := m.tokens.GenerateToken(sess.ID, sess.Username, sess.Role, sess.Name)
	if err == nil {
		err = m.slot.Save(token)
	}
	if err != nil {
		m.log.Error(logger.Entry{
			Action:  "session_persist_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		// Не фатальная ошибка
	}

	m.log.Info(logger.Entry{
		Action:  "session_established",
		Message: sess.Username,
		Additional: map[string]any{
			"user_id": sess.ID,
			"role":    sess.Role,
		},
	})

	if m.OnEstablish != nil {
		m.OnEstablish(ctx, sess)
	}
	return token
}

// Restore читает слот при старте и восстанавливает сессию, если токен ещё
// валиден. Пустой или протухший слот — не ошибка.
func (m *SessionManager) Restore(ctx context.Context) {
	token, err := m.slot.Load()
	if err != nil {
		m.log.Error(logger.Entry{
			Action:  "session_slot_read_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}
	if token == "" {
		return
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		m.log.Warn(logger.Entry{
			Action:  "session_token_invalid",
			Message: err.Error(),
		})
		_ = m.slot.Clear()
		return
	}

	sess := &domain.Session{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Name:     claims.Name,
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.log.Info(logger.Entry{
		Action:  "session_restored",
		Message: sess.Username,
		Additional: map[string]any{
			"user_id": sess.ID,
			"role":    sess.Role,
		},
	})

	if m.OnEstablish != nil {
		m.OnEstablish(ctx, sess)
	}
}

// Clear завершает сессию: хук (снятие подписки трекинга) выполняется до
// очистки слота
func (m *SessionManager) Clear() {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if sess != nil && m.OnClear != nil {
		m.OnClear(sess)
	}

	if err := m.slot.Clear(); err != nil {
		m.log.Error(logger.Entry{
			Action:  "session_slot_clear_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	if sess != nil {
		m.log.Info(logger.Entry{
			Action:  "session_cleared",
			Message: sess.Username,
		})
	}
}
