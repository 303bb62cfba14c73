package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

func newTestLogger() *logger.Logger {
	return logger.NewLoggerWithWriters("test", io.Discard, io.Discard)
}

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60})
}

// fakePublisher собирает опубликованные события
type fakePublisher struct {
	mu            sync.Mutex
	serviceEvents []string
	riderEvents   []string
}

func (p *fakePublisher) PublishServiceEvent(ctx context.Context, eventType string, svc domain.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serviceEvents = append(p.serviceEvents, eventType)
	return nil
}

func (p *fakePublisher) PublishRiderStatusChanged(ctx context.Context, riderID, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.riderEvents = append(p.riderEvents, riderID+":"+status)
	return nil
}

func (p *fakePublisher) riderEventCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.riderEvents)
}

// fakeNotifier собирает отправленные уведомления
type fakeNotifier struct {
	mu    sync.Mutex
	emits []string
}

func (n *fakeNotifier) RequestPermission(ctx context.Context) error { return nil }

func (n *fakeNotifier) Emit(ctx context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emits = append(n.emits, body)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emits)
}

// fakeSlot — слот сессии в памяти
type fakeSlot struct {
	mu    sync.Mutex
	token string
}

func (s *fakeSlot) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *fakeSlot) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeSlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// fakePositions фиксирует подписки и отмены
type fakePositions struct {
	mu          sync.Mutex
	watchCount  int
	cancelCount int
	watchErr    error
	onUpdate    func(domain.Location)
}

func (p *fakePositions) Watch(ctx context.Context, riderID string, opts out.WatchOptions,
	onUpdate func(domain.Location), onErr func(error)) (out.CancelFunc, error) {

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	p.watchCount++
	p.onUpdate = onUpdate
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cancelCount++
	}, nil
}

func (p *fakePositions) counts() (watches, cancels int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchCount, p.cancelCount
}

func (p *fakePositions) pushFix(loc domain.Location) {
	p.mu.Lock()
	fn := p.onUpdate
	p.mu.Unlock()
	if fn != nil {
		fn(loc)
	}
}

// seedRider кладет курьера в Store без нотификаций
func seedRider(st *store.Store, id, status string) {
	st.Seed(domain.Snapshot{
		Riders: []domain.Rider{{
			ID:               id,
			Username:         id,
			Password:         "pw-" + id,
			Name:             "Rider " + id,
			Status:           status,
			LastStatusChange: time.Now().UTC().Add(-time.Hour),
		}},
	})
}

func findService(st *store.Store, id string) (domain.Service, bool) {
	for _, s := range st.Services() {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Service{}, false
}

func findRider(st *store.Store, id string) (domain.Rider, bool) {
	for _, r := range st.Riders() {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Rider{}, false
}

func pendingService(id string) domain.Service {
	return domain.Service{
		ID:           id,
		CustomerName: "Cliente " + id,
		Activity:     "Entrega " + id,
		Value:        10000,
		PaymentType:  model.PaymentCash,
		Status:       model.ServiceStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}
