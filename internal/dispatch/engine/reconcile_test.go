package engine

import (
	"context"
	"testing"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
)

// newTestReconciler собирает Reconciler с живыми коллабораторами на фейках
func newTestReconciler(st *store.Store) *Reconciler {
	log := newTestLogger()
	sessions := NewSessionManager(newTestJWT(), &fakeSlot{}, log)
	lifecycle := NewLifecycle(st, &fakePublisher{}, log)
	return NewReconciler(st, sessions, lifecycle, log)
}

func TestMergeByID(t *testing.T) {
	t.Parallel()

	local := []domain.Customer{
		{ID: "a", Name: "local-a"},
		{ID: "b", Name: "local-b"},
	}
	incoming := []domain.Customer{
		{ID: "b", Name: "incoming-b"},
		{ID: "c", Name: "incoming-c"},
	}

	merged := mergeByID(local, incoming, func(c domain.Customer) string { return c.ID })

	if len(merged) != 3 {
		t.Fatalf("merged length = %d, want 3", len(merged))
	}
	// Локальные записи первыми, в исходном порядке, и локальная версия
	// известного id побеждает
	if merged[0].ID != "a" || merged[1].ID != "b" || merged[2].ID != "c" {
		t.Errorf("merged order = [%s %s %s], want [a b c]", merged[0].ID, merged[1].ID, merged[2].ID)
	}
	if merged[1].Name != "local-b" {
		t.Errorf("conflicting id resolved to %q, want local-b", merged[1].Name)
	}
}

func TestReconcilerImportIdempotent(t *testing.T) {
	t.Parallel()

	st := store.New()
	st.Seed(domain.Snapshot{
		Services: []domain.Service{pendingService("s1")},
	})
	r := newTestReconciler(st)

	incoming := domain.Snapshot{
		Riders:    []domain.Rider{{ID: "r1", Name: "Nuevo"}},
		Services:  []domain.Service{pendingService("s1"), pendingService("s2")},
		Customers: []domain.Customer{{ID: "c1", Name: "Cliente"}},
	}

	r.Import(context.Background(), incoming)
	first := st.Snapshot()

	if len(first.Services) != 2 || len(first.Riders) != 1 || len(first.Customers) != 1 {
		t.Fatalf("after import: %d services, %d riders, %d customers; want 2, 1, 1",
			len(first.Services), len(first.Riders), len(first.Customers))
	}

	// Повторный импорт того же среза ничего не меняет
	notified := 0
	st.Subscribe(func(col store.Collection, snap domain.Snapshot) { notified++ })
	r.Import(context.Background(), incoming)

	second := st.Snapshot()
	if len(second.Services) != 2 || len(second.Riders) != 1 || len(second.Customers) != 1 {
		t.Errorf("repeat import changed state: %d services, %d riders, %d customers",
			len(second.Services), len(second.Riders), len(second.Customers))
	}
	if notified != 0 {
		t.Errorf("repeat import produced %d notifications, want 0", notified)
	}
}

func TestReconcilerImportKeepsLocalVersion(t *testing.T) {
	t.Parallel()

	st := store.New()
	local := pendingService("s1")
	local.Status = model.ServiceStatusCompleted
	st.Seed(domain.Snapshot{Services: []domain.Service{local}})
	r := newTestReconciler(st)

	// Внешняя версия того же сервиса отстаёт; локальная не должна
	// перезаписаться
	stale := pendingService("s1")
	r.Import(context.Background(), domain.Snapshot{Services: []domain.Service{stale}})

	got, _ := findService(st, "s1")
	if got.Status != model.ServiceStatusCompleted {
		t.Errorf("local service overwritten: status = %q, want %q",
			got.Status, model.ServiceStatusCompleted)
	}
}

func TestReconcilerImportRefreshesSessionRider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New()
	seedRider(st, "r1", model.RiderStatusAvailable)

	log := newTestLogger()
	sessions := NewSessionManager(newTestJWT(), &fakeSlot{}, log)
	lifecycle := NewLifecycle(st, &fakePublisher{}, log)
	r := NewReconciler(st, sessions, lifecycle, log)

	sessions.Establish(ctx, &domain.Session{
		ID:       "r1",
		Username: "r1",
		Role:     model.RoleDelivery,
		Name:     "Rider r1",
	})

	// Чужое устройство назначило сервис на r1; слияние обязано перевести
	// курьера активной сессии в BUSY
	assigned := pendingService("s1")
	assigned.Status = model.ServiceStatusAssigned
	assigned.AssignedToRiderID = "r1"
	r.Import(ctx, domain.Snapshot{Services: []domain.Service{assigned}})

	got, ok := findRider(st, "r1")
	if !ok {
		t.Fatal("rider r1 missing from store")
	}
	if got.Status != model.RiderStatusBusy {
		t.Errorf("rider status after import = %q, want %q", got.Status, model.RiderStatusBusy)
	}
}

func TestReconcilerImportWithoutSessionSkipsRefresh(t *testing.T) {
	t.Parallel()

	st := store.New()
	seedRider(st, "r1", model.RiderStatusAvailable)
	r := newTestReconciler(st)

	assigned := pendingService("s1")
	assigned.Status = model.ServiceStatusAssigned
	assigned.AssignedToRiderID = "r1"
	r.Import(context.Background(), domain.Snapshot{Services: []domain.Service{assigned}})

	// Активной сессии нет: статусы курьеров не трогаются
	got, _ := findRider(st, "r1")
	if got.Status != model.RiderStatusAvailable {
		t.Errorf("rider status after import = %q, want %q", got.Status, model.RiderStatusAvailable)
	}
}

func TestPurgeCompleted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-RetentionHorizon - time.Hour)
	fresh := now.Add(-time.Hour)

	svc := func(id, status string, created time.Time) domain.Service {
		return domain.Service{ID: id, Status: status, CreatedAt: created}
	}

	tests := []struct {
		name     string
		services []domain.Service
		wantIDs  []string
	}{
		{
			name: "old completed removed",
			services: []domain.Service{
				svc("s1", model.ServiceStatusCompleted, old),
			},
			wantIDs: []string{},
		},
		{
			name: "fresh completed kept",
			services: []domain.Service{
				svc("s1", model.ServiceStatusCompleted, fresh),
			},
			wantIDs: []string{"s1"},
		},
		{
			name: "old active kept regardless of age",
			services: []domain.Service{
				svc("s1", model.ServiceStatusPending, old),
				svc("s2", model.ServiceStatusAssigned, old),
				svc("s3", model.ServiceStatusInProgress, old),
			},
			wantIDs: []string{"s1", "s2", "s3"},
		},
		{
			name: "exactly at horizon kept",
			services: []domain.Service{
				svc("s1", model.ServiceStatusCompleted, now.Add(-RetentionHorizon)),
			},
			wantIDs: []string{"s1"},
		},
		{
			name: "mixed",
			services: []domain.Service{
				svc("s1", model.ServiceStatusCompleted, old),
				svc("s2", model.ServiceStatusPending, fresh),
				svc("s3", model.ServiceStatusCompleted, fresh),
			},
			wantIDs: []string{"s2", "s3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kept := PurgeCompleted(tt.services, now, RetentionHorizon)

			gotIDs := make([]string, 0, len(kept))
			for _, s := range kept {
				gotIDs = append(gotIDs, s.ID)
			}
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("kept %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("kept %v, want %v", gotIDs, tt.wantIDs)
					break
				}
			}
		})
	}
}

func TestPurgeOldServices(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	st := store.New()
	old := pendingService("s1")
	old.Status = model.ServiceStatusCompleted
	old.CreatedAt = now.Add(-RetentionHorizon - time.Hour)
	fresh := pendingService("s2")
	st.Seed(domain.Snapshot{Services: []domain.Service{old, fresh}})

	r := newTestReconciler(st)

	if removed := r.PurgeOldServices(now); removed != 1 {
		t.Errorf("PurgeOldServices() = %d, want 1", removed)
	}
	if got := len(st.Services()); got != 1 {
		t.Errorf("store has %d services, want 1", got)
	}

	// Повторная чистка ничего не находит
	if removed := r.PurgeOldServices(now); removed != 0 {
		t.Errorf("repeat PurgeOldServices() = %d, want 0", removed)
	}
}
