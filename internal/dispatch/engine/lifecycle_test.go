package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/store"
	"github.com/markblanca/quicklink-delivery/internal/model"
)

func newLifecycleUnderTest() (*Lifecycle, *store.Store, *fakePublisher) {
	st := store.New()
	pub := &fakePublisher{}
	return NewLifecycle(st, pub, newTestLogger()), st, pub
}

func TestCreateService(t *testing.T) {
	t.Parallel()

	t.Run("without rider is pending", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()

		svc, err := lc.CreateService(context.Background(), domain.ServiceInput{
			CustomerName: "Maria",
			Activity:     "Entrega de documentos",
			Value:        8000,
			PaymentType:  model.PaymentCash,
		}, "")
		if err != nil {
			t.Fatalf("CreateService() error = %v", err)
		}
		if svc.Status != model.ServiceStatusPending {
			t.Errorf("status = %q, want %q", svc.Status, model.ServiceStatusPending)
		}
		if svc.ID == "" {
			t.Error("service ID is empty")
		}
		if svc.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
		if got := len(st.Services()); got != 1 {
			t.Errorf("store has %d services, want 1", got)
		}
	})

	t.Run("with rider is assigned and rider becomes busy", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		seedRider(st, "r1", model.RiderStatusAvailable)

		svc, err := lc.CreateService(context.Background(), domain.ServiceInput{
			CustomerName: "Pedro",
			Activity:     "Entrega",
		}, "r1")
		if err != nil {
			t.Fatalf("CreateService() error = %v", err)
		}
		if svc.Status != model.ServiceStatusAssigned {
			t.Errorf("status = %q, want %q", svc.Status, model.ServiceStatusAssigned)
		}
		if svc.AssignedToRiderID != "r1" {
			t.Errorf("assigned rider = %q, want r1", svc.AssignedToRiderID)
		}

		rider, _ := findRider(st, "r1")
		if rider.Status != model.RiderStatusBusy {
			t.Errorf("rider status = %q, want %q", rider.Status, model.RiderStatusBusy)
		}
	})

	t.Run("new services are prepended", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()

		first, _ := lc.CreateService(context.Background(), domain.ServiceInput{Activity: "a"}, "")
		second, _ := lc.CreateService(context.Background(), domain.ServiceInput{Activity: "b"}, "")

		services := st.Services()
		if services[0].ID != second.ID || services[1].ID != first.ID {
			t.Errorf("service order = [%s %s], want newest first", services[0].ID, services[1].ID)
		}
	})
}

func TestAssignService(t *testing.T) {
	t.Parallel()

	t.Run("pending to assigned", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		seedRider(st, "r1", model.RiderStatusAvailable)
		st.ReplaceServices([]domain.Service{pendingService("s1")})

		if err := lc.AssignService(context.Background(), "s1", "r1"); err != nil {
			t.Fatalf("AssignService() error = %v", err)
		}

		svc, _ := findService(st, "s1")
		if svc.Status != model.ServiceStatusAssigned {
			t.Errorf("service status = %q, want %q", svc.Status, model.ServiceStatusAssigned)
		}
		if svc.AssignedToRiderID != "r1" {
			t.Errorf("assigned rider = %q, want r1", svc.AssignedToRiderID)
		}
		rider, _ := findRider(st, "r1")
		if rider.Status != model.RiderStatusBusy {
			t.Errorf("rider status = %q, want %q", rider.Status, model.RiderStatusBusy)
		}
	})

	t.Run("assign from assigned is rejected", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		svc := pendingService("s1")
		svc.Status = model.ServiceStatusAssigned
		svc.AssignedToRiderID = "r1"
		st.ReplaceServices([]domain.Service{svc})

		err := lc.AssignService(context.Background(), "s1", "r2")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("AssignService() error = %v, want ErrInvalidTransition", err)
		}

		// Назначение не перезаписано
		got, _ := findService(st, "s1")
		if got.AssignedToRiderID != "r1" {
			t.Errorf("assigned rider = %q, want r1", got.AssignedToRiderID)
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		t.Parallel()
		lc, _, _ := newLifecycleUnderTest()

		err := lc.AssignService(context.Background(), "missing", "r1")
		if !errors.Is(err, domain.ErrServiceNotFound) {
			t.Errorf("AssignService() error = %v, want ErrServiceNotFound", err)
		}
	})
}

func TestStartService(t *testing.T) {
	t.Parallel()

	t.Run("assigned to in progress", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		svc := pendingService("s1")
		svc.Status = model.ServiceStatusAssigned
		svc.AssignedToRiderID = "r1"
		st.ReplaceServices([]domain.Service{svc})

		if err := lc.StartService(context.Background(), "s1"); err != nil {
			t.Fatalf("StartService() error = %v", err)
		}

		got, _ := findService(st, "s1")
		if got.Status != model.ServiceStatusInProgress {
			t.Errorf("status = %q, want %q", got.Status, model.ServiceStatusInProgress)
		}
		if got.StartedAt == nil {
			t.Error("StartedAt not set")
		}
	})

	t.Run("start from pending is rejected", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		st.ReplaceServices([]domain.Service{pendingService("s1")})

		err := lc.StartService(context.Background(), "s1")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("StartService() error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestCompleteService(t *testing.T) {
	t.Parallel()

	t.Run("from in progress frees the rider", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		seedRider(st, "r1", model.RiderStatusBusy)
		svc := pendingService("s1")
		svc.Status = model.ServiceStatusInProgress
		svc.AssignedToRiderID = "r1"
		st.ReplaceServices([]domain.Service{svc})

		if err := lc.CompleteService(context.Background(), "s1", "r1"); err != nil {
			t.Fatalf("CompleteService() error = %v", err)
		}

		got, _ := findService(st, "s1")
		if got.Status != model.ServiceStatusCompleted {
			t.Errorf("status = %q, want %q", got.Status, model.ServiceStatusCompleted)
		}
		if got.CompletedAt == nil {
			t.Error("CompletedAt not set")
		}

		rider, _ := findRider(st, "r1")
		if rider.Status != model.RiderStatusAvailable {
			t.Errorf("rider status = %q, want %q", rider.Status, model.RiderStatusAvailable)
		}
		if rider.LastCompletedAt == nil {
			t.Error("rider LastCompletedAt not set")
		}
	})

	t.Run("from assigned skips start", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		seedRider(st, "r1", model.RiderStatusBusy)
		svc := pendingService("s1")
		svc.Status = model.ServiceStatusAssigned
		svc.AssignedToRiderID = "r1"
		st.ReplaceServices([]domain.Service{svc})

		if err := lc.CompleteService(context.Background(), "s1", "r1"); err != nil {
			t.Fatalf("CompleteService() error = %v", err)
		}

		got, _ := findService(st, "s1")
		if got.Status != model.ServiceStatusCompleted {
			t.Errorf("status = %q, want %q", got.Status, model.ServiceStatusCompleted)
		}
		// Сервис завершён без явного старта
		if got.StartedAt != nil {
			t.Error("StartedAt set on skip-start completion")
		}
	})

	t.Run("rider stays busy with another active service", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		seedRider(st, "r1", model.RiderStatusBusy)
		first := pendingService("s1")
		first.Status = model.ServiceStatusInProgress
		first.AssignedToRiderID = "r1"
		second := pendingService("s2")
		second.Status = model.ServiceStatusAssigned
		second.AssignedToRiderID = "r1"
		st.ReplaceServices([]domain.Service{first, second})

		if err := lc.CompleteService(context.Background(), "s1", "r1"); err != nil {
			t.Fatalf("CompleteService() error = %v", err)
		}

		rider, _ := findRider(st, "r1")
		if rider.Status != model.RiderStatusBusy {
			t.Errorf("rider status = %q, want %q (second assignment still active)",
				rider.Status, model.RiderStatusBusy)
		}
	})

	t.Run("complete from completed is rejected", func(t *testing.T) {
		t.Parallel()
		lc, st, _ := newLifecycleUnderTest()
		svc := pendingService("s1")
		svc.Status = model.ServiceStatusCompleted
		st.ReplaceServices([]domain.Service{svc})

		err := lc.CompleteService(context.Background(), "s1", "r1")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("CompleteService() error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestDeleteService(t *testing.T) {
	t.Parallel()

	lc, st, _ := newLifecycleUnderTest()
	seedRider(st, "r1", model.RiderStatusBusy)
	svc := pendingService("s1")
	svc.Status = model.ServiceStatusAssigned
	svc.AssignedToRiderID = "r1"
	st.ReplaceServices([]domain.Service{svc})

	if err := lc.DeleteService(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteService() error = %v", err)
	}
	if got := len(st.Services()); got != 0 {
		t.Errorf("store has %d services, want 0", got)
	}

	// Удаление активного назначения освобождает курьера
	rider, _ := findRider(st, "r1")
	if rider.Status != model.RiderStatusAvailable {
		t.Errorf("rider status = %q, want %q", rider.Status, model.RiderStatusAvailable)
	}

	if err := lc.DeleteService(context.Background(), "s1"); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Errorf("repeat DeleteService() error = %v, want ErrServiceNotFound", err)
	}
}

func TestRiderAndCustomerCRUD(t *testing.T) {
	t.Parallel()

	lc, st, _ := newLifecycleUnderTest()

	rider, err := lc.CreateRider(context.Background(), "carlos", "secret", "Carlos")
	if err != nil {
		t.Fatalf("CreateRider() error = %v", err)
	}
	if rider.Status != model.RiderStatusAvailable {
		t.Errorf("new rider status = %q, want %q", rider.Status, model.RiderStatusAvailable)
	}
	if rider.IsTracking {
		t.Error("new rider has tracking enabled")
	}

	customer, err := lc.CreateCustomer(context.Background(), "Tienda Sol", "3000000000", "Calle 1")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	if got := len(st.Customers()); got != 1 {
		t.Errorf("store has %d customers, want 1", got)
	}

	if err := lc.DeleteCustomer(context.Background(), customer.ID); err != nil {
		t.Fatalf("DeleteCustomer() error = %v", err)
	}
	if err := lc.DeleteCustomer(context.Background(), customer.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("repeat DeleteCustomer() error = %v, want ErrCustomerNotFound", err)
	}

	if err := lc.DeleteRider(context.Background(), rider.ID); err != nil {
		t.Fatalf("DeleteRider() error = %v", err)
	}
	if err := lc.DeleteRider(context.Background(), rider.ID); !errors.Is(err, domain.ErrRiderNotFound) {
		t.Errorf("repeat DeleteRider() error = %v, want ErrRiderNotFound", err)
	}
}
