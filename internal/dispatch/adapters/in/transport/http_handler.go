package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
	"github.com/markblanca/quicklink-delivery/internal/dispatch/engine"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type Handler struct {
	auth       *engine.Authenticator
	sessions   *engine.SessionManager
	lifecycle  *engine.Lifecycle
	tracking   *engine.TrackingCoordinator
	reconciler *engine.Reconciler
	log        *logger.Logger
}

func NewHandler(
	auth *engine.Authenticator,
	sessions *engine.SessionManager,
	lifecycle *engine.Lifecycle,
	tracking *engine.TrackingCoordinator,
	reconciler *engine.Reconciler,
	log *logger.Logger,
) *Handler {
	return &Handler{
		auth:       auth,
		sessions:   sessions,
		lifecycle:  lifecycle,
		tracking:   tracking,
		reconciler: reconciler,
		log:        log,
	}
}

// errorStatus отображает доменные ошибки на HTTP-статусы
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrServiceNotFound),
		errors.Is(err, domain.ErrRiderNotFound),
		errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Health — liveness probe
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Login — POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	token := h.sessions.Establish(r.Context(), sess)

	respondJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  sess,
	})
}

// Logout — POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// CurrentSession — GET /auth/session
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Current()
	if sess == nil {
		respondError(w, http.StatusUnauthorized, domain.ErrNoSession.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// GetState — GET /state: полный снапшот трёх коллекций
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reconciler.Export())
}

// ImportState — POST /state/import: идемпотентное аддитивное слияние
// снапшота другого устройства
func (h *Handler) ImportState(w http.ResponseWriter, r *http.Request) {
	var snap domain.Snapshot
	if err := readJSON(r, &snap); err != nil {
		h.log.Warn(logger.Entry{
			Action:  "import_invalid_request",
			Message: err.Error(),
		})
		respondError(w, http.StatusBadRequest, "invalid snapshot body")
		return
	}

	h.reconciler.Import(r.Context(), snap)
	respondJSON(w, http.StatusOK, h.reconciler.Export())
}

// PurgeState — POST /state/purge: удаление завершённых сервисов старше
// горизонта хранения
func (h *Handler) PurgeState(w http.ResponseWriter, r *http.Request) {
	removed := h.reconciler.PurgeOldServices(time.Now().UTC())
	respondJSON(w, http.StatusOK, PurgeResponse{Removed: removed})
}

// CreateService — POST /services
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerName == "" || req.Activity == "" {
		respondError(w, http.StatusBadRequest, "customerName and activity are required")
		return
	}

	svc, err := h.lifecycle.CreateService(r.Context(), req.ServiceInput, req.RiderID)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, svc)
}

// DeleteService — DELETE /services/{service_id}
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service_id")
	if err := h.lifecycle.DeleteService(r.Context(), serviceID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignService — POST /services/{service_id}/assign: администратор
// назначает сервис курьеру
func (h *Handler) AssignService(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service_id")

	var req AssignServiceRequest
	if err := readJSON(r, &req); err != nil || req.RiderID == "" {
		respondError(w, http.StatusBadRequest, "riderId is required")
		return
	}

	if err := h.lifecycle.AssignService(r.Context(), serviceID, req.RiderID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptService — POST /services/{service_id}/accept: курьер забирает
// свободный сервис из облака себе
func (h *Handler) AcceptService(w http.ResponseWriter, r *http.Request) {
	riderID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serviceID := r.PathValue("service_id")

	if err := h.lifecycle.AssignService(r.Context(), serviceID, riderID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartService — POST /services/{service_id}/start
func (h *Handler) StartService(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service_id")
	if err := h.lifecycle.StartService(r.Context(), serviceID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteService — POST /services/{service_id}/complete
func (h *Handler) CompleteService(w http.ResponseWriter, r *http.Request) {
	riderID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}
	serviceID := r.PathValue("service_id")

	if err := h.lifecycle.CompleteService(r.Context(), serviceID, riderID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRider — POST /riders
func (h *Handler) CreateRider(w http.ResponseWriter, r *http.Request) {
	var req CreateRiderRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "username, password and name are required")
		return
	}

	rider, err := h.lifecycle.CreateRider(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rider)
}

// DeleteRider — DELETE /riders/{rider_id}
func (h *Handler) DeleteRider(w http.ResponseWriter, r *http.Request) {
	riderID := r.PathValue("rider_id")
	if err := h.lifecycle.DeleteRider(r.Context(), riderID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCustomer — POST /customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "name and phone are required")
		return
	}

	customer, err := h.lifecycle.CreateCustomer(r.Context(), req.Name, req.Phone, req.Address)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// DeleteCustomer — DELETE /customers/{customer_id}
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customer_id")
	if err := h.lifecycle.DeleteCustomer(r.Context(), customerID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTracking — POST /tracking: курьер включает или выключает свой трекинг
func (h *Handler) SetTracking(w http.ResponseWriter, r *http.Request) {
	riderID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req SetTrackingRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tracking.SetTracking(r.Context(), riderID, req.Enabled); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
