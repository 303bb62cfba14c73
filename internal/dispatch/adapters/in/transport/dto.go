package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string          `json:"token"`
	User  *domain.Session `json:"user"`
}

type CreateServiceRequest struct {
	domain.ServiceInput
	// RiderID — опциональное немедленное назначение при создании
	RiderID string `json:"riderId,omitempty"`
}

type AssignServiceRequest struct {
	RiderID string `json:"riderId"`
}

type CreateRiderRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type SetTrackingRequest struct {
	Enabled bool `json:"enabled"`
}

type PurgeResponse struct {
	Removed int `json:"removed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func readJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
