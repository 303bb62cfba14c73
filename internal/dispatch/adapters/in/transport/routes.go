package transport

import (
	"net/http"

	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/auth"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/ws"
)

// Routes регистрирует все маршруты движка. Роли: админ управляет сервисами,
// курьерами и клиентами; курьер забирает, стартует и завершает свои сервисы
// и управляет своим трекингом; снапшоты доступны обеим ролям.
func Routes(router *http.ServeMux, h *Handler, hub *ws.Hub, jwtService *auth.JWTService, log *logger.Logger) {
	authed := JWTMiddleware(jwtService, log)
	adminOnly := RequireRole(model.RoleAdmin, log)
	deliveryOnly := RequireRole(model.RoleDelivery, log)

	router.HandleFunc("GET /health", h.Health)
	router.HandleFunc("POST /auth/login", h.Login)

	router.Handle("POST /auth/logout", authed(http.HandlerFunc(h.Logout)))
	router.Handle("GET /auth/session", authed(http.HandlerFunc(h.CurrentSession)))

	router.Handle("GET /state", authed(http.HandlerFunc(h.GetState)))
	router.Handle("POST /state/import", authed(http.HandlerFunc(h.ImportState)))
	router.Handle("POST /state/purge", authed(adminOnly(http.HandlerFunc(h.PurgeState))))

	router.Handle("POST /services", authed(adminOnly(http.HandlerFunc(h.CreateService))))
	router.Handle("DELETE /services/{service_id}", authed(adminOnly(http.HandlerFunc(h.DeleteService))))
	router.Handle("POST /services/{service_id}/assign", authed(adminOnly(http.HandlerFunc(h.AssignService))))
	router.Handle("POST /services/{service_id}/accept", authed(deliveryOnly(http.HandlerFunc(h.AcceptService))))
	router.Handle("POST /services/{service_id}/start", authed(deliveryOnly(http.HandlerFunc(h.StartService))))
	router.Handle("POST /services/{service_id}/complete", authed(deliveryOnly(http.HandlerFunc(h.CompleteService))))

	router.Handle("POST /riders", authed(adminOnly(http.HandlerFunc(h.CreateRider))))
	router.Handle("DELETE /riders/{rider_id}", authed(adminOnly(http.HandlerFunc(h.DeleteRider))))

	router.Handle("POST /customers", authed(adminOnly(http.HandlerFunc(h.CreateCustomer))))
	router.Handle("DELETE /customers/{customer_id}", authed(adminOnly(http.HandlerFunc(h.DeleteCustomer))))

	router.Handle("POST /tracking", authed(deliveryOnly(http.HandlerFunc(h.SetTracking))))

	// Синхронизационный канал: токен проверяется внутри рукопожатия хаба
	router.HandleFunc("GET /ws", hub.ServeWS)

	log.Info(logger.Entry{
		Action:  "routes_registered",
		Message: "dispatch routes registered",
	})
}
