// Package wsnotify доставляет пользовательские уведомления на устройства
// курьеров через WebSocket-хаб. Разрешение на показ запрашивает само
// устройство, поэтому RequestPermission здесь всегда успешен.
package wsnotify

import (
	"context"

	out "github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
	"github.com/markblanca/quicklink-delivery/internal/model"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
	"github.com/markblanca/quicklink-delivery/internal/shared/ws"
)

type wsNotifier struct {
	hub *ws.Hub
	log *logger.Logger
}

func NewNotifier(hub *ws.Hub, log *logger.Logger) out.Notifier {
	return &wsNotifier{hub: hub, log: log}
}

func (n *wsNotifier) RequestPermission(ctx context.Context) error {
	return nil
}

// Emit шлёт notification-сообщение всем DELIVERY-устройствам. Отказ
// доставки не роняет вызвавшую операцию.
func (n *wsNotifier) Emit(ctx context.Context, title, body string) error {
	msg := map[string]any{
		"type": "notification",
		"data": map[string]string{
			"title": title,
			"body":  body,
		},
	}
	if err := n.hub.SendToRoleJSON(model.RoleDelivery, msg); err != nil {
		n.log.Error(logger.Entry{
			Action:  "notification_emit_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return err
	}
	return nil
}
