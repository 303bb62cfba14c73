package out

import "context"

// Notifier — коллаборатор пользовательских уведомлений. Best-effort: обязан
// переживать недоступность или отказ в разрешении.
type Notifier interface {
	RequestPermission(ctx context.Context) error
	Emit(ctx context.Context, title, body string) error
}
