package out

import (
	"context"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
)

// StateRepository — коллаборатор персистентности. Сохранение — всегда вся
// коллекция целиком; ошибка логируется и не доходит до вызывающего
// state-machine операции (in-memory состояние авторитативно).
type StateRepository interface {
	// LoadAll читает все три коллекции при старте
	LoadAll(ctx context.Context) (domain.Snapshot, error)

	// SaveRiders заменяет сохранённую коллекцию курьеров
	SaveRiders(ctx context.Context, riders []domain.Rider) error

	// SaveServices заменяет сохранённую коллекцию сервисов
	SaveServices(ctx context.Context, services []domain.Service) error

	// SaveCustomers заменяет сохранённую коллекцию клиентов
	SaveCustomers(ctx context.Context, customers []domain.Customer) error
}
