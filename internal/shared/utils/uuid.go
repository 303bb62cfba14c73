package utils

import "github.com/google/uuid"

// NewUUID выдаёт UUID v4 — идентификаторы курьеров, сервисов, клиентов
// и корреляционные id запросов
func NewUUID() string {
	return uuid.New().String()
}
