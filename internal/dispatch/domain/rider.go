package domain

import "time"

// Location — последняя известная позиция курьера. Не существует отдельно,
// всегда вложена в Rider.
type Location struct {
	Lat       float64   `json:"lat" db:"latitude"`
	Lng       float64   `json:"lng" db:"longitude"`
	Timestamp time.Time `json:"timestamp" db:"located_at"`
}

// Rider — курьер. Статус и локация меняются только движком, никогда напрямую
// из UI или транспорта.
type Rider struct {
	ID               string     `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	Password         string     `json:"password,omitempty" db:"password"`
	Name             string     `json:"name" db:"name"`
	Status           string     `json:"status" db:"status"` // AVAILABLE | BUSY | OFFLINE
	LastStatusChange time.Time  `json:"lastStatusChange" db:"last_status_change"`
	LastCompletedAt  *time.Time `json:"lastCompletedAt,omitempty" db:"last_completed_at"`
	IsTracking       bool       `json:"isTracking" db:"is_tracking"`
	Location         *Location  `json:"location,omitempty"`
}
