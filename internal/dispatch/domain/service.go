package domain

import "time"

// Service — единица работы доставки. Статус монотонный:
// PENDING -> ASSIGNED -> IN_PROGRESS -> COMPLETED, назад не движется.
// Имя и телефон клиента денормализованы для офлайн-устойчивости.
type Service struct {
	ID                string     `json:"id" db:"id"`
	CustomerID        string     `json:"customerId" db:"customer_id"`
	CustomerName      string     `json:"customerName" db:"customer_name"`
	CustomerPhone     string     `json:"customerPhone" db:"customer_phone"`
	Activity          string     `json:"activity" db:"activity"`
	Value             float64    `json:"value" db:"value"`
	PaymentType       string     `json:"paymentType" db:"payment_type"` // CASH | CREDIT
	Status            string     `json:"status" db:"status"`
	AssignedToRiderID string     `json:"assignedToRiderId,omitempty" db:"assigned_to_rider_id"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	StartedAt         *time.Time `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt       *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// ServiceInput — данные нового сервиса от администратора
type ServiceInput struct {
	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	Activity      string  `json:"activity"`
	Value         float64 `json:"value"`
	PaymentType   string  `json:"paymentType"`
}
