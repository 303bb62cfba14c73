package domain

// Customer — клиент. Неизменяем после создания, операции обновления нет.
type Customer struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Phone   string `json:"phone" db:"phone"`
	Address string `json:"address,omitempty" db:"address"`
}
