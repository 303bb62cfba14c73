package domain

// Session — эфемерная сессия пользователя. Персистится только как
// capability-токен для повторного входа, не как бизнес-данные.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"` // ADMIN | DELIVERY
	Name     string `json:"name"`
}
