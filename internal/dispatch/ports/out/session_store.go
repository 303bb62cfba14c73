package out

// SessionStore — единственный непрозрачный слот с токеном текущей сессии.
// Читается при старте, очищается при logout. Пустой слот — не ошибка:
// Load возвращает "".
type SessionStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}
