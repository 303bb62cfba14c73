// Package sessionfile хранит токен текущей сессии в единственном файле.
// Аналог браузерного localStorage: один слот, перезаписывается целиком.
package sessionfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	out "github.com/markblanca/quicklink-delivery/internal/dispatch/ports/out"
)

type fileStore struct {
	path string
}

func NewSessionStore(path string) out.SessionStore {
	return &fileStore{path: path}
}

// Load возвращает токен или "", если слот пуст
func (s *fileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session slot: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *fileStore) Save(token string) error {
	// Запись во временный файл + rename, чтобы слот не читался полупустым
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write session slot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit session slot: %w", err)
	}
	return nil
}

func (s *fileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
