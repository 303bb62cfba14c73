package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config — полная конфигурация движка диспетчеризации
type Config struct {
	Database DBConfig
	RabbitMQ MQConfig
	HTTP     HTTPConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Session  SessionConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type MQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type HTTPConfig struct {
	Port int
}

type JWTConfig struct {
	Secret        string
	ExpiryMinutes int
}

// AdminConfig — зарезервированная учётная запись администратора.
// Пароль хранится и сравнивается открытым текстом: это контракт
// аутентификации (см. DESIGN.md), не упущение.
type AdminConfig struct {
	Username string
	Password string
}

// SessionConfig — путь к единственному слоту с токеном сессии
type SessionConfig struct {
	TokenPath string
}

// Load — загрузка из CONFIG_DIR (по умолчанию ./config) + ENV перекрывает
func Load() Config {
	configDir := getEnv("CONFIG_DIR", "./config")
	cfg := Config{}

	dbKV, _ := parseYAML(filepath.Join(configDir, "db.yaml"))
	cfg.Database.Host = getStrWithEnv("DB_HOST", dbKV, "host", "localhost")
	cfg.Database.Port = getIntWithEnv("DB_PORT", dbKV, "port", 5432)
	cfg.Database.User = getStrWithEnv("DB_USER", dbKV, "user", "quicklink_user")
	cfg.Database.Password = getStrWithEnv("DB_PASSWORD", dbKV, "password", "quicklink_pass")
	cfg.Database.Database = getStrWithEnv("DB_NAME", dbKV, "database", "quicklink_db")
	cfg.Database.SSLMode = getStrWithEnv("DB_SSLMODE", dbKV, "sslmode", "disable")

	mqKV, _ := parseYAML(filepath.Join(configDir, "mq.yaml"))
	cfg.RabbitMQ.Host = getStrWithEnv("RABBITMQ_HOST", mqKV, "host", "localhost")
	cfg.RabbitMQ.Port = getIntWithEnv("RABBITMQ_PORT", mqKV, "port", 5672)
	cfg.RabbitMQ.User = getStrWithEnv("RABBITMQ_USER", mqKV, "user", "guest")
	cfg.RabbitMQ.Password = getStrWithEnv("RABBITMQ_PASSWORD", mqKV, "password", "guest")
	cfg.RabbitMQ.VHost = getStrWithEnv("RABBITMQ_VHOST", mqKV, "vhost", "/")

	svcKV, _ := parseYAML(filepath.Join(configDir, "service.yaml"))
	cfg.HTTP.Port = getIntWithEnv("HTTP_PORT", svcKV, "http_port", 3000)

	jwtKV, _ := parseYAML(filepath.Join(configDir, "jwt.yaml"))
	cfg.JWT.Secret = getStrWithEnv("JWT_SECRET", jwtKV, "secret", "dev_secret")
	cfg.JWT.ExpiryMinutes = getIntWithEnv("JWT_EXPIRY_MINUTES", jwtKV, "expiry_minutes", 12*60)

	adminKV, _ := parseYAML(filepath.Join(configDir, "admin.yaml"))
	cfg.Admin.Username = getStrWithEnv("ADMIN_USERNAME", adminKV, "username", "admin")
	cfg.Admin.Password = getStrWithEnv("ADMIN_PASSWORD", adminKV, "password", "admin")

	sessKV, _ := parseYAML(filepath.Join(configDir, "session.yaml"))
	cfg.Session.TokenPath = getStrWithEnv("SESSION_TOKEN_PATH", sessKV, "token_path", "./quicklink_session")

	return cfg
}

// parseYAML — парсит плоские YAML файлы вида key: value.
// Полноценный YAML здесь не нужен, вложенность не поддерживается.
func parseYAML(path string) (map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := map[string]string{}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		result[key] = val
	}

	return result, sc.Err()
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getStrWithEnv(envKey string, yaml map[string]string, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if val, ok := yaml[key]; ok && val != "" {
		return val
	}
	return def
}

func getIntWithEnv(envKey string, yaml map[string]string, key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if val, ok := yaml[key]; ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
