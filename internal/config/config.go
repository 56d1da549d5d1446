// Пакет config — загрузка и валидация конфигурации Medledger
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Medledger.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уникальный идентификатор экземпляра (например, "medledger-01")
	ServiceID string
	// Идентификатор bootstrap-кастодиана, авторизуется при старте
	BootstrapCustodian string
	// Путь к файлу журнала аудита (append-only, JSON lines)
	AuditLogPath string
	// URL JWKS endpoint внешнего IdP
	JWKSUrl string
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string
	// Путь к TLS сертификату (опционально, без него — plain HTTP)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (целевого сервиса) в метриках topologymetrics
	DephealthDepName string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// ML_PORT — порт HTTP-сервера (по умолчанию 8030)
	port, err := getEnvInt("ML_PORT", 8030)
	if err != nil {
		return nil, fmt.Errorf("ML_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("ML_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// ML_SERVICE_ID — идентификатор экземпляра (по умолчанию "medledger-01")
	cfg.ServiceID = getEnvDefault("ML_SERVICE_ID", "medledger-01")

	// ML_BOOTSTRAP_CUSTODIAN — обязательный
	cfg.BootstrapCustodian, err = getEnvRequired("ML_BOOTSTRAP_CUSTODIAN")
	if err != nil {
		return nil, err
	}

	// ML_AUDIT_LOG — обязательный, путь к журналу аудита
	cfg.AuditLogPath, err = getEnvRequired("ML_AUDIT_LOG")
	if err != nil {
		return nil, err
	}

	// ML_JWKS_URL — обязательный
	cfg.JWKSUrl, err = getEnvRequired("ML_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// ML_JWKS_CA_CERT — путь к CA-сертификату для JWKS endpoint (опционально)
	cfg.JWKSCACert = getEnvDefault("ML_JWKS_CA_CERT", "")

	// ML_TLS_CERT / ML_TLS_KEY — опциональны, но только парой
	cfg.TLSCert = getEnvDefault("ML_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("ML_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("ML_TLS_CERT и ML_TLS_KEY должны задаваться вместе")
	}

	// ML_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ML_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ML_LOG_LEVEL: %w", err)
	}

	// ML_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ML_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ML_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("ML_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("ML_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("ML_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// ML_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ML_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_SHUTDOWN_TIMEOUT: %w", err)
	}

	// Параметры JWKS-клиента
	cfg.JWKSClientTimeout, err = getEnvDuration("ML_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("ML_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ML_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("ML_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_JWT_LEEWAY: %w", err)
	}

	// ML_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("ML_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ML_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// ML_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "medledger")
	cfg.DephealthGroup = getEnvDefault("ML_DEPHEALTH_GROUP", "medledger")

	// ML_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics (по умолчанию "idp-jwks")
	cfg.DephealthDepName = getEnvDefault("ML_DEPHEALTH_DEP_NAME", "idp-jwks")

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
