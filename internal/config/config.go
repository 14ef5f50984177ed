// Пакет config — загрузка и валидация конфигурации ContentHub
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

// Config содержит все параметры конфигурации ContentHub.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Публичный базовый URL (для preview-ссылок); определяет secure cookie
	BaseURL string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// --- PostgreSQL (локальные журналы просмотров) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Record store ---

	// URL record store (например, http://records:8090)
	RecordStoreURL string
	// Идентификатор админ-аккаунта record store
	RecordStoreIdentity string
	// Пароль админ-аккаунта record store
	RecordStorePassword string
	// Срок жизни кэшированного админ-токена
	RecordStoreTokenTTL time.Duration

	// --- JWT (аутентификация админ-API) ---

	// URL JWKS endpoint идентификационного провайдера
	JWTJWKSURL string
	// Ожидаемый issuer JWT
	JWTIssuer string
	// Опциональный путь к CA-сертификату для TLS-соединений с IdP
	CACertPath string
	// Группы IdP, дающие роль admin
	RoleAdminGroups []string
	// Группы IdP, дающие роль readonly
	RoleReadonlyGroups []string

	// --- Предпросмотр ---

	// Срок жизни preview-токена
	PreviewExpiry time.Duration
	// Серверная соль HMAC (пароли предпросмотра, хеши IP)
	SecretSalt string
	// Секрет шифрования cookie-сессий (AES-256-GCM)
	SessionSecret string
	// Интервал фоновой уборки preview-токенов
	SweepInterval time.Duration
	// Размер страницы при постраничной уборке токенов
	SweepPageSize int

	// --- Просмотры ---

	// Окно дедупликации просмотров
	ViewTimeframe time.Duration
	// Срок хранения строк журнала просмотров
	ViewLogRetention time.Duration
	// Подстроки user-agent ботов (без учёта регистра)
	BotUserAgents []string

	// --- Аудит ---

	// Включён ли журнал аудита
	AuditEnabled bool

	// --- Мониторинг зависимостей ---

	// Имя группы topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Проверка версии ---

	// URL запроса последнего релиза
	VersionCheckURL string
	// Срок жизни кэша результата проверки версии
	VersionCacheTTL time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CH_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("CH_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CH_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CH_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// CH_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CH_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CH_LOG_LEVEL: %w", err)
	}

	// CH_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CH_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CH_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// CH_BASE_URL — обязательный, публичный базовый URL
	cfg.BaseURL, err = getEnvRequired("CH_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// CH_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CH_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CH_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// CH_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CH_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CH_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CH_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CH_DB_PORT: %w", err)
	}

	// CH_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CH_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CH_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CH_DB_USER")
	if err != nil {
		return nil, err
	}

	// CH_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CH_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CH_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CH_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CH_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Record store ---

	// CH_RECORD_STORE_URL — обязательный
	cfg.RecordStoreURL, err = getEnvRequired("CH_RECORD_STORE_URL")
	if err != nil {
		return nil, err
	}
	cfg.RecordStoreURL = strings.TrimRight(cfg.RecordStoreURL, "/")

	// CH_RECORD_STORE_IDENTITY — обязательный
	cfg.RecordStoreIdentity, err = getEnvRequired("CH_RECORD_STORE_IDENTITY")
	if err != nil {
		return nil, err
	}

	// CH_RECORD_STORE_PASSWORD — обязательный
	cfg.RecordStorePassword, err = getEnvRequired("CH_RECORD_STORE_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CH_RECORD_STORE_TOKEN_TTL — срок жизни админ-токена (по умолчанию 1h)
	cfg.RecordStoreTokenTTL, err = getEnvDuration("CH_RECORD_STORE_TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CH_RECORD_STORE_TOKEN_TTL: %w", err)
	}

	// --- JWT ---

	// CH_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("CH_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// CH_JWT_ISSUER — обязательный
	cfg.JWTIssuer, err = getEnvRequired("CH_JWT_ISSUER")
	if err != nil {
		return nil, err
	}

	// CH_CA_CERT_PATH — опциональный CA-сертификат для TLS с IdP
	cfg.CACertPath = getEnvDefault("CH_CA_CERT_PATH", "")

	// CH_ROLE_ADMIN_GROUPS — группы для роли admin (по умолчанию contenthub-admins)
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("CH_ROLE_ADMIN_GROUPS", "contenthub-admins"))

	// CH_ROLE_READONLY_GROUPS — группы для роли readonly (по умолчанию contenthub-viewers)
	cfg.RoleReadonlyGroups = parseCSV(getEnvDefault("CH_ROLE_READONLY_GROUPS", "contenthub-viewers"))

	// --- Предпросмотр ---

	// CH_PREVIEW_EXPIRY — срок жизни preview-токена (по умолчанию 6h)
	cfg.PreviewExpiry, err = getEnvDuration("CH_PREVIEW_EXPIRY", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CH_PREVIEW_EXPIRY: %w", err)
	}

	// CH_SECRET_SALT — обязательный, серверная соль HMAC
	cfg.SecretSalt, err = getEnvRequired("CH_SECRET_SALT")
	if err != nil {
		return nil, err
	}

	// CH_SESSION_SECRET — секрет cookie-сессий. Пустое значение допустимо:
	// будет сгенерирован случайный ключ, сессии не переживут рестарт.
	cfg.SessionSecret = getEnvDefault("CH_SESSION_SECRET", "")

	// CH_SWEEP_INTERVAL — интервал уборки токенов (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("CH_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CH_SWEEP_INTERVAL: %w", err)
	}

	// CH_SWEEP_PAGE_SIZE — размер страницы уборки (по умолчанию 200)
	cfg.SweepPageSize, err = getEnvInt("CH_SWEEP_PAGE_SIZE", 200)
	if err != nil {
		return nil, fmt.Errorf("CH_SWEEP_PAGE_SIZE: %w", err)
	}
	if cfg.SweepPageSize < 1 || cfg.SweepPageSize > 1000 {
		return nil, fmt.Errorf("CH_SWEEP_PAGE_SIZE: значение %d вне допустимого диапазона 1-1000", cfg.SweepPageSize)
	}

	// --- Просмотры ---

	// CH_VIEW_TIMEFRAME_HOURS — окно дедупликации в часах (по умолчанию 24)
	viewHours, err := getEnvInt("CH_VIEW_TIMEFRAME_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("CH_VIEW_TIMEFRAME_HOURS: %w", err)
	}
	if viewHours < 1 {
		return nil, fmt.Errorf("CH_VIEW_TIMEFRAME_HOURS: значение %d должно быть положительным", viewHours)
	}
	cfg.ViewTimeframe = time.Duration(viewHours) * time.Hour

	// CH_VIEW_LOG_RETENTION — срок хранения журнала просмотров (по умолчанию 720h)
	cfg.ViewLogRetention, err = getEnvDuration("CH_VIEW_LOG_RETENTION", 720*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CH_VIEW_LOG_RETENTION: %w", err)
	}

	// CH_BOT_USER_AGENTS — подстроки user-agent ботов
	cfg.BotUserAgents = parseCSV(getEnvDefault("CH_BOT_USER_AGENTS",
		"bot,crawler,spider,slurp,curl,wget,python-requests,headless"))

	// --- Аудит ---

	// CH_AUDIT_ENABLED — журнал аудита (по умолчанию true)
	cfg.AuditEnabled, err = getEnvBool("CH_AUDIT_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("CH_AUDIT_ENABLED: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// CH_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию contenthub)
	cfg.DephealthGroup = getEnvDefault("CH_DEPHEALTH_GROUP", "contenthub")

	// CH_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CH_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CH_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Проверка версии ---

	// CH_VERSION_CHECK_URL — endpoint последнего релиза
	cfg.VersionCheckURL = getEnvDefault("CH_VERSION_CHECK_URL",
		"https://api.github.com/repos/devAlphaSystem/Alpha-System-ContentHub/releases/latest")

	// CH_VERSION_CACHE_TTL — кэш результата проверки версии (по умолчанию 1h)
	cfg.VersionCacheTTL, err = getEnvDuration("CH_VERSION_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CH_VERSION_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для мониторинга).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SecureCookie сообщает, должны ли cookie выставляться с флагом Secure.
func (c *Config) SecureCookie() bool {
	return strings.HasPrefix(c.BaseURL, "https")
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 15m, 1h)", val)
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
