// version.go — проверка наличия новой версии приложения.
//
// Явно сконструированный инжектируемый сервис с собственным кэшем
// и принудительным refresh — без модульных мутабельных синглтонов.
// Внешний вызов ограничен таймаутом 10 секунд, результат кэшируется.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// VersionInfo — результат проверки версии.
type VersionInfo struct {
	// Current — версия работающего приложения
	Current string `json:"current"`
	// Latest — последняя опубликованная версия; пустая при недоступности
	Latest string `json:"latest,omitempty"`
	// UpdateAvailable — доступно ли обновление
	UpdateAvailable bool `json:"update_available"`
	// CheckedAt — время последней успешной проверки
	CheckedAt time.Time `json:"checked_at"`
}

// releaseResponse — ответ releases API.
type releaseResponse struct {
	TagName string `json:"tag_name"`
}

// VersionService — сервис проверки последней версии с кэшем результата.
type VersionService struct {
	current    string
	checkURL   string
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	// Кэш результата проверки
	mu        sync.Mutex
	cached    *VersionInfo
	cacheTime time.Time
}

// NewVersionService создаёт сервис проверки версии.
// current — версия работающего приложения; checkURL — endpoint
// последнего релиза; cacheTTL — срок жизни кэша результата.
func NewVersionService(current, checkURL string, cacheTTL time.Duration, logger *slog.Logger) *VersionService {
	return &VersionService{
		current:    current,
		checkURL:   checkURL,
		cacheTTL:   cacheTTL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(slog.String("component", "version")),
	}
}

// Check возвращает информацию о версии, используя кэш.
// Недоступность внешнего endpoint'а не является ошибкой для
// вызывающего: возвращается текущая версия без Latest.
func (s *VersionService) Check(ctx context.Context) *VersionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cacheTime) < s.cacheTTL {
		return s.cached
	}

	info := &VersionInfo{Current: s.current, CheckedAt: time.Now().UTC()}

	latest, err := s.fetchLatest(ctx)
	if err != nil {
		s.logger.Warn("Проверка последней версии не удалась",
			slog.String("error", err.Error()),
		)
		// Неудачный результат тоже кэшируем, чтобы не долбить endpoint
		s.cached = info
		s.cacheTime = time.Now()
		return info
	}

	info.Latest = latest
	info.UpdateAvailable = normalizeVersion(latest) != normalizeVersion(s.current) && s.current != "dev"

	s.cached = info
	s.cacheTime = time.Now()

	s.logger.Debug("Проверка версии выполнена",
		slog.String("current", s.current),
		slog.String("latest", latest),
	)

	return info
}

// ForceRefresh сбрасывает кэш; следующий Check выполнит внешний запрос.
func (s *VersionService) ForceRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.cacheTime = time.Time{}
}

// fetchLatest запрашивает последний релиз у внешнего endpoint'а.
func (s *VersionService) fetchLatest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.checkURL, nil)
	if err != nil {
		return "", fmt.Errorf("создание запроса версии: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос последней версии: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint версии вернул статус %d", resp.StatusCode)
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("декодирование ответа версии: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("endpoint версии вернул пустой tag_name")
	}

	return release.TagName, nil
}

// normalizeVersion убирает префикс "v" для сравнения версий.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}
