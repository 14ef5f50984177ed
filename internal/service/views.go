// views.go — учёт просмотров публичных страниц.
//
// Дедупликация: один инкремент счётчика на пару (запись, HMAC-хеш IP)
// в пределах скользящего окна. Проверка и вставка не обёрнуты
// межпроцессной блокировкой: конкурентные запросы одного посетителя
// в окне гонки могут оба пройти проверку и оба инкрементировать
// (принятый небольшой перекос вверх). Сам инкремент счётчика атомарен
// на стороне record store, конкурентные инкременты не теряются.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/repository"
)

// Prometheus-метрики учёта просмотров.
var (
	viewsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_views_recorded_total",
		Help: "Результаты обработки просмотров публичных страниц",
	}, []string{"outcome"}) // counted, deduplicated, skipped_admin, skipped_bot, skipped_nohash
)

// ViewsService — сервис учёта просмотров и длительностей.
type ViewsService struct {
	store     recordstore.Store
	viewLogs  repository.ViewLogRepository
	durations repository.ViewDurationRepository
	salt      string
	timeframe time.Duration
	botAgents []string
	logger    *slog.Logger
}

// NewViewsService создаёт сервис учёта просмотров.
// salt — серверная соль HMAC хешей IP; timeframe — окно дедупликации;
// botAgents — подстроки user-agent ботов (сопоставление без учёта регистра).
func NewViewsService(
	store recordstore.Store,
	viewLogs repository.ViewLogRepository,
	durations repository.ViewDurationRepository,
	salt string,
	timeframe time.Duration,
	botAgents []string,
	logger *slog.Logger,
) *ViewsService {
	lowered := make([]string, len(botAgents))
	for i, a := range botAgents {
		lowered[i] = strings.ToLower(a)
	}
	return &ViewsService{
		store:     store,
		viewLogs:  viewLogs,
		durations: durations,
		salt:      salt,
		timeframe: timeframe,
		botAgents: lowered,
		logger:    logger.With(slog.String("component", "views")),
	}
}

// RecordView учитывает просмотр записи. Возвращает true, если счётчик
// был инкрементирован. Просмотры админов и ботов не учитываются.
// Без соли или IP дедупликация невозможна — просмотр пропускается
// (недосчёт предпочтительнее пересчёта).
func (s *ViewsService) RecordView(ctx context.Context, entryID, ip, userAgent string, fromAdmin bool) (bool, error) {
	if fromAdmin {
		viewsRecordedTotal.WithLabelValues("skipped_admin").Inc()
		return false, nil
	}
	if s.isBot(userAgent) {
		viewsRecordedTotal.WithLabelValues("skipped_bot").Inc()
		return false, nil
	}
	if s.salt == "" || ip == "" {
		viewsRecordedTotal.WithLabelValues("skipped_nohash").Inc()
		return false, nil
	}

	ipHash := s.hashIP(ip)

	seen, err := s.viewLogs.SeenWithin(ctx, entryID, ipHash, s.timeframe)
	if err != nil {
		return false, fmt.Errorf("проверка окна дедупликации: %w", err)
	}
	if seen {
		viewsRecordedTotal.WithLabelValues("deduplicated").Inc()
		return false, nil
	}

	row := &model.ViewLogRow{
		EntryID:  entryID,
		IPHash:   ipHash,
		ViewedAt: time.Now().UTC(),
	}
	if err := s.viewLogs.Insert(ctx, row); err != nil {
		return false, fmt.Errorf("запись в журнал просмотров: %w", err)
	}

	if err := s.store.Increment(ctx, recordstore.CollectionEntries, entryID, "views", 1); err != nil {
		return false, fmt.Errorf("инкремент счётчика просмотров %s: %w", entryID, err)
	}

	viewsRecordedTotal.WithLabelValues("counted").Inc()
	s.logger.Debug("Просмотр учтён", slog.String("entry_id", entryID))

	return true, nil
}

// RecordDuration фиксирует замер длительности просмотра: строка в
// локальном журнале плюс атомарное обновление агрегатов записи.
func (s *ViewsService) RecordDuration(ctx context.Context, entryID string, durationSeconds int, ip string) error {
	if durationSeconds <= 0 {
		return NewValidationError("duration_seconds", "длительность должна быть положительной")
	}

	row := &model.ViewDurationRow{
		ID:              uuid.New().String(),
		EntryID:         entryID,
		DurationSeconds: durationSeconds,
		IPAddress:       ip,
		LoggedAt:        time.Now().UTC(),
	}
	if err := s.durations.Insert(ctx, row); err != nil {
		return fmt.Errorf("запись длительности просмотра: %w", err)
	}

	if err := s.store.Increment(ctx, recordstore.CollectionEntries, entryID, "total_view_duration", durationSeconds); err != nil {
		return fmt.Errorf("инкремент total_view_duration %s: %w", entryID, err)
	}
	if err := s.store.Increment(ctx, recordstore.CollectionEntries, entryID, "view_duration_count", 1); err != nil {
		return fmt.Errorf("инкремент view_duration_count %s: %w", entryID, err)
	}

	return nil
}

// RecordFeedback учитывает голос "помогла ли страница".
func (s *ViewsService) RecordFeedback(ctx context.Context, entryID string, helpful bool) error {
	field := "helpful_no"
	if helpful {
		field = "helpful_yes"
	}
	if err := s.store.Increment(ctx, recordstore.CollectionEntries, entryID, field, 1); err != nil {
		return fmt.Errorf("инкремент %s записи %s: %w", field, entryID, err)
	}
	return nil
}

// ClearViewLogs удаляет все строки журнала просмотров записи.
func (s *ViewsService) ClearViewLogs(ctx context.Context, entryID string) (int, error) {
	return s.viewLogs.DeleteByEntry(ctx, entryID)
}

// isBot проверяет user-agent на совпадение с подстроками ботов.
func (s *ViewsService) isBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, bot := range s.botAgents {
		if bot != "" && strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}

// hashIP вычисляет HMAC-SHA256 IP-адреса под серверной солью.
func (s *ViewsService) hashIP(ip string) string {
	mac := hmac.New(sha256.New, []byte(s.salt))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}
