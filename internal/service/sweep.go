// sweep.go — периодическая уборка preview-токенов.
//
// SweepService запускает фоновую горутину с ticker (CH_SWEEP_INTERVAL),
// которая выполняет два независимых прохода:
//  1. Осиротевшие токены — запись, на которую ссылается токен,
//     отсутствует в текущем полном наборе id живых записей.
//  2. Истёкшие токены — expires_at < now.
//
// Оба прохода постраничные с фиксированным размером батча; ошибка
// одного батча логируется и не прерывает последующие батчи прохода.
// Уборка идемпотентна и безопасна при конкурентной выдаче токенов:
// удаление идёт по id, не по позиции.
//
// Заодно подчищается локальный журнал просмотров старше срока хранения.
//
// Prometheus-метрики:
//   - ch_sweep_duration_seconds — длительность прохода
//   - ch_sweep_deleted_total — количество удалённых токенов (по проходам)
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/repository"
)

// Prometheus-метрики уборки preview-токенов.
var (
	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ch_sweep_duration_seconds",
		Help:    "Длительность прохода уборки preview-токенов",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s … ~25s
	}, []string{"pass"})

	sweepDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_sweep_deleted_total",
		Help: "Количество удалённых при уборке preview-токенов",
	}, []string{"pass"}) // pass: orphaned, expired
)

// SweepService — фоновый сервис уборки preview-токенов.
type SweepService struct {
	store     recordstore.Store
	viewLogs  repository.ViewLogRepository
	pageSize  int
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	// now подменяется в тестах
	now func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService создаёт сервис уборки preview-токенов.
// retention — срок хранения строк локального журнала просмотров.
func NewSweepService(
	store recordstore.Store,
	viewLogs repository.ViewLogRepository,
	pageSize int,
	interval time.Duration,
	retention time.Duration,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		store:     store,
		viewLogs:  viewLogs,
		pageSize:  pageSize,
		interval:  interval,
		retention: retention,
		logger:    logger.With(slog.String("component", "sweep")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start запускает фоновую горутину с периодической уборкой.
// Вызывается один раз при старте приложения.
func (s *SweepService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая уборка preview-токенов запущена",
			slog.String("interval", s.interval.String()),
			slog.Int("page_size", s.pageSize),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая уборка preview-токенов остановлена")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// RunOnce выполняет один цикл уборки: осиротевшие, затем истёкшие
// токены, затем устаревшие строки журнала просмотров. Ошибка одного
// прохода не отменяет остальные.
func (s *SweepService) RunOnce(ctx context.Context) {
	orphaned := s.sweepOrphaned(ctx)
	expired := s.sweepExpired(ctx)

	purged := 0
	if s.retention > 0 {
		n, err := s.viewLogs.DeleteOlderThan(ctx, s.now().Add(-s.retention))
		if err != nil {
			s.logger.Warn("Ошибка уборки журнала просмотров", slog.String("error", err.Error()))
		} else {
			purged = n
		}
	}

	s.logger.Info("Уборка завершена",
		slog.Int("orphaned_deleted", orphaned),
		slog.Int("expired_deleted", expired),
		slog.Int("view_logs_purged", purged),
	)
}

// sweepOrphaned удаляет токены, ссылающиеся на несуществующие записи.
// Сначала постранично собирается полный набор id живых записей,
// затем постранично обходятся токены.
func (s *SweepService) sweepOrphaned(ctx context.Context) int {
	start := s.now()
	defer func() {
		sweepDuration.WithLabelValues("orphaned").Observe(time.Since(start).Seconds())
	}()

	liveIDs, err := s.collectEntryIDs(ctx)
	if err != nil {
		s.logger.Error("Ошибка сбора id живых записей, проход пропущен",
			slog.String("error", err.Error()),
		)
		return 0
	}

	deleted := 0
	page := 1
	for {
		if ctx.Err() != nil {
			return deleted
		}

		res, err := s.store.List(ctx, recordstore.CollectionPreviewTokens, page, s.pageSize, recordstore.ListOptions{
			Fields: "id,entry",
			Sort:   "created",
		})
		if err != nil {
			s.logger.Warn("Ошибка загрузки батча токенов, батч пропущен",
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			page++
			if page > 10000 {
				return deleted
			}
			continue
		}

		var tokens []model.PreviewToken
		if err := res.DecodeItems(&tokens); err != nil {
			s.logger.Warn("Ошибка декодирования батча токенов, батч пропущен",
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			page++
			continue
		}
		if len(tokens) == 0 {
			break
		}

		deletedInBatch := 0
		for _, t := range tokens {
			if liveIDs[t.Entry] {
				continue
			}
			if err := s.store.Delete(ctx, recordstore.CollectionPreviewTokens, t.ID); err != nil {
				s.logger.Warn("Ошибка удаления осиротевшего токена",
					slog.String("token_id", t.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			deleted++
			deletedInBatch++
		}

		// Удаления сдвигают страницы; двигаемся вперёд только если
		// батч ничего не удалил, иначе перечитываем ту же страницу
		if deletedInBatch == 0 {
			page++
		}
		if page > res.TotalPages && res.TotalPages > 0 {
			break
		}
	}

	sweepDeletedTotal.WithLabelValues("orphaned").Add(float64(deleted))
	return deleted
}

// sweepExpired удаляет токены с истёкшим сроком действия.
func (s *SweepService) sweepExpired(ctx context.Context) int {
	start := s.now()
	defer func() {
		sweepDuration.WithLabelValues("expired").Observe(time.Since(start).Seconds())
	}()

	deleted := 0
	filter := recordstore.Before("expires_at", s.now())

	for {
		if ctx.Err() != nil {
			return deleted
		}

		// Всегда первая страница: удаления сдвигают результаты фильтра
		res, err := s.store.List(ctx, recordstore.CollectionPreviewTokens, 1, s.pageSize, recordstore.ListOptions{
			Filter: filter,
			Fields: "id",
		})
		if err != nil {
			s.logger.Warn("Ошибка загрузки батча истёкших токенов, проход прерван",
				slog.String("error", err.Error()),
			)
			break
		}

		var tokens []model.PreviewToken
		if err := res.DecodeItems(&tokens); err != nil {
			s.logger.Warn("Ошибка декодирования батча истёкших токенов, проход прерван",
				slog.String("error", err.Error()),
			)
			break
		}
		if len(tokens) == 0 {
			break
		}

		deletedInBatch := 0
		for _, t := range tokens {
			if err := s.store.Delete(ctx, recordstore.CollectionPreviewTokens, t.ID); err != nil {
				s.logger.Warn("Ошибка удаления истёкшего токена",
					slog.String("token_id", t.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			deleted++
			deletedInBatch++
		}

		// Если ни один токен батча не удалился — выходим, чтобы не
		// крутиться на одном и том же батче
		if deletedInBatch == 0 {
			break
		}
	}

	sweepDeletedTotal.WithLabelValues("expired").Add(float64(deleted))
	return deleted
}

// collectEntryIDs постранично собирает полный набор id живых записей.
func (s *SweepService) collectEntryIDs(ctx context.Context) (map[string]bool, error) {
	ids := make(map[string]bool)

	page := 1
	for {
		res, err := s.store.List(ctx, recordstore.CollectionEntries, page, s.pageSize, recordstore.ListOptions{
			Fields: "id",
			Sort:   "created",
		})
		if err != nil {
			return nil, err
		}

		var entries []model.Entry
		if err := res.DecodeItems(&entries); err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			ids[e.ID] = true
		}

		page++
		if page > res.TotalPages {
			break
		}
	}

	return ids, nil
}
