// audit.go — журнал аудита административных действий.
//
// Record — отсоединённый побочный эффект: ошибки записи логируются
// и никогда не доходят до вызывающего. Аудит не должен блокировать
// основную операцию, которую он наблюдает.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
)

// Prometheus-метрики журнала аудита.
var (
	auditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_audit_events_total",
		Help: "Количество событий аудита",
	}, []string{"action", "outcome"}) // outcome: written, failed, disabled
)

// Действия, для которых отсутствие user id штатно (системные/анонимные).
var auditSystemActions = map[string]bool{
	model.ActionPreviewPwdCheck: true,
}

// AuditEvent — параметры одного события аудита.
type AuditEvent struct {
	// User — id действующего пользователя; пустой для системных действий
	User string
	// Action — имя действия (model.ActionEntry*)
	Action string
	// TargetCollection — коллекция целевой записи
	TargetCollection string
	// TargetRecord — id целевой записи
	TargetRecord string
	// IP — адрес вызывающего
	IP string
	// Details — произвольные детали; чувствительные поля должны быть
	// отредактированы вызывающим до передачи
	Details map[string]any
}

// AuditRecorder — сервис журнала аудита.
type AuditRecorder struct {
	store   recordstore.Store
	enabled bool
	logger  *slog.Logger
}

// NewAuditRecorder создаёт сервис журнала аудита.
// enabled=false выключает запись полностью (ни одной строки не пишется).
func NewAuditRecorder(store recordstore.Store, enabled bool, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{
		store:   store,
		enabled: enabled,
		logger:  logger.With(slog.String("component", "audit")),
	}
}

// Enabled сообщает, включён ли журнал аудита.
func (r *AuditRecorder) Enabled() bool {
	return r.enabled
}

// Record добавляет событие в журнал аудита.
// Ничего не возвращает: ошибки записи логируются и проглатываются,
// основная операция от них не зависит.
func (r *AuditRecorder) Record(ctx context.Context, ev AuditEvent) {
	if !r.enabled {
		auditEventsTotal.WithLabelValues(ev.Action, "disabled").Inc()
		return
	}

	if ev.User == "" && !auditSystemActions[ev.Action] {
		r.logger.Warn("Событие аудита без пользователя",
			slog.String("action", ev.Action),
			slog.String("target_record", ev.TargetRecord),
		)
	}

	rec := model.AuditRecord{
		Action:           ev.Action,
		User:             ev.User,
		TargetCollection: ev.TargetCollection,
		TargetRecord:     ev.TargetRecord,
		IP:               ev.IP,
		Details:          ev.Details,
		Created:          time.Now().UTC(),
	}

	if err := r.store.Create(ctx, recordstore.CollectionAuditLogs, rec, nil); err != nil {
		auditEventsTotal.WithLabelValues(ev.Action, "failed").Inc()
		r.logger.Error("Ошибка записи события аудита",
			slog.String("action", ev.Action),
			slog.String("target_record", ev.TargetRecord),
			slog.String("error", err.Error()),
		)
		return
	}

	auditEventsTotal.WithLabelValues(ev.Action, "written").Inc()
}

// List возвращает страницу журнала аудита, новые записи первыми.
func (r *AuditRecorder) List(ctx context.Context, page, perPage int) ([]model.AuditRecord, int, error) {
	res, err := r.store.List(ctx, recordstore.CollectionAuditLogs, page, perPage, recordstore.ListOptions{
		Sort: "-created",
	})
	if err != nil {
		return nil, 0, err
	}

	var records []model.AuditRecord
	if err := res.DecodeItems(&records); err != nil {
		return nil, 0, err
	}
	return records, res.TotalItems, nil
}

// Clear удаляет все записи журнала аудита постранично.
// Возвращает количество удалённых записей.
func (r *AuditRecorder) Clear(ctx context.Context, actingUser, ip string) (int, error) {
	deleted := 0
	for {
		res, err := r.store.List(ctx, recordstore.CollectionAuditLogs, 1, 200, recordstore.ListOptions{
			Fields: "id",
		})
		if err != nil {
			return deleted, err
		}

		var records []model.AuditRecord
		if err := res.DecodeItems(&records); err != nil {
			return deleted, err
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if err := r.store.Delete(ctx, recordstore.CollectionAuditLogs, rec.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	r.logger.Info("Журнал аудита очищен",
		slog.String("user", actingUser),
		slog.Int("deleted", deleted),
	)

	// Фиксируем саму очистку как последнее событие журнала
	r.Record(ctx, AuditEvent{
		User:    actingUser,
		Action:  model.ActionAuditClear,
		IP:      ip,
		Details: map[string]any{"deleted": deleted},
	})

	return deleted, nil
}
