// entries.go — жизненный цикл записей контента.
//
// Машина состояний: draft/published, staged-правки поверх опубликованных
// записей, архивирование с сохранением исходного id, восстановление,
// окончательное удаление с зачисткой зависимых данных.
//
// Read-modify-write здесь не транзакционен относительно record store:
// конкурентное обновление между чтением и записью молча перезаписывается
// (lost update). Принятое ограничение, не компенсируется.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/repository"
)

// Prometheus-метрики жизненного цикла записей.
var (
	entryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_entry_operations_total",
		Help: "Количество операций над записями контента",
	}, []string{"operation", "outcome"}) // outcome: ok, error
)

// Длина идентификатора записи record store.
const recordIDLength = 15

// Actor — действующий пользователь операции (для проверки владения и аудита).
type Actor struct {
	// UserID — идентификатор пользователя
	UserID string
	// IP — адрес вызывающего (для аудита)
	IP string
}

// EntryInput — данные записи, поданные на создание или обновление.
type EntryInput struct {
	Title                string
	Type                 string
	Content              string
	Tags                 string
	Collection           string
	Status               string
	RoadmapStage         string
	Project              string
	ShowInProjectSidebar bool
	SidebarOrder         int
	CustomHeader         string
	CustomFooter         string
}

// EntriesService — сервис жизненного цикла записей контента.
type EntriesService struct {
	store     recordstore.Store
	audit     *AuditRecorder
	viewLogs  repository.ViewLogRepository
	durations repository.ViewDurationRepository
	logger    *slog.Logger
}

// NewEntriesService создаёт сервис жизненного цикла записей.
func NewEntriesService(
	store recordstore.Store,
	audit *AuditRecorder,
	viewLogs repository.ViewLogRepository,
	durations repository.ViewDurationRepository,
	logger *slog.Logger,
) *EntriesService {
	return &EntriesService{
		store:     store,
		audit:     audit,
		viewLogs:  viewLogs,
		durations: durations,
		logger:    logger.With(slog.String("component", "entries")),
	}
}

// --- Валидация и нормализация ---

// normalizeInput приводит поданные данные к инвариантам типа.
// sidebar_header — навигационный маркер, не контент: содержимое
// принудительно пустое, статус всегда published.
func normalizeInput(input *EntryInput) {
	input.Title = strings.TrimSpace(input.Title)

	if input.Status == "" {
		input.Status = model.StatusDraft
	}

	if input.Type == model.TypeSidebarHeader {
		input.Content = ""
		input.Tags = ""
		input.Collection = ""
		input.Status = model.StatusPublished
		input.ShowInProjectSidebar = true
	}

	// roadmap_stage допустим только для roadmap; для остальных типов
	// значение молча обнуляется, не вызывая ошибку валидации
	if input.Type != model.TypeRoadmap {
		input.RoadmapStage = ""
	}
}

// validateInput проверяет поданные данные по правилам создания.
// Ошибки валидации не приводят к записи: вызывающий получает их
// до какой-либо мутации.
func validateInput(input *EntryInput) error {
	verr := &ValidationError{}

	if input.Title == "" {
		verr.Add("title", "заголовок обязателен")
	}

	if !model.IsValidType(input.Type) {
		verr.Add("type", fmt.Sprintf("недопустимый тип %q", input.Type))
	}

	if input.Status != model.StatusDraft && input.Status != model.StatusPublished {
		verr.Add("status", fmt.Sprintf("недопустимый статус %q", input.Status))
	}

	// Контент обязателен для контентных типов; roadmap и sidebar_header
	// живут без него
	switch input.Type {
	case model.TypeRoadmap, model.TypeSidebarHeader:
	default:
		if strings.TrimSpace(input.Content) == "" {
			verr.Add("content", "содержимое обязательно")
		}
	}

	if input.Type == model.TypeRoadmap {
		if input.RoadmapStage == "" {
			verr.Add("roadmap_stage", "этап roadmap обязателен")
		} else if !model.IsValidRoadmapStage(input.RoadmapStage) {
			verr.Add("roadmap_stage", fmt.Sprintf("недопустимый этап %q", input.RoadmapStage))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// newRecordID генерирует 15-символьный идентификатор записи
// (строчные буквы и цифры, формат id record store).
func newRecordID() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, recordIDLength)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand недоступен: %v", err))
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

// --- Загрузка и проверка владения ---

// getOwned загружает запись из указанного хранилища и проверяет владение.
func (s *EntriesService) getOwned(ctx context.Context, st recordstore.EntryStore, id string, actor Actor) (*model.Entry, error) {
	var entry model.Entry
	if err := s.store.Get(ctx, st.Collection(), id, &entry); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, fmt.Errorf("запись %s (%s): %w", id, st, ErrNotFound)
		}
		return nil, err
	}

	if entry.Owner != actor.UserID {
		return nil, fmt.Errorf("запись %s принадлежит другому пользователю: %w", id, ErrForbidden)
	}

	return &entry, nil
}

// Get возвращает запись из указанного хранилища с проверкой владения.
func (s *EntriesService) Get(ctx context.Context, actor Actor, st recordstore.EntryStore, id string) (*model.Entry, error) {
	return s.getOwned(ctx, st, id, actor)
}

// List возвращает страницу записей пользователя из указанного хранилища.
func (s *EntriesService) List(ctx context.Context, actor Actor, st recordstore.EntryStore, page, perPage int) ([]model.Entry, int, error) {
	res, err := s.store.List(ctx, st.Collection(), page, perPage, recordstore.ListOptions{
		Filter: recordstore.Eq("owner", actor.UserID),
		Sort:   "-updated",
	})
	if err != nil {
		return nil, 0, err
	}

	var entries []model.Entry
	if err := res.DecodeItems(&entries); err != nil {
		return nil, 0, err
	}
	return entries, res.TotalItems, nil
}

// --- Операции жизненного цикла ---

// Create создаёт запись. explicitID — опциональный каллер-заданный id
// (ровно 15 символов); коллизия id возвращает ErrIDTaken, отличимую
// от обычной ошибки валидации.
func (s *EntriesService) Create(ctx context.Context, actor Actor, input EntryInput, explicitID string) (*model.Entry, error) {
	normalizeInput(&input)
	if err := validateInput(&input); err != nil {
		entryOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}

	if explicitID != "" && len(explicitID) != recordIDLength {
		entryOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, NewValidationError("id", fmt.Sprintf("идентификатор должен состоять ровно из %d символов", recordIDLength))
	}

	id := explicitID
	if id == "" {
		id = newRecordID()
	}

	now := time.Now().UTC()
	data := map[string]any{
		"id":                      id,
		"owner":                   actor.UserID,
		"project":                 input.Project,
		"title":                   input.Title,
		"type":                    input.Type,
		"content":                 input.Content,
		"tags":                    input.Tags,
		"collection":              input.Collection,
		"status":                  input.Status,
		"views":                   0,
		"roadmap_stage":           nullableString(input.RoadmapStage),
		"show_in_project_sidebar": input.ShowInProjectSidebar,
		"sidebar_order":           input.SidebarOrder,
		"custom_header":           input.CustomHeader,
		"custom_footer":           input.CustomFooter,
		"has_staged_changes":      false,
		"content_updated_at":      now,
		"helpful_yes":             0,
		"helpful_no":              0,
		"total_view_duration":     0,
		"view_duration_count":     0,
	}
	clearStagedFields(data)

	var entry model.Entry
	if err := s.store.Create(ctx, recordstore.CollectionEntries, data, &entry); err != nil {
		entryOpsTotal.WithLabelValues("create", "error").Inc()
		if errors.Is(err, recordstore.ErrConflict) {
			return nil, fmt.Errorf("id %s: %w", id, ErrIDTaken)
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionEntryCreate,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     entry.ID,
		IP:               actor.IP,
		Details:          map[string]any{"title": entry.Title, "type": entry.Type, "status": entry.Status},
	})

	entryOpsTotal.WithLabelValues("create", "ok").Inc()
	s.logger.Info("Запись создана",
		slog.String("entry_id", entry.ID),
		slog.String("type", entry.Type),
		slog.String("status", entry.Status),
	)

	return &entry, nil
}

// Update обновляет живую запись. Ветвление по комбинации текущего
// статуса записи и поданного статуса:
//   - published → published: staged-правки (живые поля не трогаются,
//     кроме collection и show_in_project_sidebar — они не стейджатся);
//   - иначе: прямое обновление живых полей со сбросом staged.
func (s *EntriesService) Update(ctx context.Context, actor Actor, id string, input EntryInput) (*model.Entry, error) {
	entry, err := s.getOwned(ctx, recordstore.StoreLive, id, actor)
	if err != nil {
		entryOpsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	normalizeInput(&input)
	if err := validateInput(&input); err != nil {
		entryOpsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	staging := entry.Status == model.StatusPublished && input.Status == model.StatusPublished

	var data map[string]any
	var action string

	if staging {
		// Staged-правки: поданные контентные поля уходят в теневые.
		// collection и show_in_project_sidebar обновляются сразу.
		data = map[string]any{
			"staged_title":            input.Title,
			"staged_type":             input.Type,
			"staged_content":          input.Content,
			"staged_tags":             input.Tags,
			"staged_header":           input.CustomHeader,
			"staged_footer":           input.CustomFooter,
			"staged_roadmap_stage":    nullableString(input.RoadmapStage),
			"has_staged_changes":      true,
			"collection":              input.Collection,
			"show_in_project_sidebar": input.ShowInProjectSidebar,
			"sidebar_order":           input.SidebarOrder,
		}
		action = model.ActionEntryStageChanges
	} else {
		// Прямое обновление живых полей, staged сбрасываются
		data = map[string]any{
			"title":                   input.Title,
			"type":                    input.Type,
			"content":                 input.Content,
			"tags":                    input.Tags,
			"collection":              input.Collection,
			"status":                  input.Status,
			"roadmap_stage":           nullableString(input.RoadmapStage),
			"show_in_project_sidebar": input.ShowInProjectSidebar,
			"sidebar_order":           input.SidebarOrder,
			"custom_header":           input.CustomHeader,
			"custom_footer":           input.CustomFooter,
			"has_staged_changes":      false,
			"content_updated_at":      time.Now().UTC(),
		}
		clearStagedFields(data)

		switch {
		case entry.Status == model.StatusDraft && input.Status == model.StatusPublished:
			action = model.ActionEntryPublish
		case entry.Status == model.StatusPublished && input.Status == model.StatusDraft:
			action = model.ActionEntryUnpublish
		default:
			action = model.ActionEntryUpdate
		}
	}

	var updated model.Entry
	if err := s.store.Update(ctx, recordstore.CollectionEntries, id, data, &updated); err != nil {
		entryOpsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           action,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     id,
		IP:               actor.IP,
		Details:          map[string]any{"staged": staging},
	})

	entryOpsTotal.WithLabelValues("update", "ok").Inc()
	s.logger.Info("Запись обновлена",
		slog.String("entry_id", id),
		slog.String("action", action),
		slog.Bool("staged", staging),
	)

	return &updated, nil
}

// PublishStaged материализует staged-правки опубликованной записи.
// Каждое staged-поле копируется в живое как есть: nil staged-значение
// записывается как null и очищает живое поле. Это сознательно
// сохранённое поведение полного переноса, включая null.
func (s *EntriesService) PublishStaged(ctx context.Context, actor Actor, id string) (*model.Entry, error) {
	entry, err := s.getOwned(ctx, recordstore.StoreLive, id, actor)
	if err != nil {
		entryOpsTotal.WithLabelValues("publish_staged", "error").Inc()
		return nil, err
	}

	if entry.Status != model.StatusPublished || !entry.HasStagedChanges {
		entryOpsTotal.WithLabelValues("publish_staged", "error").Inc()
		return nil, fmt.Errorf("запись %s: %w", id, ErrNotPublishable)
	}

	data := map[string]any{
		"title":              entry.StagedTitle,
		"type":               entry.StagedType,
		"content":            entry.StagedContent,
		"tags":               entry.StagedTags,
		"collection":         entry.StagedCollection,
		"custom_header":      entry.StagedHeader,
		"custom_footer":      entry.StagedFooter,
		"roadmap_stage":      entry.StagedRoadmapStage,
		"has_staged_changes": false,
		"content_updated_at": time.Now().UTC(),
	}
	clearStagedFields(data)

	var updated model.Entry
	if err := s.store.Update(ctx, recordstore.CollectionEntries, id, data, &updated); err != nil {
		entryOpsTotal.WithLabelValues("publish_staged", "error").Inc()
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionEntryUpdate,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     id,
		IP:               actor.IP,
		Details:          map[string]any{"publish_staged": true},
	})

	entryOpsTotal.WithLabelValues("publish_staged", "ok").Inc()
	s.logger.Info("Staged-правки опубликованы", slog.String("entry_id", id))

	return &updated, nil
}

// Archive перемещает живую запись в архив под original_id.
// Staged-правки в архивной копии принудительно очищаются.
// sidebar_header архивировать нельзя — операция молча превращается
// в окончательное удаление.
func (s *EntriesService) Archive(ctx context.Context, actor Actor, id string) error {
	entry, err := s.getOwned(ctx, recordstore.StoreLive, id, actor)
	if err != nil {
		entryOpsTotal.WithLabelValues("archive", "error").Inc()
		return err
	}

	if entry.Type == model.TypeSidebarHeader {
		if err := s.deleteEntry(ctx, actor, recordstore.StoreLive, entry,
			map[string]any{"reason": "sidebar_header_not_archivable"}); err != nil {
			entryOpsTotal.WithLabelValues("archive", "error").Inc()
			return err
		}
		entryOpsTotal.WithLabelValues("archive", "ok").Inc()
		return nil
	}

	data := map[string]any{
		"original_id":             entry.ID,
		"owner":                   entry.Owner,
		"project":                 entry.Project,
		"title":                   entry.Title,
		"type":                    entry.Type,
		"content":                 entry.Content,
		"tags":                    entry.Tags,
		"collection":              entry.Collection,
		"status":                  entry.Status,
		"views":                   entry.Views,
		"roadmap_stage":           nullableString(entry.RoadmapStage),
		"show_in_project_sidebar": entry.ShowInProjectSidebar,
		"sidebar_order":           entry.SidebarOrder,
		"custom_header":           entry.CustomHeader,
		"custom_footer":           entry.CustomFooter,
		"has_staged_changes":      false,
		"content_updated_at":      entry.ContentUpdatedAt,
		"helpful_yes":             entry.HelpfulYes,
		"helpful_no":              entry.HelpfulNo,
		"total_view_duration":     entry.TotalViewDuration,
		"view_duration_count":     entry.ViewDurationCount,
	}
	clearStagedFields(data)

	if err := s.store.Create(ctx, recordstore.CollectionArchive, data, nil); err != nil {
		entryOpsTotal.WithLabelValues("archive", "error").Inc()
		return fmt.Errorf("создание архивной копии %s: %w", id, err)
	}

	if err := s.store.Delete(ctx, recordstore.CollectionEntries, id); err != nil {
		entryOpsTotal.WithLabelValues("archive", "error").Inc()
		return fmt.Errorf("удаление живой записи %s после архивации: %w", id, err)
	}

	// Зачистка preview-токенов — best-effort
	s.purgePreviewTokens(ctx, id)

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionEntryArchive,
		TargetCollection: string(recordstore.CollectionArchive),
		TargetRecord:     id,
		IP:               actor.IP,
	})

	entryOpsTotal.WithLabelValues("archive", "ok").Inc()
	s.logger.Info("Запись архивирована", slog.String("entry_id", id))

	return nil
}

// Unarchive восстанавливает архивную запись в живое хранилище под её
// исходным id. Если живая запись с этим id уже существует — ErrUnarchiveConflict.
func (s *EntriesService) Unarchive(ctx context.Context, actor Actor, archivedID string) (*model.Entry, error) {
	entry, err := s.getOwned(ctx, recordstore.StoreArchived, archivedID, actor)
	if err != nil {
		entryOpsTotal.WithLabelValues("unarchive", "error").Inc()
		return nil, err
	}

	originalID := entry.OriginalID
	if originalID == "" {
		entryOpsTotal.WithLabelValues("unarchive", "error").Inc()
		return nil, fmt.Errorf("архивная запись %s без original_id: %w", archivedID, ErrNotFound)
	}

	data := map[string]any{
		"id":                      originalID,
		"owner":                   entry.Owner,
		"project":                 entry.Project,
		"title":                   entry.Title,
		"type":                    entry.Type,
		"content":                 entry.Content,
		"tags":                    entry.Tags,
		"collection":              entry.Collection,
		"status":                  entry.Status,
		"views":                   entry.Views,
		"roadmap_stage":           nullableString(entry.RoadmapStage),
		"show_in_project_sidebar": entry.ShowInProjectSidebar,
		"sidebar_order":           entry.SidebarOrder,
		"custom_header":           entry.CustomHeader,
		"custom_footer":           entry.CustomFooter,
		"has_staged_changes":      false,
		"content_updated_at":      entry.ContentUpdatedAt,
		"helpful_yes":             entry.HelpfulYes,
		"helpful_no":              entry.HelpfulNo,
		"total_view_duration":     entry.TotalViewDuration,
		"view_duration_count":     entry.ViewDurationCount,
	}
	clearStagedFields(data)

	var restored model.Entry
	if err := s.store.Create(ctx, recordstore.CollectionEntries, data, &restored); err != nil {
		entryOpsTotal.WithLabelValues("unarchive", "error").Inc()
		if errors.Is(err, recordstore.ErrConflict) {
			return nil, fmt.Errorf("id %s: %w", originalID, ErrUnarchiveConflict)
		}
		return nil, fmt.Errorf("восстановление записи %s: %w", originalID, err)
	}

	if err := s.store.Delete(ctx, recordstore.CollectionArchive, archivedID); err != nil {
		// Живая запись уже создана; оставшаяся архивная копия —
		// мусор, но не потеря данных
		s.logger.Warn("Ошибка удаления архивной копии после восстановления",
			slog.String("archived_id", archivedID),
			slog.String("error", err.Error()),
		)
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionEntryUnarchive,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     originalID,
		IP:               actor.IP,
	})

	entryOpsTotal.WithLabelValues("unarchive", "ok").Inc()
	s.logger.Info("Запись восстановлена из архива",
		slog.String("entry_id", originalID),
		slog.String("archived_id", archivedID),
	)

	return &restored, nil
}

// Delete окончательно удаляет запись из живого или архивного хранилища
// вместе с зависимыми данными: журналом просмотров, замерами длительности
// и preview-токенами.
func (s *EntriesService) Delete(ctx context.Context, actor Actor, st recordstore.EntryStore, id string) error {
	entry, err := s.getOwned(ctx, st, id, actor)
	if err != nil {
		entryOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}

	if err := s.deleteEntry(ctx, actor, st, entry, nil); err != nil {
		entryOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}

	entryOpsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// deleteEntry — общая механика окончательного удаления.
// Удаление самой записи — основная операция; зачистка зависимых
// данных — best-effort, ошибки логируются и проглатываются.
func (s *EntriesService) deleteEntry(ctx context.Context, actor Actor, st recordstore.EntryStore, entry *model.Entry, extraDetails map[string]any) error {
	if err := s.store.Delete(ctx, st.Collection(), entry.ID); err != nil {
		return fmt.Errorf("удаление записи %s (%s): %w", entry.ID, st, err)
	}

	// Зависимые данные привязаны к исходному id: для архивной записи
	// это original_id, для живой — её собственный id
	depKey := entry.ID
	if st == recordstore.StoreArchived && entry.OriginalID != "" {
		depKey = entry.OriginalID
	}

	if _, err := s.viewLogs.DeleteByEntry(ctx, depKey); err != nil {
		s.logger.Warn("Ошибка зачистки журнала просмотров",
			slog.String("entry_id", depKey),
			slog.String("error", err.Error()),
		)
	}
	if _, err := s.durations.DeleteByEntry(ctx, depKey); err != nil {
		s.logger.Warn("Ошибка зачистки журнала длительностей",
			slog.String("entry_id", depKey),
			slog.String("error", err.Error()),
		)
	}
	s.purgePreviewTokens(ctx, depKey)

	details := map[string]any{"store": st.String(), "title": entry.Title}
	for k, v := range extraDetails {
		details[k] = v
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionEntryDelete,
		TargetCollection: string(st.Collection()),
		TargetRecord:     entry.ID,
		IP:               actor.IP,
		Details:          details,
	})

	s.logger.Info("Запись удалена",
		slog.String("entry_id", entry.ID),
		slog.String("store", st.String()),
	)

	return nil
}

// purgePreviewTokens удаляет все preview-токены записи (best-effort).
func (s *EntriesService) purgePreviewTokens(ctx context.Context, entryID string) {
	res, err := s.store.List(ctx, recordstore.CollectionPreviewTokens, 1, 100, recordstore.ListOptions{
		Filter: recordstore.Eq("entry", entryID),
		Fields: "id",
	})
	if err != nil {
		s.logger.Warn("Ошибка поиска preview-токенов для зачистки",
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()),
		)
		return
	}

	var tokens []model.PreviewToken
	if err := res.DecodeItems(&tokens); err != nil {
		s.logger.Warn("Ошибка декодирования preview-токенов",
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, t := range tokens {
		if err := s.store.Delete(ctx, recordstore.CollectionPreviewTokens, t.ID); err != nil {
			s.logger.Warn("Ошибка удаления preview-токена",
				slog.String("token_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// --- Массовые операции ---

// BulkActionType — действие массовой операции.
type BulkActionType string

// Допустимые массовые действия.
const (
	BulkPublish         BulkActionType = "publish"
	BulkDraft           BulkActionType = "draft"
	BulkPublishStaged   BulkActionType = "publish-staged"
	BulkArchive         BulkActionType = "archive"
	BulkUnarchive       BulkActionType = "unarchive"
	BulkDelete          BulkActionType = "delete"
	BulkPermanentDelete BulkActionType = "permanent-delete"
)

// IsValidBulkAction проверяет допустимость массового действия.
func IsValidBulkAction(a BulkActionType) bool {
	switch a {
	case BulkPublish, BulkDraft, BulkPublishStaged, BulkArchive,
		BulkUnarchive, BulkDelete, BulkPermanentDelete:
		return true
	}
	return false
}

// BulkFailure — ошибка одной записи массовой операции.
type BulkFailure struct {
	// ID — идентификатор записи
	ID string
	// Err — ошибка операции
	Err error
}

// BulkResult — результат массовой операции с изоляцией ошибок по записям.
type BulkResult struct {
	// Succeeded — id успешно обработанных записей
	Succeeded []string
	// Failures — ошибки по записям
	Failures []BulkFailure
}

// BulkAction применяет действие к каждому id независимо: ошибка одной
// записи не прерывает обработку остальных.
func (s *EntriesService) BulkAction(ctx context.Context, actor Actor, action BulkActionType, ids []string) (*BulkResult, error) {
	if !IsValidBulkAction(action) {
		return nil, NewValidationError("action", fmt.Sprintf("недопустимое действие %q", action))
	}

	result := &BulkResult{}
	for _, id := range ids {
		if err := s.applyBulkAction(ctx, actor, action, id); err != nil {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
			s.logger.Warn("Ошибка массовой операции для записи",
				slog.String("action", string(action)),
				slog.String("entry_id", id),
				slog.String("error", err.Error()),
			)
		} else {
			result.Succeeded = append(result.Succeeded, id)
		}
	}

	s.logger.Info("Массовая операция завершена",
		slog.String("action", string(action)),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failures)),
	)

	return result, nil
}

// applyBulkAction применяет одно массовое действие к одной записи.
// Переходы те же, что у одиночных операций.
func (s *EntriesService) applyBulkAction(ctx context.Context, actor Actor, action BulkActionType, id string) error {
	switch action {
	case BulkPublish:
		return s.setStatus(ctx, actor, id, model.StatusPublished)
	case BulkDraft:
		return s.setStatus(ctx, actor, id, model.StatusDraft)
	case BulkPublishStaged:
		_, err := s.PublishStaged(ctx, actor, id)
		return err
	case BulkArchive:
		return s.Archive(ctx, actor, id)
	case BulkUnarchive:
		_, err := s.Unarchive(ctx, actor, id)
		return err
	case BulkDelete:
		return s.Delete(ctx, actor, recordstore.StoreLive, id)
	case BulkPermanentDelete:
		return s.Delete(ctx, actor, recordstore.StoreArchived, id)
	default:
		return NewValidationError("action", fmt.Sprintf("недопустимое действие %q", action))
	}
}

// setStatus — прямая смена статуса записи (массовые publish/draft).
// Смена статуса сбрасывает staged-правки, как прямое обновление.
func (s *EntriesService) setStatus(ctx context.Context, actor Actor, id, status string) error {
	entry, err := s.getOwned(ctx, recordstore.StoreLive, id, actor)
	if err != nil {
		return err
	}
	if entry.Status == status {
		return nil
	}

	data := map[string]any{
		"status":             status,
		"has_staged_changes": false,
	}
	clearStagedFields(data)

	if err := s.store.Update(ctx, recordstore.CollectionEntries, id, data, nil); err != nil {
		return err
	}

	action := model.ActionEntryPublish
	if status == model.StatusDraft {
		action = model.ActionEntryUnpublish
	}
	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           action,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     id,
		IP:               actor.IP,
	})

	return nil
}

// --- Вспомогательные функции ---

// clearStagedFields добавляет в карту обновления явные null для всех
// staged-полей.
func clearStagedFields(data map[string]any) {
	for _, f := range []string{
		"staged_title", "staged_type", "staged_content", "staged_tags",
		"staged_collection", "staged_header", "staged_footer", "staged_roadmap_stage",
	} {
		if _, ok := data[f]; !ok {
			data[f] = nil
		}
	}
}

// nullableString возвращает nil для пустой строки (сериализуется как null).
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
