package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
)

var testActor = Actor{UserID: "user1", IP: "10.0.0.1"}

// newEntriesFixture собирает сервис записей поверх in-memory store.
func newEntriesFixture() (*fakeStore, *EntriesService, *fakeViewLogs, *fakeDurations) {
	store := newFakeStore()
	logs := &fakeViewLogs{}
	durs := &fakeDurations{}
	audit := NewAuditRecorder(store, true, testLogger())
	svc := NewEntriesService(store, audit, logs, durs, testLogger())
	return store, svc, logs, durs
}

func validInput() EntryInput {
	return EntryInput{
		Title:   "Руководство",
		Type:    model.TypeDocumentation,
		Content: "# Введение",
		Status:  model.StatusDraft,
	}
}

func mustCreate(t *testing.T, svc *EntriesService, input EntryInput) *model.Entry {
	t.Helper()
	entry, err := svc.Create(context.Background(), testActor, input, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return entry
}

func getEntry(t *testing.T, store *fakeStore, col recordstore.Collection, id string) *model.Entry {
	t.Helper()
	var entry model.Entry
	if err := store.Get(context.Background(), col, id, &entry); err != nil {
		t.Fatalf("Get %s/%s: %v", col, id, err)
	}
	return &entry
}

func hasAction(store *fakeStore, action string) bool {
	for _, a := range store.actions() {
		if a == action {
			return true
		}
	}
	return false
}

func TestEntriesCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("генерация id и владелец", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()

		entry := mustCreate(t, svc, validInput())

		if len(entry.ID) != recordIDLength {
			t.Errorf("длина id = %d, ожидалось %d", len(entry.ID), recordIDLength)
		}
		if entry.Owner != testActor.UserID {
			t.Errorf("owner = %q, ожидалось %q", entry.Owner, testActor.UserID)
		}
		if entry.Views != 0 {
			t.Errorf("views = %d, ожидалось 0", entry.Views)
		}
		if entry.HasStagedChanges {
			t.Error("новая запись не должна иметь staged-правок")
		}
		if !hasAction(store, model.ActionEntryCreate) {
			t.Error("событие ENTRY_CREATE не записано в аудит")
		}
	})

	t.Run("явный id", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		entry, err := svc.Create(ctx, testActor, validInput(), "abcdefghij12345")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if entry.ID != "abcdefghij12345" {
			t.Errorf("id = %q, ожидался явно заданный", entry.ID)
		}
	})

	t.Run("явный id неверной длины", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		_, err := svc.Create(ctx, testActor, validInput(), "short")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ожидалась ValidationError, получено %v", err)
		}
		if _, ok := verr.Fields["id"]; !ok {
			t.Errorf("ожидалась ошибка по полю id, получено %v", verr.Fields)
		}
	})

	t.Run("занятый явный id", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		if _, err := svc.Create(ctx, testActor, validInput(), "abcdefghij12345"); err != nil {
			t.Fatalf("первый Create: %v", err)
		}
		_, err := svc.Create(ctx, testActor, validInput(), "abcdefghij12345")
		if !errors.Is(err, ErrIDTaken) {
			t.Errorf("ожидалась ErrIDTaken, получено %v", err)
		}
	})

	t.Run("нормализация sidebar_header", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		entry := mustCreate(t, svc, EntryInput{
			Title:   "Раздел API",
			Type:    model.TypeSidebarHeader,
			Content: "этот текст должен быть отброшен",
			Tags:    "a,b",
			Status:  model.StatusDraft,
		})

		if entry.Content != "" || entry.Tags != "" || entry.Collection != "" {
			t.Errorf("контентные поля sidebar_header должны быть пустыми: %+v", entry)
		}
		if entry.Status != model.StatusPublished {
			t.Errorf("status = %q, sidebar_header всегда published", entry.Status)
		}
		if !entry.ShowInProjectSidebar {
			t.Error("sidebar_header должен отображаться в сайдбаре")
		}
	})

	t.Run("roadmap_stage обнуляется для не-roadmap", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.RoadmapStage = "Planned"
		entry := mustCreate(t, svc, input)

		if entry.RoadmapStage != "" {
			t.Errorf("roadmap_stage = %q, ожидалось пустое", entry.RoadmapStage)
		}
	})
}

func TestEntriesValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		input EntryInput
		field string
	}{
		{
			name:  "пустой заголовок",
			input: EntryInput{Title: "   ", Type: model.TypeDocumentation, Content: "x"},
			field: "title",
		},
		{
			name:  "недопустимый тип",
			input: EntryInput{Title: "t", Type: "wiki", Content: "x"},
			field: "type",
		},
		{
			name:  "недопустимый статус",
			input: EntryInput{Title: "t", Type: model.TypeDocumentation, Content: "x", Status: "pending"},
			field: "status",
		},
		{
			name:  "пустой контент для documentation",
			input: EntryInput{Title: "t", Type: model.TypeDocumentation, Content: "  "},
			field: "content",
		},
		{
			name:  "roadmap без этапа",
			input: EntryInput{Title: "t", Type: model.TypeRoadmap},
			field: "roadmap_stage",
		},
		{
			name:  "roadmap с неизвестным этапом",
			input: EntryInput{Title: "t", Type: model.TypeRoadmap, RoadmapStage: "Someday"},
			field: "roadmap_stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc, _, _ := newEntriesFixture()

			_, err := svc.Create(ctx, testActor, tt.input, "")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ожидалась ValidationError, получено %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("ожидалась ошибка по полю %q, получено %v", tt.field, verr.Fields)
			}
			if store.count(recordstore.CollectionEntries) != 0 {
				t.Error("ошибка валидации не должна создавать запись")
			}
		})
	}

	t.Run("roadmap с корректным этапом", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		entry := mustCreate(t, svc, EntryInput{
			Title:        "План",
			Type:         model.TypeRoadmap,
			RoadmapStage: "In Progress",
		})
		if entry.RoadmapStage != "In Progress" {
			t.Errorf("roadmap_stage = %q", entry.RoadmapStage)
		}
	})
}

func TestEntriesOwnership(t *testing.T) {
	ctx := context.Background()
	_, svc, _, _ := newEntriesFixture()
	entry := mustCreate(t, svc, validInput())

	stranger := Actor{UserID: "user2", IP: "10.0.0.2"}

	t.Run("чужая запись недоступна", func(t *testing.T) {
		if _, err := svc.Get(ctx, stranger, recordstore.StoreLive, entry.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("ожидалась ErrForbidden, получено %v", err)
		}
	})

	t.Run("несуществующая запись", func(t *testing.T) {
		if _, err := svc.Get(ctx, testActor, recordstore.StoreLive, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ожидалась ErrNotFound, получено %v", err)
		}
	})
}

func TestEntriesUpdateStaging(t *testing.T) {
	ctx := context.Background()

	t.Run("published поверх published уходит в staged", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.Status = model.StatusPublished
		input.Collection = "guides"
		entry := mustCreate(t, svc, input)

		changed := input
		changed.Title = "Новый заголовок"
		changed.Collection = "handbook"
		if _, err := svc.Update(ctx, testActor, entry.ID, changed); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got := getEntry(t, store, recordstore.CollectionEntries, entry.ID)
		if got.Title != "Руководство" {
			t.Errorf("живой title = %q, не должен меняться при staging", got.Title)
		}
		if got.StagedTitle == nil || *got.StagedTitle != "Новый заголовок" {
			t.Errorf("staged_title = %v, ожидалось новое значение", got.StagedTitle)
		}
		if !got.HasStagedChanges {
			t.Error("has_staged_changes должен быть true")
		}
		// collection не стейджится: живое значение обновляется сразу,
		// теневого не появляется
		if got.Collection != "handbook" {
			t.Errorf("collection = %q, должна обновиться немедленно", got.Collection)
		}
		if got.StagedCollection != nil {
			t.Errorf("staged_collection = %v, не должна устанавливаться", got.StagedCollection)
		}
		if !hasAction(store, model.ActionEntryStageChanges) {
			t.Error("событие ENTRY_STAGE_CHANGES не записано")
		}
	})

	t.Run("публикация черновика", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())

		changed := validInput()
		changed.Status = model.StatusPublished
		updated, err := svc.Update(ctx, testActor, entry.ID, changed)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Status != model.StatusPublished {
			t.Errorf("status = %q", updated.Status)
		}
		if !hasAction(store, model.ActionEntryPublish) {
			t.Error("событие ENTRY_PUBLISH не записано")
		}
	})

	t.Run("снятие с публикации сбрасывает staged", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.Status = model.StatusPublished
		entry := mustCreate(t, svc, input)

		staged := input
		staged.Title = "Черновая правка"
		if _, err := svc.Update(ctx, testActor, entry.ID, staged); err != nil {
			t.Fatalf("staging Update: %v", err)
		}

		back := validInput()
		back.Status = model.StatusDraft
		if _, err := svc.Update(ctx, testActor, entry.ID, back); err != nil {
			t.Fatalf("unpublish Update: %v", err)
		}

		got := getEntry(t, store, recordstore.CollectionEntries, entry.ID)
		if got.HasStagedChanges || got.StagedTitle != nil {
			t.Errorf("staged-правки должны быть сброшены: %+v", got)
		}
		if !hasAction(store, model.ActionEntryUnpublish) {
			t.Error("событие ENTRY_UNPUBLISH не записано")
		}
	})

	t.Run("правка черновика", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())

		changed := validInput()
		changed.Title = "Обновлённый черновик"
		updated, err := svc.Update(ctx, testActor, entry.ID, changed)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Title != "Обновлённый черновик" {
			t.Errorf("title = %q", updated.Title)
		}
		if !hasAction(store, model.ActionEntryUpdate) {
			t.Error("событие ENTRY_UPDATE не записано")
		}
	})

	t.Run("несуществующая запись", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()
		if _, err := svc.Update(ctx, testActor, "missing", validInput()); !errors.Is(err, ErrNotFound) {
			t.Errorf("ожидалась ErrNotFound, получено %v", err)
		}
	})
}

func TestPublishStaged(t *testing.T) {
	ctx := context.Background()

	t.Run("staged-поля переносятся в живые", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.Status = model.StatusPublished
		input.Collection = "guides"
		entry := mustCreate(t, svc, input)

		staged := input
		staged.Title = "Финальный заголовок"
		if _, err := svc.Update(ctx, testActor, entry.ID, staged); err != nil {
			t.Fatalf("staging Update: %v", err)
		}

		updated, err := svc.PublishStaged(ctx, testActor, entry.ID)
		if err != nil {
			t.Fatalf("PublishStaged: %v", err)
		}
		if updated.Title != "Финальный заголовок" {
			t.Errorf("title = %q, ожидался staged-заголовок", updated.Title)
		}
		if updated.HasStagedChanges {
			t.Error("has_staged_changes должен сброситься")
		}
		if updated.StagedTitle != nil {
			t.Error("staged_title должен очиститься")
		}
		// staged_collection никогда не устанавливается, поэтому полный
		// перенос записывает null и очищает живую collection
		if updated.Collection != "" {
			t.Errorf("collection = %q, перенос staged-полей перезаписывает её null", updated.Collection)
		}
	})

	t.Run("черновик не публикуется", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())

		if _, err := svc.PublishStaged(ctx, testActor, entry.ID); !errors.Is(err, ErrNotPublishable) {
			t.Errorf("ожидалась ErrNotPublishable, получено %v", err)
		}
	})

	t.Run("без staged-правок", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.Status = model.StatusPublished
		entry := mustCreate(t, svc, input)

		if _, err := svc.PublishStaged(ctx, testActor, entry.ID); !errors.Is(err, ErrNotPublishable) {
			t.Errorf("ожидалась ErrNotPublishable, получено %v", err)
		}
	})
}

func TestEntriesArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("перенос в архив с original_id", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()

		input := validInput()
		input.Status = model.StatusPublished
		entry := mustCreate(t, svc, input)

		store.seed(recordstore.CollectionPreviewTokens, "tok1", map[string]any{
			"token":      "deadbeef",
			"entry":      entry.ID,
			"expires_at": time.Now().UTC().Add(time.Hour),
		})

		if err := svc.Archive(ctx, testActor, entry.ID); err != nil {
			t.Fatalf("Archive: %v", err)
		}

		if store.count(recordstore.CollectionEntries) != 0 {
			t.Error("живая запись должна быть удалена")
		}
		archived := store.records(recordstore.CollectionArchive)
		if len(archived) != 1 {
			t.Fatalf("архивных записей %d, ожидалась 1", len(archived))
		}
		if archived[0]["original_id"] != entry.ID {
			t.Errorf("original_id = %v, ожидался %q", archived[0]["original_id"], entry.ID)
		}
		if store.count(recordstore.CollectionPreviewTokens) != 0 {
			t.Error("preview-токены записи должны быть зачищены")
		}
		if !hasAction(store, model.ActionEntryArchive) {
			t.Error("событие ENTRY_ARCHIVE не записано")
		}
	})

	t.Run("sidebar_header удаляется вместо архивации", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()

		entry := mustCreate(t, svc, EntryInput{Title: "Раздел", Type: model.TypeSidebarHeader})

		if err := svc.Archive(ctx, testActor, entry.ID); err != nil {
			t.Fatalf("Archive: %v", err)
		}

		if store.count(recordstore.CollectionEntries) != 0 {
			t.Error("sidebar_header должен быть удалён")
		}
		if store.count(recordstore.CollectionArchive) != 0 {
			t.Error("sidebar_header не должен попадать в архив")
		}

		found := false
		for _, rec := range store.records(recordstore.CollectionAuditLogs) {
			if rec["action"] != model.ActionEntryDelete {
				continue
			}
			details, _ := rec["details"].(map[string]any)
			if details["reason"] == "sidebar_header_not_archivable" {
				found = true
			}
		}
		if !found {
			t.Error("удаление должно фиксироваться с причиной sidebar_header_not_archivable")
		}
	})
}

func TestEntriesUnarchive(t *testing.T) {
	ctx := context.Background()

	archive := func(t *testing.T) (*fakeStore, *EntriesService, string, string) {
		t.Helper()
		store, svc, _, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())
		if err := svc.Archive(ctx, testActor, entry.ID); err != nil {
			t.Fatalf("Archive: %v", err)
		}
		archived := store.records(recordstore.CollectionArchive)
		if len(archived) != 1 {
			t.Fatalf("архивных записей %d", len(archived))
		}
		return store, svc, entry.ID, archived[0]["id"].(string)
	}

	t.Run("восстановление под исходным id", func(t *testing.T) {
		store, svc, originalID, archivedID := archive(t)

		restored, err := svc.Unarchive(ctx, testActor, archivedID)
		if err != nil {
			t.Fatalf("Unarchive: %v", err)
		}
		if restored.ID != originalID {
			t.Errorf("id = %q, ожидался исходный %q", restored.ID, originalID)
		}
		if store.count(recordstore.CollectionArchive) != 0 {
			t.Error("архивная копия должна быть удалена")
		}
		if !hasAction(store, model.ActionEntryUnarchive) {
			t.Error("событие ENTRY_UNARCHIVE не записано")
		}
	})

	t.Run("конфликт с живой записью", func(t *testing.T) {
		_, svc, originalID, archivedID := archive(t)

		if _, err := svc.Create(ctx, testActor, validInput(), originalID); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := svc.Unarchive(ctx, testActor, archivedID); !errors.Is(err, ErrUnarchiveConflict) {
			t.Errorf("ожидалась ErrUnarchiveConflict, получено %v", err)
		}
	})

	t.Run("архивная запись без original_id", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		store.seed(recordstore.CollectionArchive, "brokenrec123456", map[string]any{
			"owner": testActor.UserID,
			"title": "Сломанная",
			"type":  model.TypeDocumentation,
		})

		if _, err := svc.Unarchive(ctx, testActor, "brokenrec123456"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ожидалась ErrNotFound, получено %v", err)
		}
	})
}

func TestEntriesDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("зачистка зависимых данных живой записи", func(t *testing.T) {
		store, svc, logs, durs := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())

		logs.rows = append(logs.rows, model.ViewLogRow{EntryID: entry.ID, IPHash: "h", ViewedAt: time.Now()})
		durs.rows = append(durs.rows, model.ViewDurationRow{ID: "d1", EntryID: entry.ID, DurationSeconds: 5})
		store.seed(recordstore.CollectionPreviewTokens, "tok1", map[string]any{
			"token": "cafe", "entry": entry.ID, "expires_at": time.Now().Add(time.Hour),
		})

		if err := svc.Delete(ctx, testActor, recordstore.StoreLive, entry.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if store.count(recordstore.CollectionEntries) != 0 {
			t.Error("запись должна быть удалена")
		}
		if len(logs.rows) != 0 {
			t.Error("журнал просмотров должен быть зачищен")
		}
		if len(durs.rows) != 0 {
			t.Error("журнал длительностей должен быть зачищен")
		}
		if store.count(recordstore.CollectionPreviewTokens) != 0 {
			t.Error("preview-токены должны быть зачищены")
		}
		if !hasAction(store, model.ActionEntryDelete) {
			t.Error("событие ENTRY_DELETE не записано")
		}
	})

	t.Run("зависимые данные архивной записи по original_id", func(t *testing.T) {
		store, svc, logs, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())
		if err := svc.Archive(ctx, testActor, entry.ID); err != nil {
			t.Fatalf("Archive: %v", err)
		}
		archivedID := store.records(recordstore.CollectionArchive)[0]["id"].(string)

		logs.rows = append(logs.rows, model.ViewLogRow{EntryID: entry.ID, IPHash: "h", ViewedAt: time.Now()})

		if err := svc.Delete(ctx, testActor, recordstore.StoreArchived, archivedID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if len(logs.rows) != 0 {
			t.Error("журнал просмотров должен зачищаться по исходному id")
		}
	})

	t.Run("ошибка зачистки не валит удаление", func(t *testing.T) {
		store, svc, logs, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())
		logs.deleteErr = errors.New("pg down")

		if err := svc.Delete(ctx, testActor, recordstore.StoreLive, entry.ID); err != nil {
			t.Fatalf("Delete должен проглотить ошибку зачистки: %v", err)
		}
		if store.count(recordstore.CollectionEntries) != 0 {
			t.Error("запись должна быть удалена")
		}
	})
}

func TestBulkAction(t *testing.T) {
	ctx := context.Background()

	t.Run("недопустимое действие", func(t *testing.T) {
		_, svc, _, _ := newEntriesFixture()

		_, err := svc.BulkAction(ctx, testActor, "explode", []string{"a"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ожидалась ValidationError, получено %v", err)
		}
	})

	t.Run("изоляция ошибок по записям", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		e1 := mustCreate(t, svc, validInput())
		e2 := mustCreate(t, svc, validInput())

		result, err := svc.BulkAction(ctx, testActor, BulkPublish, []string{e1.ID, "missing000000ab", e2.ID})
		if err != nil {
			t.Fatalf("BulkAction: %v", err)
		}
		if len(result.Succeeded) != 2 {
			t.Errorf("succeeded = %v, ожидались обе существующие записи", result.Succeeded)
		}
		if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, ErrNotFound) {
			t.Errorf("failures = %+v, ожидалась одна ErrNotFound", result.Failures)
		}

		got := getEntry(t, store, recordstore.CollectionEntries, e1.ID)
		if got.Status != model.StatusPublished {
			t.Errorf("status = %q, ожидался published", got.Status)
		}
	})

	t.Run("publish без смены статуса является no-op", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		input := validInput()
		input.Status = model.StatusPublished
		entry := mustCreate(t, svc, input)
		before := store.count(recordstore.CollectionAuditLogs)

		result, err := svc.BulkAction(ctx, testActor, BulkPublish, []string{entry.ID})
		if err != nil {
			t.Fatalf("BulkAction: %v", err)
		}
		if len(result.Succeeded) != 1 {
			t.Errorf("succeeded = %v", result.Succeeded)
		}
		if store.count(recordstore.CollectionAuditLogs) != before {
			t.Error("no-op смена статуса не должна писать аудит")
		}
	})

	t.Run("массовое архивирование и удаление из архива", func(t *testing.T) {
		store, svc, _, _ := newEntriesFixture()
		entry := mustCreate(t, svc, validInput())

		if _, err := svc.BulkAction(ctx, testActor, BulkArchive, []string{entry.ID}); err != nil {
			t.Fatalf("BulkArchive: %v", err)
		}
		archivedID := store.records(recordstore.CollectionArchive)[0]["id"].(string)

		result, err := svc.BulkAction(ctx, testActor, BulkPermanentDelete, []string{archivedID})
		if err != nil {
			t.Fatalf("BulkPermanentDelete: %v", err)
		}
		if len(result.Failures) != 0 {
			t.Errorf("failures = %+v", result.Failures)
		}
		if store.count(recordstore.CollectionArchive) != 0 {
			t.Error("архивная запись должна быть удалена")
		}
	})
}

func TestEntriesList(t *testing.T) {
	ctx := context.Background()
	_, svc, _, _ := newEntriesFixture()

	mustCreate(t, svc, validInput())
	mustCreate(t, svc, validInput())

	stranger := Actor{UserID: "user2"}
	input := validInput()
	if _, err := svc.Create(ctx, stranger, input, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, total, err := svc.List(ctx, testActor, recordstore.StoreLive, 1, 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Errorf("total = %d, len = %d, ожидались только записи владельца", total, len(entries))
	}
	for _, e := range entries {
		if e.Owner != testActor.UserID {
			t.Errorf("в выдаче чужая запись: %+v", e)
		}
	}
}
