package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/session"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

// newPreviewFixture собирает сервис предпросмотра с фиксированным временем.
func newPreviewFixture(t *testing.T) (*fakeStore, *PreviewService, *EntriesService, time.Time) {
	t.Helper()
	store := newFakeStore()
	audit := NewAuditRecorder(store, true, testLogger())
	entries := NewEntriesService(store, audit, &fakeViewLogs{}, &fakeDurations{}, testLogger())

	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	preview := NewPreviewService(store, audit, "https://cms.example.com/", 6*time.Hour, "s3cret-salt", testLogger())
	preview.now = func() time.Time { return base }

	return store, preview, entries, base
}

func TestIssueToken(t *testing.T) {
	ctx := context.Background()

	t.Run("выдача для черновика", func(t *testing.T) {
		store, preview, entries, base := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())

		issued, err := preview.IssueToken(ctx, testActor, entry.ID, "")
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}

		if !hexToken.MatchString(issued.Token) {
			t.Errorf("токен %q не похож на 256-битный hex", issued.Token)
		}
		if issued.URL != "https://cms.example.com/preview/"+issued.Token {
			t.Errorf("url = %q", issued.URL)
		}
		if !issued.ExpiresAt.Equal(base.Add(6 * time.Hour)) {
			t.Errorf("expires_at = %v, ожидалось now+6h", issued.ExpiresAt)
		}
		if issued.HasPassword {
			t.Error("пароль не задавался")
		}
		if store.count(recordstore.CollectionPreviewTokens) != 1 {
			t.Errorf("токенов %d, ожидался 1", store.count(recordstore.CollectionPreviewTokens))
		}
		if !hasAction(store, model.ActionPreviewCreate) {
			t.Error("событие PREVIEW_CREATE не записано")
		}
	})

	t.Run("повторная выдача заменяет предыдущий токен", func(t *testing.T) {
		store, preview, entries, _ := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())

		first, err := preview.IssueToken(ctx, testActor, entry.ID, "")
		if err != nil {
			t.Fatalf("первая выдача: %v", err)
		}
		second, err := preview.IssueToken(ctx, testActor, entry.ID, "")
		if err != nil {
			t.Fatalf("вторая выдача: %v", err)
		}

		if store.count(recordstore.CollectionPreviewTokens) != 1 {
			t.Errorf("токенов %d, активен должен быть не более одного", store.count(recordstore.CollectionPreviewTokens))
		}
		if first.Token == second.Token {
			t.Error("повторная выдача должна дать новый токен")
		}
	})

	t.Run("пароль из пробелов равносилен отсутствию", func(t *testing.T) {
		_, preview, entries, _ := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())

		issued, err := preview.IssueToken(ctx, testActor, entry.ID, "   ")
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		if issued.HasPassword {
			t.Error("пароль из пробелов не должен считаться паролем")
		}
	})

	t.Run("только для черновиков", func(t *testing.T) {
		_, preview, entries, _ := newPreviewFixture(t)
		input := validInput()
		input.Status = model.StatusPublished
		entry := mustCreate(t, entries, input)

		_, err := preview.IssueToken(ctx, testActor, entry.ID, "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("ожидалась ValidationError, получено %v", err)
		}
	})

	t.Run("чужая запись", func(t *testing.T) {
		_, preview, entries, _ := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())

		_, err := preview.IssueToken(ctx, Actor{UserID: "user2"}, entry.ID, "")
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("ожидалась ErrForbidden, получено %v", err)
		}
	})

	t.Run("несуществующая запись", func(t *testing.T) {
		_, preview, _, _ := newPreviewFixture(t)

		_, err := preview.IssueToken(ctx, testActor, "missing000000ab", "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ожидалась ErrNotFound, получено %v", err)
		}
	})
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, password string) (*fakeStore, *PreviewService, *EntriesService, *model.Entry, string) {
		t.Helper()
		store, preview, entries, _ := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())
		issued, err := preview.IssueToken(ctx, testActor, entry.ID, password)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		return store, preview, entries, entry, issued.Token
	}

	t.Run("валидный токен без пароля", func(t *testing.T) {
		_, preview, _, entry, token := issue(t, "")

		res, err := preview.ResolveToken(ctx, token, &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveGranted {
			t.Fatalf("outcome = %v, ожидался ResolveGranted", res.Outcome)
		}
		if res.Entry == nil || res.Entry.ID != entry.ID {
			t.Errorf("entry = %+v, ожидалась запись %q", res.Entry, entry.ID)
		}
	})

	t.Run("неизвестный токен", func(t *testing.T) {
		_, preview, _, _, _ := issue(t, "")

		res, err := preview.ResolveToken(ctx, "0000000000000000", &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveInvalid {
			t.Errorf("outcome = %v, ожидался ResolveInvalid", res.Outcome)
		}
	})

	t.Run("истечение в точный момент expires_at", func(t *testing.T) {
		_, preview, _, _, token := issue(t, "")

		// За мгновение до границы токен ещё валиден
		preview.now = func() time.Time {
			return time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
		}
		res, err := preview.ResolveToken(ctx, token, &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveGranted {
			t.Errorf("outcome = %v, токен ещё не истёк", res.Outcome)
		}

		// Ровно в expires_at токен уже истёк и неотличим от несуществующего
		preview.now = func() time.Time {
			return time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
		}
		res, err = preview.ResolveToken(ctx, token, &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveInvalid {
			t.Errorf("outcome = %v, граница истечения эксклюзивная", res.Outcome)
		}
	})

	t.Run("пароль ещё не проверен", func(t *testing.T) {
		_, preview, _, _, token := issue(t, "hunter2")

		res, err := preview.ResolveToken(ctx, token, &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolvePasswordRequired {
			t.Errorf("outcome = %v, ожидался ResolvePasswordRequired", res.Outcome)
		}
		if res.Entry != nil {
			t.Error("контент не должен отдаваться до проверки пароля")
		}
	})

	t.Run("пароль уже проверен в сессии", func(t *testing.T) {
		_, preview, _, _, token := issue(t, "hunter2")

		sess := &session.Data{}
		sess.GrantPreviewAccess(token)

		res, err := preview.ResolveToken(ctx, token, sess)
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveGranted {
			t.Errorf("outcome = %v, ожидался ResolveGranted", res.Outcome)
		}
	})

	t.Run("осиротевший токен", func(t *testing.T) {
		store, preview, _, entry, token := issue(t, "")

		if err := store.Delete(ctx, recordstore.CollectionEntries, entry.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		res, err := preview.ResolveToken(ctx, token, &session.Data{})
		if err != nil {
			t.Fatalf("ResolveToken: %v", err)
		}
		if res.Outcome != ResolveInvalid {
			t.Errorf("outcome = %v, осиротевший токен недействителен", res.Outcome)
		}
	})
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T) (*fakeStore, *PreviewService, string) {
		t.Helper()
		store, preview, entries, _ := newPreviewFixture(t)
		entry := mustCreate(t, entries, validInput())
		issued, err := preview.IssueToken(ctx, testActor, entry.ID, "hunter2")
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		return store, preview, issued.Token
	}

	t.Run("верный пароль открывает сессию", func(t *testing.T) {
		store, preview, token := issue(t)
		sess := &session.Data{}

		if err := preview.VerifyPassword(ctx, token, "hunter2", "203.0.113.9", sess); err != nil {
			t.Fatalf("VerifyPassword: %v", err)
		}
		if !sess.HasPreviewAccess(token) {
			t.Error("сессия должна содержать отметку о пройденной проверке")
		}

		success := false
		for _, rec := range store.records(recordstore.CollectionAuditLogs) {
			if rec["action"] != model.ActionPreviewPwdCheck {
				continue
			}
			details, _ := rec["details"].(map[string]any)
			if details["result"] == "success" {
				success = true
			}
		}
		if !success {
			t.Error("успешная проверка пароля должна фиксироваться в аудите")
		}
	})

	t.Run("неверный пароль", func(t *testing.T) {
		store, preview, token := issue(t)
		sess := &session.Data{}

		err := preview.VerifyPassword(ctx, token, "wrong", "203.0.113.9", sess)
		if !errors.Is(err, ErrIncorrectPassword) {
			t.Fatalf("ожидалась ErrIncorrectPassword, получено %v", err)
		}
		if sess.HasPreviewAccess(token) {
			t.Error("сессия не должна меняться при неверном пароле")
		}

		failure := false
		for _, rec := range store.records(recordstore.CollectionAuditLogs) {
			if rec["action"] != model.ActionPreviewPwdCheck {
				continue
			}
			details, _ := rec["details"].(map[string]any)
			if details["result"] == "failure" {
				failure = true
			}
		}
		if !failure {
			t.Error("неудачная проверка пароля должна фиксироваться в аудите")
		}
	})

	t.Run("неизвестный токен", func(t *testing.T) {
		_, preview, _ := issue(t)

		err := preview.VerifyPassword(ctx, "ffff", "hunter2", "203.0.113.9", &session.Data{})
		if !errors.Is(err, ErrInvalidPreview) {
			t.Errorf("ожидалась ErrInvalidPreview, получено %v", err)
		}
	})
}
