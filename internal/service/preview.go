// preview.go — выдача и проверка preview-токенов.
//
// Токен даёт ограниченный по времени доступ на чтение draft/staged
// контента одной записи, опционально под паролем. Пароли хэшируются
// HMAC-SHA256 под серверной солью; проверка — constant-time.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/session"
)

// PreviewService — сервис preview-токенов.
type PreviewService struct {
	store   recordstore.Store
	audit   *AuditRecorder
	baseURL string
	expiry  time.Duration
	salt    string
	logger  *slog.Logger

	// now подменяется в тестах для проверки границы истечения
	now func() time.Time
}

// NewPreviewService создаёт сервис preview-токенов.
// expiry — срок жизни токена; salt — серверная соль HMAC паролей.
func NewPreviewService(store recordstore.Store, audit *AuditRecorder, baseURL string, expiry time.Duration, salt string, logger *slog.Logger) *PreviewService {
	return &PreviewService{
		store:   store,
		audit:   audit,
		baseURL: strings.TrimRight(baseURL, "/"),
		expiry:  expiry,
		salt:    salt,
		logger:  logger.With(slog.String("component", "preview")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssuedToken — результат выдачи preview-токена.
type IssuedToken struct {
	// Token — hex-представление токена
	Token string `json:"token"`
	// URL — полная preview-ссылка
	URL string `json:"url"`
	// ExpiresAt — время истечения
	ExpiresAt time.Time `json:"expires_at"`
	// HasPassword — установлен ли пароль
	HasPassword bool `json:"has_password"`
}

// IssueToken выдаёт preview-токен для черновика записи.
// Запись должна принадлежать вызывающему и быть в статусе draft.
// Все предыдущие токены записи удаляются: активен не более одного.
// Пароль из пробелов равносилен отсутствию пароля.
func (s *PreviewService) IssueToken(ctx context.Context, actor Actor, entryID, plaintextPassword string) (*IssuedToken, error) {
	var entry model.Entry
	if err := s.store.Get(ctx, recordstore.CollectionEntries, entryID, &entry); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, fmt.Errorf("запись %s: %w", entryID, ErrNotFound)
		}
		return nil, err
	}
	if entry.Owner != actor.UserID {
		return nil, fmt.Errorf("запись %s принадлежит другому пользователю: %w", entryID, ErrForbidden)
	}
	if entry.Status != model.StatusDraft {
		return nil, NewValidationError("status", "предпросмотр доступен только для черновиков")
	}

	// Удаляем существующие токены записи (не более одного активного).
	// Гонка двух конкурентных выдач может на мгновение оставить ноль
	// или два токена; периодическая уборка и само намерение "не более
	// одного" — best-effort, не транзакционная гарантия.
	s.deleteTokensForEntry(ctx, entryID)

	tokenHex, err := randomTokenHex()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.expiry)

	password := strings.TrimSpace(plaintextPassword)
	passwordHash := ""
	if password != "" {
		passwordHash = s.hashPassword(password)
	}

	data := map[string]any{
		"token":         tokenHex,
		"entry":         entryID,
		"expires_at":    expiresAt,
		"password_hash": passwordHash,
	}
	if err := s.store.Create(ctx, recordstore.CollectionPreviewTokens, data, nil); err != nil {
		return nil, fmt.Errorf("создание preview-токена для %s: %w", entryID, err)
	}

	s.audit.Record(ctx, AuditEvent{
		User:             actor.UserID,
		Action:           model.ActionPreviewCreate,
		TargetCollection: string(recordstore.CollectionEntries),
		TargetRecord:     entryID,
		IP:               actor.IP,
		Details:          map[string]any{"has_password": passwordHash != "", "expires_at": expiresAt},
	})

	s.logger.Info("Preview-токен выдан",
		slog.String("entry_id", entryID),
		slog.Bool("has_password", passwordHash != ""),
		slog.Time("expires_at", expiresAt),
	)

	return &IssuedToken{
		Token:       tokenHex,
		URL:         s.baseURL + "/preview/" + tokenHex,
		ExpiresAt:   expiresAt,
		HasPassword: passwordHash != "",
	}, nil
}

// ResolveOutcome — исход разрешения preview-токена.
type ResolveOutcome int

const (
	// ResolveGranted — доступ предоставлен, контент можно отдавать.
	ResolveGranted ResolveOutcome = iota
	// ResolvePasswordRequired — токен валиден, но требует проверки пароля.
	ResolvePasswordRequired
	// ResolveInvalid — токен не существует или истёк (снаружи неразличимо).
	ResolveInvalid
)

// Resolution — результат разрешения preview-токена.
type Resolution struct {
	Outcome ResolveOutcome
	// Entry — запись предпросмотра (заполнена только при ResolveGranted)
	Entry *model.Entry
}

// ResolveToken разрешает preview-токен. Отсутствующий и истёкший токены
// неразличимы (оба дают ResolveInvalid) — страница недействительного
// предпросмотра не раскрывает, существовал ли токен.
// Если токен защищён паролем и сессия его ещё не проходила —
// ResolvePasswordRequired.
func (s *PreviewService) ResolveToken(ctx context.Context, tokenHex string, sess *session.Data) (*Resolution, error) {
	token, err := s.findToken(ctx, tokenHex)
	if err != nil {
		if errors.Is(err, ErrInvalidPreview) {
			return &Resolution{Outcome: ResolveInvalid}, nil
		}
		return nil, err
	}

	if token.HasPassword() && !sess.HasPreviewAccess(tokenHex) {
		return &Resolution{Outcome: ResolvePasswordRequired}, nil
	}

	var entry model.Entry
	if err := s.store.Get(ctx, recordstore.CollectionEntries, token.Entry, &entry); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			// Запись удалена, токен осиротел — для посетителя это
			// такой же недействительный предпросмотр
			return &Resolution{Outcome: ResolveInvalid}, nil
		}
		return nil, err
	}

	return &Resolution{Outcome: ResolveGranted, Entry: &entry}, nil
}

// VerifyPassword проверяет пароль preview-токена и при совпадении
// отмечает токен пройденным в сессии. Несовпадение возвращает
// ErrIncorrectPassword, не раскрывая, какая часть проверки не прошла;
// сессия при этом не меняется.
func (s *PreviewService) VerifyPassword(ctx context.Context, tokenHex, plaintextPassword, ip string, sess *session.Data) error {
	token, err := s.findToken(ctx, tokenHex)
	if err != nil {
		return err
	}

	submitted := s.hashPassword(strings.TrimSpace(plaintextPassword))
	if !hmac.Equal([]byte(submitted), []byte(token.PasswordHash)) {
		s.audit.Record(ctx, AuditEvent{
			Action:           model.ActionPreviewPwdCheck,
			TargetCollection: string(recordstore.CollectionPreviewTokens),
			TargetRecord:     token.ID,
			IP:               ip,
			Details:          map[string]any{"result": "failure"},
		})
		return ErrIncorrectPassword
	}

	sess.GrantPreviewAccess(tokenHex)

	s.audit.Record(ctx, AuditEvent{
		Action:           model.ActionPreviewPwdCheck,
		TargetCollection: string(recordstore.CollectionPreviewTokens),
		TargetRecord:     token.ID,
		IP:               ip,
		Details:          map[string]any{"result": "success"},
	})

	return nil
}

// findToken загружает токен по hex-значению и проверяет срок действия.
// Токен валиден строго при now < expires_at; в момент now == expires_at
// он уже истёк. Граница проверяется здесь, а не фильтром backend'а.
func (s *PreviewService) findToken(ctx context.Context, tokenHex string) (*model.PreviewToken, error) {
	var token model.PreviewToken
	err := s.store.GetOne(ctx, recordstore.CollectionPreviewTokens, recordstore.Eq("token", tokenHex), &token)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrInvalidPreview
		}
		return nil, err
	}

	if token.IsExpired(s.now()) {
		return nil, ErrInvalidPreview
	}

	return &token, nil
}

// deleteTokensForEntry удаляет все токены записи (best-effort).
func (s *PreviewService) deleteTokensForEntry(ctx context.Context, entryID string) {
	res, err := s.store.List(ctx, recordstore.CollectionPreviewTokens, 1, 100, recordstore.ListOptions{
		Filter: recordstore.Eq("entry", entryID),
		Fields: "id",
	})
	if err != nil {
		s.logger.Warn("Ошибка поиска существующих preview-токенов",
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
			s.logger.Warn("Ошибка удаления предыдущего preview-токена",
				slog.String("token_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// hashPassword вычисляет HMAC-SHA256 пароля под серверной солью.
func (s *PreviewService) hashPassword(password string) string {
	mac := hmac.New(sha256.New, []byte(s.salt))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// randomTokenHex генерирует случайный 256-битный токен в hex.
func randomTokenHex() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("генерация preview-токена: %w", err)
	}
	return hex.EncodeToString(b), nil
}
