// preview.go — обработчики preview-токенов.
// Выдача — админ-API; разрешение и проверка пароля — публичные
// endpoints, работающие с зашифрованной cookie-сессией.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/devalphasystem/contenthub/internal/api/errors"
	"github.com/devalphasystem/contenthub/internal/service"
)

// issuePreviewRequest — тело запроса выдачи preview-токена.
type issuePreviewRequest struct {
	// Password — опциональный пароль доступа; пустой или из пробелов —
	// без пароля
	Password string `json:"password"`
}

// IssuePreview — POST /api/v1/entries/{id}/preview.
// Выдаёт preview-токен для черновика; предыдущие токены записи
// удаляются.
func (h *APIHandler) IssuePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req issuePreviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
			return
		}
	}

	issued, err := h.preview.IssueToken(r.Context(), actorFromRequest(r), id, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, issued)
}

// previewResponse — ответ публичного preview endpoint'а.
type previewResponse struct {
	// Outcome — granted или password_required
	Outcome string `json:"outcome"`
	// Entry — разрешённое представление записи (только при granted)
	Entry any `json:"entry,omitempty"`
}

// ResolvePreview — GET /preview/{token}. Публичный endpoint.
// Недействительный и истёкший токены неразличимы: оба дают один и тот
// же ответ о недействительном предпросмотре, не раскрывая, существовал
// ли токен.
func (h *APIHandler) ResolvePreview(w http.ResponseWriter, r *http.Request) {
	tokenHex := chi.URLParam(r, "token")
	sess := h.sessions.FromRequest(r)

	res, err := h.preview.ResolveToken(r.Context(), tokenHex, sess)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	switch res.Outcome {
	case service.ResolvePasswordRequired:
		writeJSON(w, http.StatusOK, previewResponse{Outcome: "password_required"})
	case service.ResolveGranted:
		view := res.Entry.RenderView()
		writeJSON(w, http.StatusOK, previewResponse{Outcome: "granted", Entry: view})
	default:
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeInvalidPreview, "недействительная preview-ссылка")
	}
}

// previewPasswordRequest — тело запроса проверки пароля предпросмотра.
type previewPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPreviewPassword — POST /preview/{token}/password. Публичный endpoint.
// При совпадении пароля токен отмечается пройденным в cookie-сессии.
// Несовпадение возвращает общий "неверный пароль" без деталей;
// сессия не меняется.
func (h *APIHandler) VerifyPreviewPassword(w http.ResponseWriter, r *http.Request) {
	tokenHex := chi.URLParam(r, "token")

	var req previewPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	sess := h.sessions.FromRequest(r)

	err := h.preview.VerifyPassword(r.Context(), tokenHex, req.Password, clientIP(r), sess)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPreview) {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeInvalidPreview, "недействительная preview-ссылка")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if err := h.sessions.SetCookie(w, sess); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": "verified"})
}
