// public.go — публичные endpoints учёта просмотров и обратной связи.
// Вызываются страницами рендеринга без аутентификации.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/devalphasystem/contenthub/internal/api/errors"
	"github.com/devalphasystem/contenthub/internal/api/middleware"
)

// RecordView — POST /public/entries/{id}/view.
// Дедуплицированный инкремент счётчика просмотров. Просмотры
// аутентифицированных админов и ботов не учитываются.
func (h *APIHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Запрос из админки (валидный JWT в контексте) не считается
	fromAdmin := middleware.ClaimsFromContext(r.Context()) != nil

	counted, err := h.views.RecordView(r.Context(), id, clientIP(r), r.UserAgent(), fromAdmin)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"counted": counted})
}

// durationRequest — тело запроса замера длительности.
type durationRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

// RecordDuration — POST /public/entries/{id}/duration.
func (h *APIHandler) RecordDuration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req durationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	if err := h.views.RecordDuration(r.Context(), id, req.DurationSeconds, clientIP(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// feedbackRequest — тело запроса обратной связи.
type feedbackRequest struct {
	Helpful bool `json:"helpful"`
}

// RecordFeedback — POST /public/entries/{id}/feedback.
func (h *APIHandler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	if err := h.views.RecordFeedback(r.Context(), id, req.Helpful); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
