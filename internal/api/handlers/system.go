// system.go — системные обработчики админ-API.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetVersion — GET /api/v1/system/version.
// Возвращает текущую и последнюю доступную версии. Результат
// кешируется; ?refresh=1 принудительно сбрасывает кеш.
func (h *APIHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		h.version.ForceRefresh()
	}

	writeJSON(w, http.StatusOK, h.version.Check(r.Context()))
}

// ClearEntryViewLogs — DELETE /api/v1/entries/{id}/view-logs.
// Сбрасывает журнал дедупликации просмотров записи; счётчик просмотров
// в record store не трогается.
func (h *APIHandler) ClearEntryViewLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.views.ClearViewLogs(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
