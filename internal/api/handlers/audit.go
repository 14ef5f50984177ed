// audit.go — обработчики журнала аудита (только роль admin).
package handlers

import (
	"net/http"

	"github.com/devalphasystem/contenthub/internal/api/middleware"
)

// ListAuditLogs — GET /api/v1/audit-logs. Новые записи первыми.
func (h *APIHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	records, total, err := h.audit.List(r.Context(), page, perPage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      records,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
	})
}

// ClearAuditLogs — DELETE /api/v1/audit-logs. Массовая очистка журнала.
func (h *APIHandler) ClearAuditLogs(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.audit.Clear(r.Context(), middleware.SubjectFromContext(r.Context()), clientIP(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// auditStatusResponse — состояние журнала аудита.
type auditStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// AuditStatus — GET /api/v1/audit-logs/status.
func (h *APIHandler) AuditStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auditStatusResponse{Enabled: h.audit.Enabled()})
}
