// handler.go — основной обработчик API ContentHub.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/devalphasystem/contenthub/internal/api/errors"
	"github.com/devalphasystem/contenthub/internal/api/middleware"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/service"
	"github.com/devalphasystem/contenthub/internal/session"
)

// APIHandler — основной обработчик API ContentHub.
type APIHandler struct {
	health   *HealthHandler
	entries  *service.EntriesService
	preview  *service.PreviewService
	views    *service.ViewsService
	audit    *service.AuditRecorder
	version  *service.VersionService
	sessions *session.Manager
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	entries *service.EntriesService,
	preview *service.PreviewService,
	views *service.ViewsService,
	audit *service.AuditRecorder,
	version *service.VersionService,
	sessions *session.Manager,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		entries:  entries,
		preview:  preview,
		views:    views,
		audit:    audit,
		version:  version,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// actorFromRequest формирует Actor из claims контекста и адреса запроса.
func actorFromRequest(r *http.Request) service.Actor {
	return service.Actor{
		UserID: middleware.SubjectFromContext(r.Context()),
		IP:     clientIP(r),
	}
}

// clientIP извлекает адрес вызывающего: первый hop X-Forwarded-For,
// иначе адрес сокета.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeServiceError маппит ошибку сервисного слоя на HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	var apiErr *recordstore.APIError

	switch {
	case errors.As(err, &verr):
		apierrors.ValidationFields(w, verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrIDTaken):
		apierrors.IDTaken(w, err.Error())
	case errors.Is(err, service.ErrUnarchiveConflict):
		apierrors.UnarchiveConflict(w, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, recordstore.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrNotPublishable):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrIncorrectPassword):
		apierrors.WriteError(w, http.StatusForbidden, apierrors.CodeIncorrectPassword, "неверный пароль")
	case errors.Is(err, service.ErrInvalidPreview):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeInvalidPreview, "недействительная preview-ссылка")
	case errors.Is(err, recordstore.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.As(err, &apiErr):
		h.logger.Error("Ошибка record store", slog.String("error", err.Error()))
		apierrors.StoreUnavailable(w, "record store недоступен")
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "внутренняя ошибка сервера")
	}
}

// bulkItemError маппит ошибку одной записи массовой операции.
func bulkItemError(id string, err error) apierrors.BulkItemError {
	var verr *service.ValidationError

	item := apierrors.BulkItemError{ID: id, Message: err.Error()}
	switch {
	case errors.Is(err, service.ErrForbidden):
		item.Status = http.StatusForbidden
		item.Code = apierrors.CodeForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, recordstore.ErrNotFound):
		item.Status = http.StatusNotFound
		item.Code = apierrors.CodeNotFound
	case errors.Is(err, service.ErrUnarchiveConflict):
		item.Status = http.StatusConflict
		item.Code = apierrors.CodeUnarchiveConflict
	case errors.Is(err, service.ErrIDTaken), errors.Is(err, service.ErrConflict):
		item.Status = http.StatusConflict
		item.Code = apierrors.CodeConflict
	case errors.Is(err, service.ErrNotPublishable), errors.As(err, &verr):
		item.Status = http.StatusBadRequest
		item.Code = apierrors.CodeValidationError
	default:
		item.Status = http.StatusInternalServerError
		item.Code = apierrors.CodeInternalError
	}
	return item
}

// pageParams извлекает параметры пагинации из query string.
func pageParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 50

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			perPage = n
		}
	}
	return page, perPage
}
