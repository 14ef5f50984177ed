// entries.go — обработчики жизненного цикла записей контента.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/devalphasystem/contenthub/internal/api/errors"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/service"
)

// entryRequest — тело запроса создания/обновления записи.
type entryRequest struct {
	// ID — опциональный явный идентификатор (только при создании)
	ID                   string `json:"id,omitempty"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	Content              string `json:"content"`
	Tags                 string `json:"tags"`
	Collection           string `json:"collection"`
	Status               string `json:"status"`
	RoadmapStage         string `json:"roadmap_stage"`
	Project              string `json:"project"`
	ShowInProjectSidebar bool   `json:"show_in_project_sidebar"`
	SidebarOrder         int    `json:"sidebar_order"`
	CustomHeader         string `json:"custom_header"`
	CustomFooter         string `json:"custom_footer"`
}

// toInput конвертирует тело запроса в EntryInput сервисного слоя.
func (req *entryRequest) toInput() service.EntryInput {
	return service.EntryInput{
		Title:                req.Title,
		Type:                 req.Type,
		Content:              req.Content,
		Tags:                 req.Tags,
		Collection:           req.Collection,
		Status:               req.Status,
		RoadmapStage:         req.RoadmapStage,
		Project:              req.Project,
		ShowInProjectSidebar: req.ShowInProjectSidebar,
		SidebarOrder:         req.SidebarOrder,
		CustomHeader:         req.CustomHeader,
		CustomFooter:         req.CustomFooter,
	}
}

// listResponse — постраничный ответ листинга.
type listResponse struct {
	Items      any `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ListEntries — GET /api/v1/entries. Живые записи текущего пользователя.
func (h *APIHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	h.listEntries(w, r, recordstore.StoreLive)
}

// ListArchive — GET /api/v1/archive. Архивные записи текущего пользователя.
func (h *APIHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	h.listEntries(w, r, recordstore.StoreArchived)
}

func (h *APIHandler) listEntries(w http.ResponseWriter, r *http.Request, st recordstore.EntryStore) {
	page, perPage := pageParams(r)

	entries, total, err := h.entries.List(r.Context(), actorFromRequest(r), st, page, perPage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      entries,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
	})
}

// CreateEntry — POST /api/v1/entries.
func (h *APIHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	entry, err := h.entries.Create(r.Context(), actorFromRequest(r), req.toInput(), req.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// GetEntry — GET /api/v1/entries/{id}.
func (h *APIHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	h.getEntry(w, r, recordstore.StoreLive)
}

// GetArchivedEntry — GET /api/v1/archive/{id}.
func (h *APIHandler) GetArchivedEntry(w http.ResponseWriter, r *http.Request) {
	h.getEntry(w, r, recordstore.StoreArchived)
}

func (h *APIHandler) getEntry(w http.ResponseWriter, r *http.Request, st recordstore.EntryStore) {
	id := chi.URLParam(r, "id")

	entry, err := h.entries.Get(r.Context(), actorFromRequest(r), st, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// UpdateEntry — PUT /api/v1/entries/{id}.
// Обновление опубликованной записи с поданным статусом published
// стейджится; остальные комбинации обновляют живые поля напрямую.
func (h *APIHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	entry, err := h.entries.Update(r.Context(), actorFromRequest(r), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// PublishStaged — POST /api/v1/entries/{id}/publish-staged.
func (h *APIHandler) PublishStaged(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.entries.PublishStaged(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// ArchiveEntry — POST /api/v1/entries/{id}/archive.
func (h *APIHandler) ArchiveEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.entries.Archive(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnarchiveEntry — POST /api/v1/archive/{id}/unarchive.
func (h *APIHandler) UnarchiveEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.entries.Unarchive(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry — DELETE /api/v1/entries/{id}. Окончательное удаление
// живой записи с зачисткой зависимых данных.
func (h *APIHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, recordstore.StoreLive)
}

// DeleteArchivedEntry — DELETE /api/v1/archive/{id}.
func (h *APIHandler) DeleteArchivedEntry(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, recordstore.StoreArchived)
}

func (h *APIHandler) deleteEntry(w http.ResponseWriter, r *http.Request, st recordstore.EntryStore) {
	id := chi.URLParam(r, "id")

	if err := h.entries.Delete(r.Context(), actorFromRequest(r), st, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bulkRequest — тело запроса массовой операции.
type bulkRequest struct {
	// Action — действие (publish, draft, publish-staged, archive,
	// unarchive, delete, permanent-delete)
	Action string `json:"action"`
	// IDs — идентификаторы записей
	IDs []string `json:"ids"`
}

// BulkAction — POST /api/v1/entries/bulk.
// Ошибка одной записи не прерывает обработку остальных.
// Все успешны — 200; часть — 207; ни одной — статус общей ошибки.
func (h *APIHandler) BulkAction(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		apierrors.ValidationError(w, "список ids пуст")
		return
	}

	result, err := h.entries.BulkAction(r.Context(), actorFromRequest(r), service.BulkActionType(req.Action), req.IDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	itemErrors := make([]apierrors.BulkItemError, 0, len(result.Failures))
	for _, f := range result.Failures {
		itemErrors = append(itemErrors, bulkItemError(f.ID, f.Err))
	}

	apierrors.WriteBulkResult(w, result.Succeeded, itemErrors)
}
