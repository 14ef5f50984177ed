// Пакет model — доменные модели ContentHub.
// Entry — единица контента, хранится во внешнем record store
// (коллекции entries_main / entries_archived).
package model

import "time"

// Типы записей.
const (
	TypeDocumentation = "documentation"
	TypeChangelog     = "changelog"
	TypeRoadmap       = "roadmap"
	TypeKnowledgeBase = "knowledge_base"
	TypeSidebarHeader = "sidebar_header"
)

// Статусы записи.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Этапы roadmap. Обязательны для type=roadmap, запрещены для остальных типов.
var RoadmapStages = []string{"Planned", "Next Up", "In Progress", "Done"}

// IsValidType проверяет, является ли строка допустимым типом записи.
func IsValidType(t string) bool {
	switch t {
	case TypeDocumentation, TypeChangelog, TypeRoadmap, TypeKnowledgeBase, TypeSidebarHeader:
		return true
	}
	return false
}

// IsValidRoadmapStage проверяет допустимость этапа roadmap.
func IsValidRoadmapStage(stage string) bool {
	for _, s := range RoadmapStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Entry — запись контента из record store.
//
// Инварианты:
//   - HasStagedChanges=true ⇒ Status=published
//   - HasStagedChanges=false ⇒ все Staged* поля nil
//   - RoadmapStage != "" только при Type=roadmap
type Entry struct {
	// ID — идентификатор записи (15 символов, может задаваться вручную)
	ID string `json:"id"`
	// Owner — идентификатор пользователя-владельца
	Owner string `json:"owner"`
	// Project — опциональный родительский проект
	Project string `json:"project,omitempty"`
	// Title — заголовок
	Title string `json:"title"`
	// Type — тип записи (documentation, changelog, roadmap, knowledge_base, sidebar_header)
	Type string `json:"type"`
	// Content — markdown-содержимое
	Content string `json:"content"`
	// Tags — теги через запятую
	Tags string `json:"tags"`
	// Collection — свободная метка группировки
	Collection string `json:"collection"`
	// Status — draft или published
	Status string `json:"status"`
	// Views — счётчик просмотров
	Views int `json:"views"`
	// RoadmapStage — этап roadmap (только для type=roadmap)
	RoadmapStage string `json:"roadmap_stage,omitempty"`
	// ShowInProjectSidebar — отображать в сайдбаре проекта
	ShowInProjectSidebar bool `json:"show_in_project_sidebar"`
	// SidebarOrder — порядок в сайдбаре
	SidebarOrder int `json:"sidebar_order"`
	// CustomHeader — ссылка на кастомный header-ассет
	CustomHeader string `json:"custom_header,omitempty"`
	// CustomFooter — ссылка на кастомный footer-ассет
	CustomFooter string `json:"custom_footer,omitempty"`

	// HasStagedChanges — есть неопубликованные staged-правки
	HasStagedChanges bool `json:"has_staged_changes"`

	// Staged* — теневые поля staged-правок. nil означает отсутствие
	// staged-значения для поля.
	StagedTitle        *string `json:"staged_title"`
	StagedType         *string `json:"staged_type"`
	StagedContent      *string `json:"staged_content"`
	StagedTags         *string `json:"staged_tags"`
	StagedCollection   *string `json:"staged_collection"`
	StagedHeader       *string `json:"staged_header"`
	StagedFooter       *string `json:"staged_footer"`
	StagedRoadmapStage *string `json:"staged_roadmap_stage"`

	// ContentUpdatedAt — время последнего изменения контента
	// (отдельно от системного updated record store)
	ContentUpdatedAt time.Time `json:"content_updated_at"`

	// HelpfulYes / HelpfulNo — счётчики обратной связи
	HelpfulYes int `json:"helpful_yes"`
	HelpfulNo  int `json:"helpful_no"`
	// TotalViewDuration — суммарная длительность просмотров, секунды
	TotalViewDuration int `json:"total_view_duration"`
	// ViewDurationCount — количество замеров длительности
	ViewDurationCount int `json:"view_duration_count"`

	// OriginalID — исходный id записи (заполнен только в архивной коллекции)
	OriginalID string `json:"original_id,omitempty"`

	// Created / Updated — системные timestamps record store
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// EntryView — разрешённое представление записи для рендеринга.
// Ровно один набор полей авторитетен: staged при
// status=published && has_staged_changes, иначе live.
type EntryView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Content      string `json:"content"`
	Tags         string `json:"tags"`
	Collection   string `json:"collection"`
	RoadmapStage string `json:"roadmap_stage,omitempty"`
	CustomHeader string `json:"custom_header,omitempty"`
	CustomFooter string `json:"custom_footer,omitempty"`
	Staged       bool   `json:"staged"`
}

// RenderView возвращает авторитетный набор полей записи.
// Staged-поля накладываются поверх live только когда запись
// опубликована и имеет staged-правки; nil staged-поле означает
// отсутствие staged-значения и оставляет live-значение.
func (e *Entry) RenderView() EntryView {
	v := EntryView{
		ID:           e.ID,
		Title:        e.Title,
		Type:         e.Type,
		Content:      e.Content,
		Tags:         e.Tags,
		Collection:   e.Collection,
		RoadmapStage: e.RoadmapStage,
		CustomHeader: e.CustomHeader,
		CustomFooter: e.CustomFooter,
	}

	if e.Status != StatusPublished || !e.HasStagedChanges {
		return v
	}

	v.Staged = true
	if e.StagedTitle != nil {
		v.Title = *e.StagedTitle
	}
	if e.StagedType != nil {
		v.Type = *e.StagedType
	}
	if e.StagedContent != nil {
		v.Content = *e.StagedContent
	}
	if e.StagedTags != nil {
		v.Tags = *e.StagedTags
	}
	if e.StagedCollection != nil {
		v.Collection = *e.StagedCollection
	}
	if e.StagedHeader != nil {
		v.CustomHeader = *e.StagedHeader
	}
	if e.StagedFooter != nil {
		v.CustomFooter = *e.StagedFooter
	}
	if e.StagedRoadmapStage != nil {
		v.RoadmapStage = *e.StagedRoadmapStage
	}
	return v
}
