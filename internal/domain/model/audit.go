package model

import "time"

// Действия аудита. Значения попадают в коллекцию audit_logs как есть.
const (
	ActionEntryCreate       = "ENTRY_CREATE"
	ActionEntryUpdate       = "ENTRY_UPDATE"
	ActionEntryStageChanges = "ENTRY_STAGE_CHANGES"
	ActionEntryPublish      = "ENTRY_PUBLISH"
	ActionEntryUnpublish    = "ENTRY_UNPUBLISH"
	ActionEntryArchive      = "ENTRY_ARCHIVE"
	ActionEntryUnarchive    = "ENTRY_UNARCHIVE"
	ActionEntryDelete       = "ENTRY_DELETE"
	ActionPreviewCreate     = "PREVIEW_CREATE"
	ActionPreviewPwdCheck   = "PREVIEW_PASSWORD_CHECK"
	ActionAuditClear        = "AUDIT_LOGS_CLEAR"
)

// AuditRecord — неизменяемая запись журнала аудита (коллекция audit_logs).
// Записи никогда не обновляются; удаляются только явной массовой очисткой.
type AuditRecord struct {
	// ID — идентификатор записи в record store
	ID string `json:"id"`
	// Action — имя действия (ENTRY_CREATE, ...)
	Action string `json:"action"`
	// User — id действующего пользователя; пустой для системных/анонимных действий
	User string `json:"user,omitempty"`
	// TargetCollection — коллекция целевой записи (опционально)
	TargetCollection string `json:"target_collection,omitempty"`
	// TargetRecord — id целевой записи (опционально)
	TargetRecord string `json:"target_record,omitempty"`
	// IP — адрес вызывающего (первый hop X-Forwarded-For либо адрес сокета)
	IP string `json:"ip_address,omitempty"`
	// Details — произвольные детали; чувствительные поля редактируются вызывающим
	Details map[string]any `json:"details,omitempty"`
	// Created — время создания
	Created time.Time `json:"created"`
}
