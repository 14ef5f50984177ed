// Пакет recordstore — HTTP-клиент к внешнему record store (хранилищу
// типизированных записей). Поддерживает CRUD по коллекциям, фильтры,
// пагинацию, выбор полей и атомарный инкремент числовых полей.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Ошибки клиента record store.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена в record store")
	// ErrConflict — конфликт уникальности (запись с таким значением уже существует).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// APIError — ошибка уровня API record store (не-2xx ответ).
type APIError struct {
	// Status — HTTP статус-код ответа
	Status int
	// Message — сообщение backend'а
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record store вернул статус %d: %s", e.Status, e.Message)
}

// Collection — имя коллекции record store. Закрытый набор констант,
// чтобы опечатка в имени коллекции ловилась на уровне типов.
type Collection string

// Коллекции ContentHub в record store.
const (
	CollectionEntries       Collection = "entries_main"
	CollectionArchive       Collection = "entries_archived"
	CollectionPreviewTokens Collection = "entries_previews"
	CollectionAuditLogs     Collection = "audit_logs"
	CollectionProjects      Collection = "projects"
)

// EntryStore — закрытое перечисление хранилищ записей контента.
// Заменяет диспетчеризацию по строке имени коллекции: все комбинации
// действие × хранилище покрываются исчерпывающим switch.
type EntryStore int

const (
	// StoreLive — живые записи (entries_main).
	StoreLive EntryStore = iota
	// StoreArchived — архив (entries_archived).
	StoreArchived
)

// Collection возвращает коллекцию record store для хранилища.
func (s EntryStore) Collection() Collection {
	switch s {
	case StoreArchived:
		return CollectionArchive
	default:
		return CollectionEntries
	}
}

// String — человекочитаемое имя хранилища для логов.
func (s EntryStore) String() string {
	switch s {
	case StoreArchived:
		return "archived"
	default:
		return "live"
	}
}

// ListOptions — опции листинга коллекции.
type ListOptions struct {
	// Filter — выражение фильтрации в DSL backend'а (см. filter.go)
	Filter string
	// Sort — поля сортировки ("-created,title")
	Sort string
	// Fields — выбор полей ("id,title"); пустая строка — все поля
	Fields string
}

// ListResult — постраничный ответ листинга.
type ListResult struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
	// Items — сырые записи страницы; декодируются вызывающим
	Items json.RawMessage `json:"items"`
}

// DecodeItems декодирует записи страницы в out (указатель на срез).
// Пустая страница оставляет out без изменений.
func (r *ListResult) DecodeItems(out any) error {
	if len(r.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Items, out); err != nil {
		return fmt.Errorf("декодирование items: %w", err)
	}
	return nil
}

// Store — контракт record store, используемый сервисным слоем.
// Реализуется *Client; в тестах подменяется in-memory фейком.
type Store interface {
	// Get загружает запись по id и декодирует её в out.
	Get(ctx context.Context, col Collection, id string, out any) error
	// GetOne возвращает первую запись, удовлетворяющую фильтру.
	// Отсутствие совпадений — ErrNotFound.
	GetOne(ctx context.Context, col Collection, filter string, out any) error
	// List возвращает страницу записей коллекции.
	List(ctx context.Context, col Collection, page, perPage int, opts ListOptions) (*ListResult, error)
	// Create создаёт запись; data сериализуется в JSON как есть
	// (явные null-значения сохраняются). Созданная запись декодируется в out (может быть nil).
	Create(ctx context.Context, col Collection, data any, out any) error
	// Update частично обновляет запись; поля со значением nil
	// записываются как null. Обновлённая запись декодируется в out (может быть nil).
	Update(ctx context.Context, col Collection, id string, data any, out any) error
	// Delete удаляет запись по id.
	Delete(ctx context.Context, col Collection, id string) error
	// Increment атомарно изменяет числовое поле записи на delta.
	Increment(ctx context.Context, col Collection, id, field string, delta int) error
}
