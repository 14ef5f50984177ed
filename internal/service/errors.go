// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — операция запрещена (запись принадлежит другому пользователю).
	ErrForbidden = errors.New("доступ запрещён")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrIDTaken — явный идентификатор записи уже занят.
	ErrIDTaken = errors.New("URL уже используется")
	// ErrUnarchiveConflict — живая запись с исходным id уже существует.
	ErrUnarchiveConflict = errors.New("запись с исходным id уже существует")
	// ErrNotPublishable — публикация staged-изменений невозможна:
	// запись не опубликована или нет отложенных изменений.
	ErrNotPublishable = errors.New("запись не опубликована или нет отложенных изменений")
	// ErrInvalidPreview — preview-токен не существует или истёк.
	// Снаружи оба случая неразличимы.
	ErrInvalidPreview = errors.New("недействительная preview-ссылка")
	// ErrPasswordRequired — preview-токен защищён паролем, пароль ещё не проверен.
	ErrPasswordRequired = errors.New("требуется пароль")
	// ErrIncorrectPassword — пароль не подошёл.
	ErrIncorrectPassword = errors.New("неверный пароль")
	// ErrStoreUnavailable — record store недоступен.
	ErrStoreUnavailable = errors.New("record store недоступен")
)

// ValidationError — ошибка валидации входных данных с сообщениями по полям.
// Запись при этом не изменяется.
type ValidationError struct {
	// Fields — сообщения по полям (field → message).
	Fields map[string]string
}

// NewValidationError создаёт ошибку валидации с одним полем.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Add добавляет сообщение по полю.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors сообщает, есть ли накопленные ошибки.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
