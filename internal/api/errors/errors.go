// Пакет errors — конструкторы стандартных ошибок ContentHub API.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeIDTaken           = "ID_TAKEN"
	CodeUnarchiveConflict = "UNARCHIVE_CONFLICT"
	CodeInvalidPreview    = "INVALID_PREVIEW"
	CodePasswordRequired  = "PASSWORD_REQUIRED"
	CodeIncorrectPassword = "INCORRECT_PASSWORD"
	CodeStoreUnavailable  = "RECORD_STORE_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// ValidationFields — 400 с сообщениями по полям.
func ValidationFields(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    CodeValidationError,
			Message: "ошибка валидации",
			Fields:  fields,
		},
	})
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 конфликт (дублирующийся ресурс).
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// IDTaken — 409 явный идентификатор уже занят.
func IDTaken(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeIDTaken, message)
}

// UnarchiveConflict — 409 живая запись с исходным id уже существует.
func UnarchiveConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeUnarchiveConflict, message)
}

// StoreUnavailable — 502 record store недоступен.
func StoreUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeStoreUnavailable, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// --- Частичный успех массовых операций ---

// BulkItemError — ошибка одной записи массовой операции.
type BulkItemError struct {
	// ID — идентификатор записи
	ID string `json:"id"`
	// Status — HTTP-статус, соответствующий ошибке записи
	Status int `json:"status"`
	// Code — машиночитаемый код ошибки
	Code string `json:"code"`
	// Message — описание
	Message string `json:"message"`
}

// bulkBody — тело ответа массовой операции.
type bulkBody struct {
	Succeeded []string        `json:"succeeded"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}

// WriteBulkResult записывает результат массовой операции.
// Все записи успешны — 200; часть — 207 Multi-Status с перечнем ошибок;
// ни одной — статус общей ошибки (403 если все отказы по владению,
// иначе статус первой ошибки).
func WriteBulkResult(w http.ResponseWriter, succeeded []string, errs []BulkItemError) {
	status := http.StatusOK
	switch {
	case len(errs) == 0:
		status = http.StatusOK
	case len(succeeded) > 0:
		status = http.StatusMultiStatus
	default:
		status = errs[0].Status
		allForbidden := true
		for _, e := range errs {
			if e.Status != http.StatusForbidden {
				allForbidden = false
				break
			}
		}
		if allForbidden {
			status = http.StatusForbidden
		}
	}

	if succeeded == nil {
		succeeded = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(bulkBody{
		Succeeded: succeeded,
		Errors:    errs,
	})
}
