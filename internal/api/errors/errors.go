// Пакет errors — конструкторы стандартных ошибок HTTP API Medledger.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // имя пакета повторяет соглашение API-слоя

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/medledger/internal/ledger"
)

// Коды ошибок транспортного уровня (не ядра).
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате Medledger.
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

// httpStatusByCode — отображение кодов ошибок ядра на HTTP статусы.
var httpStatusByCode = map[string]int{
	ledger.CodeInvalidIdentity:  http.StatusBadRequest,
	ledger.CodeInvalidInput:     http.StatusBadRequest,
	ledger.CodeInvalidDuration:  http.StatusBadRequest,
	ledger.CodeSelfAccessDenied: http.StatusBadRequest,
	ledger.CodeUnauthorized:     http.StatusForbidden,
	ledger.CodeForbidden:        http.StatusForbidden,
	ledger.CodeNotFound:         http.StatusNotFound,
	ledger.CodeAlreadyGranted:   http.StatusConflict,
	ledger.CodeNotYetGranted:    http.StatusConflict,
	ledger.CodeRequestExpired:   http.StatusConflict,
	ledger.CodeRecordInactive:   http.StatusGone,
}

// WriteLedgerError отображает типизированную ошибку ядра на HTTP-ответ.
// Неизвестные ошибки считаются внутренними (500).
func WriteLedgerError(w http.ResponseWriter, err error) {
	code := ledger.CodeOf(err)
	if code == "" {
		WriteError(w, http.StatusInternalServerError, CodeInternalError, err.Error())
		return
	}

	status, ok := httpStatusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	WriteError(w, status, code, err.Error())
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
