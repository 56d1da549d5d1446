// errors.go — типизированные ошибки ядра Medledger.
// Каждое нарушение предусловия возвращает *Error с машиночитаемым
// кодом; ни одна операция не применяется частично и не роняет процесс.
package ledger

import (
	"errors"
	"fmt"
)

// Коды ошибок ядра.
const (
	// CodeInvalidIdentity — пустой идентификатор там, где требуется реальный
	CodeInvalidIdentity = "INVALID_IDENTITY"
	// CodeInvalidInput — пустая ссылка на содержимое, категория или обоснование
	CodeInvalidInput = "INVALID_INPUT"
	// CodeInvalidDuration — срок <= 0 или больше 365 дней
	CodeInvalidDuration = "INVALID_DURATION"
	// CodeUnauthorized — действие кастодиана от имени не-кастодиана
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeSelfAccessDenied — запрашивающий совпадает с пациентом
	CodeSelfAccessDenied = "SELF_ACCESS_DENIED"
	// CodeForbidden — вызывающий не является субъектом запроса/записи
	CodeForbidden = "FORBIDDEN"
	// CodeNotFound — неизвестный идентификатор записи или запроса
	CodeNotFound = "NOT_FOUND"
	// CodeRecordInactive — запись существует, но деактивирована
	CodeRecordInactive = "RECORD_INACTIVE"
	// CodeAlreadyGranted — повторный grant уже одобренного запроса
	CodeAlreadyGranted = "ALREADY_GRANTED"
	// CodeNotYetGranted — revoke запроса, который не был одобрен
	CodeNotYetGranted = "NOT_YET_GRANTED"
	// CodeRequestExpired — grant после истечения срока запроса
	CodeRequestExpired = "REQUEST_EXPIRED"
)

// Error — ошибка операции ядра.
type Error struct {
	Code    string // Машиночитаемый код (см. константы Code*)
	Message string // Человекочитаемое описание
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// newError создаёт *Error с форматированным сообщением.
func newError(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf возвращает код ошибки ядра или пустую строку,
// если err не является *Error.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
