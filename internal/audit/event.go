// Пакет audit — append-only аудиторский журнал Medledger.
//
// Ядро пишет в журнал fire-and-forget: каждая успешная мутация
// порождает ровно одно событие, но корректность ядра не зависит от
// успешности записи. Долговечность журнала — ответственность
// коллаборатора (файловая система, внешний агрегатор логов).
package audit

import (
	"time"
)

// EventKind — тип события аудита.
type EventKind string

const (
	// KindRecordCreated — создана запись пациента
	KindRecordCreated EventKind = "record_created"
	// KindAccessRequested — создан запрос на доступ
	KindAccessRequested EventKind = "access_requested"
	// KindAccessGranted — запрос одобрен пациентом
	KindAccessGranted EventKind = "access_granted"
	// KindAccessRevoked — одобрение отозвано пациентом
	KindAccessRevoked EventKind = "access_revoked"
	// KindCustodianAuthorized — авторизован новый кастодиан
	KindCustodianAuthorized EventKind = "custodian_authorized"
)

// Event — событие аудита. Сериализуется в JSON-строку журнала.
type Event struct {
	// EventID — уникальный идентификатор события (UUID v4)
	EventID string `json:"event_id"`
	// Kind — тип события
	Kind EventKind `json:"kind"`
	// Actor — кто выполнил операцию (из JWT sub)
	Actor string `json:"actor"`
	// Subject — пациент, которого касается операция (если применимо)
	Subject string `json:"subject,omitempty"`
	// RecordID — идентификатор записи (если применимо)
	RecordID uint64 `json:"record_id,omitempty"`
	// RequestID — идентификатор запроса на доступ (если применимо)
	RequestID uint64 `json:"request_id,omitempty"`
	// Timestamp — время операции по Clock ядра (UTC)
	Timestamp time.Time `json:"timestamp"`
}

// Sink — приёмник событий аудита.
// Реализации обязаны быть потокобезопасными.
type Sink interface {
	// Emit принимает событие. Ошибки записи реализация обрабатывает
	// сама (логирование); вызывающий их не видит.
	Emit(event Event)
}

// Nop — заглушка, отбрасывающая события. Для тестов ядра.
type Nop struct{}

// Emit отбрасывает событие.
func (Nop) Emit(Event) {}
