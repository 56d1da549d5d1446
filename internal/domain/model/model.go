// Пакет model — доменные модели Medledger.
// Record — запись пациента (хранит только opaque-ссылку на содержимое),
// AccessRequest — запрос третьей стороны на доступ к данным пациента.
package model

import (
	"time"
)

// Record — запись пациента. Неизменяема после создания,
// кроме флага Active. Физически никогда не удаляется:
// "удаление" моделируется как Active = false.
type Record struct {
	// ID — уникальный идентификатор записи (монотонный счётчик, с 1)
	ID uint64 `json:"record_id"`

	// ContentRef — opaque-ссылка на содержимое (хэш или локатор).
	// Само содержимое Medledger не хранит.
	ContentRef string `json:"content_ref"`

	// Subject — идентификатор пациента-владельца (из JWT sub).
	// Устанавливается при создании, не меняется.
	Subject string `json:"subject"`

	// Custodian — идентификатор создателя записи.
	// На момент создания обязан быть авторизованным кастодианом.
	Custodian string `json:"custodian"`

	// CreatedAt — время создания по Clock (UTC)
	CreatedAt time.Time `json:"created_at"`

	// Category — классификация записи (свободная строка, непустая)
	Category string `json:"category"`

	// Active — true при создании; false навсегда исключает запись
	// из выдачи. Операции обратного включения нет.
	Active bool `json:"active"`
}

// RequestState — производное состояние запроса доступа.
// Не хранится: вычисляется из флага Granted и ExpiresAt на момент проверки.
type RequestState string

const (
	// StatePending — запрос создан, не одобрен, срок не истёк
	StatePending RequestState = "pending"
	// StateGranted — одобрен пациентом, срок не истёк
	StateGranted RequestState = "granted"
	// StateExpired — срок истёк (независимо от флага Granted)
	StateExpired RequestState = "expired"
)

// AccessRequest — запрос на доступ к данным пациента.
// Единственное изменяемое поле — Granted (переключается grant/revoke).
type AccessRequest struct {
	// ID — уникальный идентификатор запроса (монотонный счётчик, с 1)
	ID uint64 `json:"request_id"`

	// Requester — кто запрашивает доступ. Всегда != Subject.
	Requester string `json:"requester"`

	// Subject — пациент, у которого запрашивается доступ
	Subject string `json:"subject"`

	// Purpose — обоснование запроса (свободный текст, непустой)
	Purpose string `json:"purpose"`

	// CreatedAt — время создания запроса по Clock (UTC)
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt — CreatedAt + duration, 0 < duration <= 365 дней.
	// Истечение срока проверяется на каждом чтении, фоновой очистки нет.
	ExpiresAt time.Time `json:"expires_at"`

	// Granted — false при создании. Может быть true только пока
	// now < ExpiresAt; по истечении срока флаг не сбрасывается,
	// но авторизация всегда перепроверяет срок.
	Granted bool `json:"granted"`
}

// State возвращает производное состояние запроса на момент now.
func (r *AccessRequest) State(now time.Time) RequestState {
	if !now.Before(r.ExpiresAt) {
		return StateExpired
	}
	if r.Granted {
		return StateGranted
	}
	return StatePending
}
