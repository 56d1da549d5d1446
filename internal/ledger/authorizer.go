// authorizer.go — проверка права на чтение записи.
//
// AccessAuthorizer компонует RecordStore и GrantLedger и отвечает на
// вопрос "может ли вызывающий C прочитать запись R [по запросу G]?".
// Ничем не владеет и ничего не мутирует — только читает. Проверка
// выполняется заново при каждой попытке чтения: понятия сессии или
// закэшированной авторизации нет, отзыв или истечение срока действуют
// со следующей же проверки.
package ledger

import (
	"time"
)

// AccessAuthorizer — проверка авторизации чтения.
type AccessAuthorizer struct {
	records *RecordStore
	grants  *GrantLedger
}

// NewAccessAuthorizer создаёт авторизатор поверх хранилищ.
func NewAccessAuthorizer(records *RecordStore, grants *GrantLedger) *AccessAuthorizer {
	return &AccessAuthorizer{
		records: records,
		grants:  grants,
	}
}

// CanRead проверяет право caller прочитать запись recordID.
// requestID == 0 означает "без запроса на доступ".
//
// Порядок проверок:
//  1. Запись существует (NOT_FOUND) и активна (RECORD_INACTIVE).
//  2. Владелец всегда читает свои данные — caller == record.Subject.
//  3. Без requestID посторонним доступ запрещён (FORBIDDEN).
//  4. Запрос должен одновременно удовлетворять всем четырём условиям:
//     requester == caller, subject == record.Subject, granted == true,
//     now < expiresAt. Любое несовпадение — FORBIDDEN: одобрение на
//     данные другого пациента или чужое одобрение не дают доступа,
//     даже если сами по себе действительны.
//
// Возвращает nil, если чтение разрешено.
func (a *AccessAuthorizer) CanRead(caller string, recordID, requestID uint64, now time.Time) error {
	rec, ok := a.records.Get(recordID)
	if !ok {
		return newError(CodeNotFound, "запись %d не найдена", recordID)
	}
	if !rec.Active {
		return newError(CodeRecordInactive, "запись %d деактивирована", recordID)
	}

	// Владелец читает свои данные без запроса
	if caller == rec.Subject {
		return nil
	}

	if requestID == 0 {
		return newError(CodeForbidden, "доступ к записи %d без запроса на доступ запрещён", recordID)
	}

	req, ok := a.grants.Get(requestID)
	if !ok {
		return newError(CodeForbidden, "запрос %d не найден", requestID)
	}
	if req.Requester != caller ||
		req.Subject != rec.Subject ||
		!req.Granted ||
		!now.Before(req.ExpiresAt) {
		return newError(CodeForbidden, "запрос %d не даёт права на чтение записи %d", requestID, recordID)
	}

	return nil
}
