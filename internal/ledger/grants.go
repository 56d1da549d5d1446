// grants.go — реестр запросов на доступ и переходов grant/revoke.
//
// Конечный автомат запроса (состояния производные, не хранятся):
//   - pending — granted=false, now < expiresAt
//   - granted — granted=true, now < expiresAt
//   - expired — now >= expiresAt, независимо от флага granted
//
// Истечение срока проверяется на каждом чтении (IsCurrentlyGranted,
// AccessAuthorizer), фоновой очистки нет: одобренный запрос остаётся
// с granted=true в хранилище и после истечения срока.
package ledger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/medledger/internal/domain/model"
)

// MaxGrantDuration — максимальный срок действия запроса на доступ.
const MaxGrantDuration = 365 * 24 * time.Hour

// GrantLedger — потокобезопасный реестр запросов на доступ.
// Счётчик идентификаторов выделяется под тем же мьютексом,
// что и вставка.
type GrantLedger struct {
	mu       sync.RWMutex
	requests map[uint64]*model.AccessRequest
	nextID   uint64
	logger   *slog.Logger
}

// NewGrantLedger создаёт пустой реестр запросов.
func NewGrantLedger(logger *slog.Logger) *GrantLedger {
	return &GrantLedger{
		requests: make(map[uint64]*model.AccessRequest),
		nextID:   1,
		logger:   logger.With(slog.String("component", "grant_ledger")),
	}
}

// Request создаёт запрос на доступ и возвращает его идентификатор.
//
// Валидация: subject непустой (INVALID_IDENTITY), requester != subject
// (SELF_ACCESS_DENIED), purpose непустой (INVALID_INPUT),
// 0 < duration <= 365 дней (INVALID_DURATION).
// Запрос создаётся с granted=false и expiresAt = now + duration.
func (gl *GrantLedger) Request(requester, subject, purpose string, duration time.Duration, now time.Time) (uint64, error) {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	if requester == "" || subject == "" {
		return 0, newError(CodeInvalidIdentity, "идентификаторы запрашивающего и пациента обязательны")
	}
	if requester == subject {
		return 0, newError(CodeSelfAccessDenied, "пациент %q не может запрашивать доступ к собственным данным", requester)
	}
	if purpose == "" {
		return 0, newError(CodeInvalidInput, "обоснование запроса пусто")
	}
	if duration <= 0 || duration > MaxGrantDuration {
		return 0, newError(CodeInvalidDuration, "срок %s вне допустимого диапазона (0, 365 дней]", duration)
	}

	id := gl.nextID
	gl.nextID++

	gl.requests[id] = &model.AccessRequest{
		ID:        id,
		Requester: requester,
		Subject:   subject,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		Granted:   false,
	}

	gl.logger.Info("Запрос на доступ создан",
		slog.Uint64("request_id", id),
		slog.String("requester", requester),
		slog.String("subject", subject),
		slog.Time("expires_at", now.Add(duration)),
	)

	return id, nil
}

// Grant одобряет запрос на доступ.
//
// Предусловия: запрос существует (NOT_FOUND); caller — пациент,
// указанный в запросе (FORBIDDEN — деплойер и запрашивающий не могут
// одобрять чужие запросы); запрос ещё не одобрен (ALREADY_GRANTED);
// срок не истёк (REQUEST_EXPIRED).
func (gl *GrantLedger) Grant(caller string, id uint64, now time.Time) error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	req, ok := gl.requests[id]
	if !ok {
		return newError(CodeNotFound, "запрос %d не найден", id)
	}
	if caller != req.Subject {
		return newError(CodeForbidden, "одобрить запрос %d может только пациент %q", id, req.Subject)
	}
	if req.Granted {
		return newError(CodeAlreadyGranted, "запрос %d уже одобрен", id)
	}
	if !now.Before(req.ExpiresAt) {
		return newError(CodeRequestExpired, "срок запроса %d истёк", id)
	}

	req.Granted = true

	gl.logger.Info("Доступ одобрен",
		slog.Uint64("request_id", id),
		slog.String("subject", caller),
		slog.String("requester", req.Requester),
	)
	return nil
}

// Revoke отзывает одобрение запроса.
//
// Предусловия: запрос существует (NOT_FOUND); caller — пациент запроса
// (FORBIDDEN); запрос одобрен (NOT_YET_GRANTED). Срок НЕ проверяется:
// отзыв просроченного одобрения допустим — это операция наведения
// порядка, а не раскрытия данных.
func (gl *GrantLedger) Revoke(caller string, id uint64, now time.Time) error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	req, ok := gl.requests[id]
	if !ok {
		return newError(CodeNotFound, "запрос %d не найден", id)
	}
	if caller != req.Subject {
		return newError(CodeForbidden, "отозвать одобрение запроса %d может только пациент %q", id, req.Subject)
	}
	if !req.Granted {
		return newError(CodeNotYetGranted, "запрос %d не был одобрен", id)
	}

	req.Granted = false

	gl.logger.Info("Доступ отозван",
		slog.Uint64("request_id", id),
		slog.String("subject", caller),
		slog.String("requester", req.Requester),
	)
	return nil
}

// Get возвращает запрос по идентификатору.
// Возвращает копию; false, если запрос не найден.
func (gl *GrantLedger) Get(id uint64) (model.AccessRequest, bool) {
	gl.mu.RLock()
	defer gl.mu.RUnlock()

	req, ok := gl.requests[id]
	if !ok {
		return model.AccessRequest{}, false
	}
	return *req, true
}

// IsCurrentlyGranted возвращает granted && now < expiresAt.
// Чистый производный запрос, пересчитывается на каждом вызове —
// кэшированного или денормализованного состояния нет.
func (gl *GrantLedger) IsCurrentlyGranted(id uint64, now time.Time) bool {
	gl.mu.RLock()
	defer gl.mu.RUnlock()

	req, ok := gl.requests[id]
	if !ok {
		return false
	}
	return req.Granted && now.Before(req.ExpiresAt)
}

// Count возвращает общее количество запросов в реестре.
func (gl *GrantLedger) Count() int {
	gl.mu.RLock()
	defer gl.mu.RUnlock()
	return len(gl.requests)
}
