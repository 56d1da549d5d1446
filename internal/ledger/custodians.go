// custodians.go — реестр кастодианов: кто имеет право создавать записи.
// Множество только растёт: операция отзыва статуса кастодиана
// сознательно не предусмотрена.
package ledger

import (
	"log/slog"
	"sync"
)

// CustodianRegistry — потокобезопасный реестр авторизованных кастодианов.
// Bootstrap-идентификатор авторизуется ровно один раз при создании.
type CustodianRegistry struct {
	mu         sync.RWMutex
	authorized map[string]bool
	logger     *slog.Logger
}

// NewCustodianRegistry создаёт реестр с единственным
// авторизованным bootstrap-кастодианом.
func NewCustodianRegistry(bootstrap string, logger *slog.Logger) *CustodianRegistry {
	return &CustodianRegistry{
		authorized: map[string]bool{bootstrap: true},
		logger:     logger.With(slog.String("component", "custodian_registry")),
	}
}

// Authorize добавляет target в множество кастодианов.
// Доступно только действующим кастодианам (UNAUTHORIZED),
// target не может быть пустым (INVALID_IDENTITY).
func (cr *CustodianRegistry) Authorize(caller, target string) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.authorized[caller] {
		return newError(CodeUnauthorized, "идентификатор %q не является кастодианом", caller)
	}
	if target == "" {
		return newError(CodeInvalidIdentity, "идентификатор нового кастодиана пуст")
	}

	cr.authorized[target] = true

	cr.logger.Info("Кастодиан авторизован",
		slog.String("caller", caller),
		slog.String("target", target),
	)
	return nil
}

// IsAuthorized возвращает true, если identity — действующий кастодиан.
// Чистый запрос, без побочных эффектов.
func (cr *CustodianRegistry) IsAuthorized(identity string) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.authorized[identity]
}

// Count возвращает количество авторизованных кастодианов.
func (cr *CustodianRegistry) Count() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.authorized)
}
