// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/medledger/internal/config"
)

// LedgerStats — интерфейс статистики реестра для readiness-ответа.
type LedgerStats interface {
	RecordCount() int
	RequestCount() int
	CustodianCount() int
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// auditPath — путь к журналу аудита (для проверки FS)
	auditPath string
	// stats — статистика реестра
	stats LedgerStats
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(auditPath string, stats LedgerStats) *HealthHandler {
	return &HealthHandler{
		version:   config.Version,
		auditPath: auditPath,
		stats:     stats,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "medledger",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Реестр in-memory и готов сразу после старта; в ответ включается
// текущая статистика хранилищ.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"checks": map[string]any{
			"records":    h.stats.RecordCount(),
			"requests":   h.stats.RequestCount(),
			"custodians": h.stats.CustodianCount(),
			"audit_log":  h.auditPath,
		},
	})
}
