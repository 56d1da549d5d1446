// Пакет handlers — HTTP-обработчики Medledger.
// handler.go — единый APIHandler, монтирующий маршруты реестра
// на chi-роутер. Все /api/v1 маршруты требуют аутентификации,
// health и metrics — публичные.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/medledger/internal/api/errors"
)

// APIHandler — составной обработчик всех endpoints Medledger.
type APIHandler struct {
	records    *RecordsHandler
	access     *AccessHandler
	custodians *CustodiansHandler
	health     *HealthHandler
	metrics    http.Handler
}

// NewAPIHandler создаёт составной обработчик.
func NewAPIHandler(
	records *RecordsHandler,
	access *AccessHandler,
	custodians *CustodiansHandler,
	health *HealthHandler,
	metrics http.Handler,
) *APIHandler {
	return &APIHandler{
		records:    records,
		access:     access,
		custodians: custodians,
		health:     health,
		metrics:    metrics,
	}
}

// Mount монтирует маршруты на роутер.
// authMW — middleware аутентификации для /api/v1 (JWT или debug).
func (h *APIHandler) Mount(r chi.Router, authMW func(http.Handler) http.Handler) {
	// Публичные endpoints
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	// API реестра — только с аутентификацией
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authMW)

		api.Post("/records", h.records.CreateRecord)
		api.Get("/records", h.records.ListRecords)
		api.Get("/records/{record_id}", h.records.ReadRecord)

		api.Post("/access/requests", h.access.RequestAccess)
		api.Get("/access/requests/{request_id}", h.access.GetRequest)
		api.Get("/access/requests/{request_id}/valid", h.access.CheckValid)
		api.Post("/access/requests/{request_id}/grant", h.access.Grant)
		api.Post("/access/requests/{request_id}/revoke", h.access.Revoke)

		api.Post("/custodians", h.custodians.Authorize)
		api.Get("/custodians/{identity}", h.custodians.Check)
	})
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON читает JSON-тело запроса в v.
// При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierrors.ValidationError(w, "Некорректное JSON-тело запроса: "+err.Error())
		return false
	}
	return true
}

// idParam извлекает числовой идентификатор из URL-параметра chi.
// При ошибке пишет 400 и возвращает false.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		apierrors.ValidationError(w, "Параметр "+name+" должен быть положительным целым числом")
		return 0, false
	}
	return id, true
}
