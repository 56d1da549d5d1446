// access.go — HTTP-обработчики запросов на доступ:
// создание запроса, одобрение и отзыв пациентом, проверка
// действительности, чтение запроса с производным состоянием.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/bigkaa/medledger/internal/api/errors"
	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/ledger"
	"github.com/bigkaa/medledger/internal/service"
)

// maxDurationSeconds — потолок срока в секундах на границе API.
// Проверяется до умножения на time.Second: иначе очень большое
// значение переполнило бы int64 наносекунд и свернулось в
// «допустимый» срок, который вызывающий не запрашивал.
const maxDurationSeconds = int64(ledger.MaxGrantDuration / time.Second)

// AccessHandler — обработчик endpoints запросов на доступ.
type AccessHandler struct {
	svc *service.LedgerService
}

// NewAccessHandler создаёт обработчик запросов на доступ.
func NewAccessHandler(svc *service.LedgerService) *AccessHandler {
	return &AccessHandler{svc: svc}
}

// requestAccessRequest — тело POST /api/v1/access/requests.
type requestAccessRequest struct {
	// Subject — пациент, у которого запрашивается доступ
	Subject string `json:"subject"`
	// Purpose — обоснование запроса
	Purpose string `json:"purpose"`
	// DurationSeconds — срок действия в секундах, 0 < d <= 365 дней
	DurationSeconds int64 `json:"duration_seconds"`
}

// RequestAccess обрабатывает POST /api/v1/access/requests.
// Запрашивающим считается вызывающий (из JWT).
func (h *AccessHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	var req requestAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.DurationSeconds <= 0 || req.DurationSeconds > maxDurationSeconds {
		apierrors.WriteError(w, http.StatusBadRequest, ledger.CodeInvalidDuration,
			"duration_seconds вне допустимого диапазона (0, 365 дней]")
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	id, err := h.svc.RequestAccess(caller, req.Subject, req.Purpose, duration)
	if err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"request_id": id,
	})
}

// Grant обрабатывает POST /api/v1/access/requests/{request_id}/grant.
// Одобрить запрос может только пациент, указанный в запросе.
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	id, ok := idParam(w, r, "request_id")
	if !ok {
		return
	}

	if err := h.svc.GrantAccess(caller, id); err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "granted",
	})
}

// Revoke обрабатывает POST /api/v1/access/requests/{request_id}/revoke.
// Отзыв допустим и после истечения срока запроса.
func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	id, ok := idParam(w, r, "request_id")
	if !ok {
		return
	}

	if err := h.svc.RevokeAccess(caller, id); err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "revoked",
	})
}

// GetRequest обрабатывает GET /api/v1/access/requests/{request_id}.
// Возвращает запрос и его производное состояние на текущий момент.
func (h *AccessHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "request_id")
	if !ok {
		return
	}

	req, state, err := h.svc.GetAccessRequest(id)
	if err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request": req,
		"state":   state,
	})
}

// CheckValid обрабатывает GET /api/v1/access/requests/{request_id}/valid.
// Возвращает granted && now < expiresAt; для неизвестного запроса — false.
func (h *AccessHandler) CheckValid(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "request_id")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": id,
		"valid":      h.svc.IsAccessValid(id),
	})
}
