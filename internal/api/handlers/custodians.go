// custodians.go — HTTP-обработчики реестра кастодианов.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/medledger/internal/api/errors"
	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/service"
)

// CustodiansHandler — обработчик endpoints кастодианов.
type CustodiansHandler struct {
	svc *service.LedgerService
}

// NewCustodiansHandler создаёт обработчик кастодианов.
func NewCustodiansHandler(svc *service.LedgerService) *CustodiansHandler {
	return &CustodiansHandler{svc: svc}
}

// authorizeCustodianRequest — тело POST /api/v1/custodians.
type authorizeCustodianRequest struct {
	// Target — идентификатор нового кастодиана
	Target string `json:"target"`
}

// Authorize обрабатывает POST /api/v1/custodians.
// Добавить кастодиана может только действующий кастодиан.
func (h *CustodiansHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	var req authorizeCustodianRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.AuthorizeCustodian(caller, req.Target); err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "authorized",
		"target": req.Target,
	})
}

// Check обрабатывает GET /api/v1/custodians/{identity}.
// Чистый запрос: является ли identity действующим кастодианом.
func (h *CustodiansHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		apierrors.ValidationError(w, "Параметр identity обязателен")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity":   identity,
		"authorized": h.svc.IsCustodian(identity),
	})
}
