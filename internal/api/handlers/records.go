// records.go — HTTP-обработчики записей пациентов:
// создание кастодианом, список идентификаторов пациента, чтение
// с проверкой авторизации.
package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/medledger/internal/api/errors"
	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/service"
)

// RecordsHandler — обработчик endpoints записей пациентов.
type RecordsHandler struct {
	svc *service.LedgerService
}

// NewRecordsHandler создаёт обработчик записей.
func NewRecordsHandler(svc *service.LedgerService) *RecordsHandler {
	return &RecordsHandler{svc: svc}
}

// createRecordRequest — тело POST /api/v1/records.
type createRecordRequest struct {
	// Subject — идентификатор пациента-владельца
	Subject string `json:"subject"`
	// ContentRef — opaque-ссылка на содержимое (хэш/локатор)
	ContentRef string `json:"content_ref"`
	// Category — классификация записи
	Category string `json:"category"`
}

// CreateRecord обрабатывает POST /api/v1/records.
// Вызывающий (из JWT) должен быть авторизованным кастодианом.
func (h *RecordsHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	var req createRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.svc.CreateRecord(caller, req.Subject, req.ContentRef, req.Category)
	if err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"record_id": id,
	})
}

// ListRecords обрабатывает GET /api/v1/records?subject=S.
// Возвращает идентификаторы записей пациента в порядке создания.
func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		apierrors.ValidationError(w, "Параметр subject обязателен")
		return
	}

	ids := h.svc.ListRecordsFor(subject)

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":    subject,
		"record_ids": ids,
	})
}

// ReadRecord обрабатывает GET /api/v1/records/{record_id}[?request_id=N].
// Возвращает полные метаданные записи (включая ссылку на содержимое),
// если вызывающий — владелец или предъявил действующий одобренный
// запрос на доступ. При отказе никакие данные не возвращаются.
func (h *RecordsHandler) ReadRecord(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())

	recordID, ok := idParam(w, r, "record_id")
	if !ok {
		return
	}

	// request_id опционален: 0 — чтение без запроса на доступ
	var requestID uint64
	if raw := r.URL.Query().Get("request_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.ValidationError(w, "Параметр request_id должен быть целым числом")
			return
		}
		requestID = parsed
	}

	rec, err := h.svc.ReadRecord(caller, recordID, requestID)
	if err != nil {
		apierrors.WriteLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
