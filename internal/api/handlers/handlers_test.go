package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/audit"
	"github.com/bigkaa/medledger/internal/clock"
	"github.com/bigkaa/medledger/internal/ledger"
	"github.com/bigkaa/medledger/internal/service"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testAPI — полный HTTP-стек с debug-аутентификацией и ручными часами.
type testAPI struct {
	router *chi.Mux
	clk    *clock.Manual
	svc    *service.LedgerService
}

// newTestAPI собирает роутер со всеми маршрутами. Идентификатор
// вызывающего передаётся заголовком X-Debug-Subject.
func newTestAPI(t *testing.T, bootstrap string) *testAPI {
	t.Helper()

	logger := testLogger()
	registry := ledger.NewCustodianRegistry(bootstrap, logger)
	records := ledger.NewRecordStore(logger)
	grants := ledger.NewGrantLedger(logger)
	authorizer := ledger.NewAccessAuthorizer(records, grants)
	clk := clock.NewManual(t0)

	svc := service.NewLedgerService(registry, records, grants, authorizer, clk, audit.Nop{}, logger)

	api := NewAPIHandler(
		NewRecordsHandler(svc),
		NewAccessHandler(svc),
		NewCustodiansHandler(svc),
		NewHealthHandler("/tmp/audit.log", svc),
		http.NotFoundHandler(),
	)

	router := chi.NewRouter()
	api.Mount(router, middleware.DebugIdentity())

	return &testAPI{router: router, clk: clk, svc: svc}
}

// do выполняет запрос от имени caller и возвращает recorder.
func (a *testAPI) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("сериализация тела: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set("X-Debug-Subject", caller)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// decode разбирает JSON-ответ в map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("разбор ответа %q: %v", rec.Body.String(), err)
	}
	return m
}

// errorCode извлекает код ошибки из JSON-ответа.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	m := decode(t, rec)
	errObj, ok := m["error"].(map[string]any)
	if !ok {
		t.Fatalf("ответ без объекта error: %v", m)
	}
	code, _ := errObj["code"].(string)
	return code
}

// TestAPI_CreateAndReadRecord проверяет полный HTTP-сценарий:
// создание записи, запрос доступа, одобрение, чтение, истечение срока.
func TestAPI_CreateAndReadRecord(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	// Кастодиан создаёт запись
	rec := api.do(t, http.MethodPost, "/api/v1/records", "clinic-a", map[string]any{
		"subject":     "patient-1",
		"content_ref": "sha256:abc",
		"category":    "blood_test",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("создание записи: статус %d, тело %s", rec.Code, rec.Body.String())
	}
	recordID := uint64(decode(t, rec)["record_id"].(float64))

	// Врач запрашивает доступ на час
	rec = api.do(t, http.MethodPost, "/api/v1/access/requests", "dr-smith", map[string]any{
		"subject":          "patient-1",
		"purpose":          "плановый осмотр",
		"duration_seconds": 3600,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("запрос доступа: статус %d, тело %s", rec.Code, rec.Body.String())
	}
	requestID := uint64(decode(t, rec)["request_id"].(float64))

	readPath := fmt.Sprintf("/api/v1/records/%d?request_id=%d", recordID, requestID)

	// До одобрения — 403
	rec = api.do(t, http.MethodGet, readPath, "dr-smith", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("до одобрения: статус %d", rec.Code)
	}

	// Пациент одобряет
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/grant", requestID), "patient-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("одобрение: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	// Чтение разрешено, метаданные полные
	rec = api.do(t, http.MethodGet, readPath, "dr-smith", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("чтение: статус %d, тело %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["content_ref"] != "sha256:abc" || body["category"] != "blood_test" {
		t.Errorf("метаданные записи искажены: %v", body)
	}

	// Срок истёк — снова 403
	api.clk.Advance(2 * time.Hour)
	rec = api.do(t, http.MethodGet, readPath, "dr-smith", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("после истечения срока: статус %d", rec.Code)
	}

	// Владелец читает без request_id
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/records/%d", recordID), "patient-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("чтение владельцем: статус %d", rec.Code)
	}
}

// TestAPI_ErrorStatuses проверяет соответствие кодов ошибок ядра
// HTTP-статусам.
func TestAPI_ErrorStatuses(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	// Подготовка: запись и одобренный запрос
	rec := api.do(t, http.MethodPost, "/api/v1/records", "clinic-a", map[string]any{
		"subject": "patient-1", "content_ref": "h", "category": "cat",
	})
	recordID := uint64(decode(t, rec)["record_id"].(float64))

	rec = api.do(t, http.MethodPost, "/api/v1/access/requests", "dr-smith", map[string]any{
		"subject": "patient-1", "purpose": "осмотр", "duration_seconds": 3600,
	})
	requestID := uint64(decode(t, rec)["request_id"].(float64))
	api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/grant", requestID), "patient-1", nil)

	tests := []struct {
		name       string
		method     string
		path       string
		caller     string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			"создание записи не-кастодианом",
			http.MethodPost, "/api/v1/records", "stranger",
			map[string]any{"subject": "patient-1", "content_ref": "h", "category": "c"},
			http.StatusForbidden, "UNAUTHORIZED",
		},
		{
			"запрос к собственным данным",
			http.MethodPost, "/api/v1/access/requests", "patient-1",
			map[string]any{"subject": "patient-1", "purpose": "p", "duration_seconds": 60},
			http.StatusBadRequest, "SELF_ACCESS_DENIED",
		},
		{
			"недопустимый срок",
			http.MethodPost, "/api/v1/access/requests", "dr-smith",
			map[string]any{"subject": "patient-1", "purpose": "p", "duration_seconds": 0},
			http.StatusBadRequest, "INVALID_DURATION",
		},
		{
			"срок чуть больше максимума",
			http.MethodPost, "/api/v1/access/requests", "dr-smith",
			map[string]any{"subject": "patient-1", "purpose": "p", "duration_seconds": 365*24*3600 + 1},
			http.StatusBadRequest, "INVALID_DURATION",
		},
		{
			// Значение, переполняющее int64 наносекунд при конвертации:
			// 10^12 секунд по модулю 2^64 нс свернулось бы в ~45 дней
			"срок, переполняющий наносекунды",
			http.MethodPost, "/api/v1/access/requests", "dr-smith",
			map[string]any{"subject": "patient-1", "purpose": "p", "duration_seconds": int64(1_000_000_000_000)},
			http.StatusBadRequest, "INVALID_DURATION",
		},
		{
			"отрицательный срок",
			http.MethodPost, "/api/v1/access/requests", "dr-smith",
			map[string]any{"subject": "patient-1", "purpose": "p", "duration_seconds": -60},
			http.StatusBadRequest, "INVALID_DURATION",
		},
		{
			"повторное одобрение",
			http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/grant", requestID), "patient-1", nil,
			http.StatusConflict, "ALREADY_GRANTED",
		},
		{
			"одобрение несуществующего запроса",
			http.MethodPost, "/api/v1/access/requests/999/grant", "patient-1", nil,
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"одобрение чужого запроса",
			http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/grant", requestID), "patient-2", nil,
			http.StatusForbidden, "FORBIDDEN",
		},
		{
			"чтение несуществующей записи",
			http.MethodGet, "/api/v1/records/999", "patient-1", nil,
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"чтение чужой записи без запроса",
			http.MethodGet, fmt.Sprintf("/api/v1/records/%d", recordID), "dr-jones", nil,
			http.StatusForbidden, "FORBIDDEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := api.do(t, tt.method, tt.path, tt.caller, tt.body)
			if res.Code != tt.wantStatus {
				t.Errorf("статус %d, ожидался %d, тело %s", res.Code, tt.wantStatus, res.Body.String())
			}
			if code := errorCode(t, res); code != tt.wantCode {
				t.Errorf("код %s, ожидался %s", code, tt.wantCode)
			}
		})
	}
}

// TestAPI_RevokeFlow проверяет отзыв одобрения через HTTP.
func TestAPI_RevokeFlow(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	rec := api.do(t, http.MethodPost, "/api/v1/access/requests", "dr-smith", map[string]any{
		"subject": "patient-1", "purpose": "осмотр", "duration_seconds": 3600,
	})
	requestID := uint64(decode(t, rec)["request_id"].(float64))

	// Отзыв до одобрения — 409
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/revoke", requestID), "patient-1", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "NOT_YET_GRANTED" {
		t.Errorf("отзыв до одобрения: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/grant", requestID), "patient-1", nil)

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/access/requests/%d/revoke", requestID), "patient-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("отзыв: статус %d", rec.Code)
	}
	if decode(t, rec)["status"] != "revoked" {
		t.Errorf("неожиданное тело отзыва: %s", rec.Body.String())
	}

	// Проверка действительности после отзыва
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/access/requests/%d/valid", requestID), "anyone", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("проверка действительности: статус %d", rec.Code)
	}
	if decode(t, rec)["valid"] != false {
		t.Error("после отзыва доступ не должен быть действителен")
	}
}

// TestAPI_GetRequestState проверяет производное состояние запроса
// через HTTP.
func TestAPI_GetRequestState(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	rec := api.do(t, http.MethodPost, "/api/v1/access/requests", "dr-smith", map[string]any{
		"subject": "patient-1", "purpose": "осмотр", "duration_seconds": 3600,
	})
	requestID := uint64(decode(t, rec)["request_id"].(float64))
	path := fmt.Sprintf("/api/v1/access/requests/%d", requestID)

	rec = api.do(t, http.MethodGet, path, "anyone", nil)
	if decode(t, rec)["state"] != "pending" {
		t.Errorf("ожидалось pending: %s", rec.Body.String())
	}

	api.do(t, http.MethodPost, path+"/grant", "patient-1", nil)
	rec = api.do(t, http.MethodGet, path, "anyone", nil)
	if decode(t, rec)["state"] != "granted" {
		t.Errorf("ожидалось granted: %s", rec.Body.String())
	}

	api.clk.Advance(2 * time.Hour)
	rec = api.do(t, http.MethodGet, path, "anyone", nil)
	if decode(t, rec)["state"] != "expired" {
		t.Errorf("ожидалось expired: %s", rec.Body.String())
	}
}

// TestAPI_ListRecords проверяет список записей пациента.
func TestAPI_ListRecords(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	api.do(t, http.MethodPost, "/api/v1/records", "clinic-a", map[string]any{
		"subject": "patient-1", "content_ref": "h1", "category": "c",
	})
	api.do(t, http.MethodPost, "/api/v1/records", "clinic-a", map[string]any{
		"subject": "patient-1", "content_ref": "h2", "category": "c",
	})

	rec := api.do(t, http.MethodGet, "/api/v1/records?subject=patient-1", "anyone", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("список записей: статус %d", rec.Code)
	}
	ids := decode(t, rec)["record_ids"].([]any)
	if len(ids) != 2 {
		t.Errorf("ожидалось 2 записи, получено %d", len(ids))
	}

	// Без параметра subject — 400
	rec = api.do(t, http.MethodGet, "/api/v1/records", "anyone", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("без subject ожидался статус 400, получен %d", rec.Code)
	}
}

// TestAPI_Custodians проверяет endpoints кастодианов.
func TestAPI_Custodians(t *testing.T) {
	api := newTestAPI(t, "deployer")

	rec := api.do(t, http.MethodPost, "/api/v1/custodians", "deployer", map[string]any{
		"target": "clinic-a",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("авторизация кастодиана: статус %d, тело %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/v1/custodians/clinic-a", "anyone", nil)
	if decode(t, rec)["authorized"] != true {
		t.Error("clinic-a должен быть кастодианом")
	}

	rec = api.do(t, http.MethodGet, "/api/v1/custodians/stranger", "anyone", nil)
	if decode(t, rec)["authorized"] != false {
		t.Error("stranger не должен быть кастодианом")
	}

	// Авторизация не-кастодианом — 403
	rec = api.do(t, http.MethodPost, "/api/v1/custodians", "stranger", map[string]any{
		"target": "clinic-b",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("авторизация не-кастодианом: статус %d", rec.Code)
	}
}

// TestAPI_RequiresAuth проверяет, что /api/v1 недоступен без
// аутентификации, а health — доступен.
func TestAPI_RequiresAuth(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	rec := api.do(t, http.MethodGet, "/api/v1/records?subject=patient-1", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("без аутентификации ожидался статус 401, получен %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health/live: статус %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health/ready: статус %d", rec.Code)
	}
	checks := decode(t, rec)["checks"].(map[string]any)
	if checks["audit_log"] != "/tmp/audit.log" {
		t.Errorf("health/ready checks: %v", checks)
	}
}

// TestAPI_BadInput проверяет валидацию входных данных на уровне HTTP.
func TestAPI_BadInput(t *testing.T) {
	api := newTestAPI(t, "clinic-a")

	tests := []struct {
		name   string
		method string
		path   string
		raw    string
	}{
		{"некорректный JSON", http.MethodPost, "/api/v1/records", "{not json"},
		{"нечисловой record_id", http.MethodGet, "/api/v1/records/abc", ""},
		{"нулевой record_id", http.MethodGet, "/api/v1/records/0", ""},
		{"нечисловой request_id", http.MethodPost, "/api/v1/access/requests/abc/grant", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.raw))
			req.Header.Set("X-Debug-Subject", "clinic-a")
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("статус %d, ожидался 400, тело %s", rec.Code, rec.Body.String())
			}
		})
	}
}
