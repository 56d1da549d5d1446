// Пакет service — бизнес-логика Medledger.
// ledger.go — сервис доступа к реестру: операции диспетчера из
// контракта ядра. Каждая успешная мутация порождает ровно одно
// событие аудита (fire-and-forget) и обновляет Prometheus-метрики.
package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/audit"
	"github.com/bigkaa/medledger/internal/clock"
	"github.com/bigkaa/medledger/internal/domain/model"
	"github.com/bigkaa/medledger/internal/ledger"
)

// LedgerService — сервис операций над реестром доступа.
// Все мутации сериализуются на границе соответствующего хранилища;
// сервис не держит собственных блокировок.
type LedgerService struct {
	registry   *ledger.CustodianRegistry
	records    *ledger.RecordStore
	grants     *ledger.GrantLedger
	authorizer *ledger.AccessAuthorizer
	clk        clock.Clock
	sink       audit.Sink
	logger     *slog.Logger
}

// NewLedgerService создаёт сервис реестра доступа.
func NewLedgerService(
	registry *ledger.CustodianRegistry,
	records *ledger.RecordStore,
	grants *ledger.GrantLedger,
	authorizer *ledger.AccessAuthorizer,
	clk clock.Clock,
	sink audit.Sink,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		registry:   registry,
		records:    records,
		grants:     grants,
		authorizer: authorizer,
		clk:        clk,
		sink:       sink,
		logger:     logger.With(slog.String("component", "ledger_service")),
	}
}

// CreateRecord создаёт запись пациента от имени кастодиана.
// Авторизация кастодиана проверяется ДО любой мутации состояния.
func (s *LedgerService) CreateRecord(custodian, subject, contentRef, category string) (uint64, error) {
	if custodian == "" {
		return 0, opFailed("create_record", &ledger.Error{
			Code:    ledger.CodeInvalidIdentity,
			Message: "идентификатор кастодиана пуст",
		})
	}
	if !s.registry.IsAuthorized(custodian) {
		return 0, opFailed("create_record", &ledger.Error{
			Code:    ledger.CodeUnauthorized,
			Message: "идентификатор \"" + custodian + "\" не является кастодианом",
		})
	}

	now := s.clk.Now()
	id, err := s.records.Create(custodian, subject, contentRef, category, now)
	if err != nil {
		return 0, opFailed("create_record", err)
	}

	middleware.RecordsTotal.Inc()
	middleware.OperationsTotal.WithLabelValues("create_record", "success").Inc()

	s.emit(audit.Event{
		Kind:      audit.KindRecordCreated,
		Actor:     custodian,
		Subject:   subject,
		RecordID:  id,
		Timestamp: now,
	})
	return id, nil
}

// RequestAccess создаёт запрос на доступ к данным пациента.
func (s *LedgerService) RequestAccess(requester, subject, purpose string, duration time.Duration) (uint64, error) {
	now := s.clk.Now()
	id, err := s.grants.Request(requester, subject, purpose, duration, now)
	if err != nil {
		return 0, opFailed("request_access", err)
	}

	middleware.AccessRequestsTotal.Inc()
	middleware.OperationsTotal.WithLabelValues("request_access", "success").Inc()

	s.emit(audit.Event{
		Kind:      audit.KindAccessRequested,
		Actor:     requester,
		Subject:   subject,
		RequestID: id,
		Timestamp: now,
	})
	return id, nil
}

// GrantAccess одобряет запрос от имени пациента.
func (s *LedgerService) GrantAccess(caller string, requestID uint64) error {
	now := s.clk.Now()
	if err := s.grants.Grant(caller, requestID, now); err != nil {
		return opFailed("grant_access", err)
	}

	middleware.OperationsTotal.WithLabelValues("grant_access", "success").Inc()

	s.emit(audit.Event{
		Kind:      audit.KindAccessGranted,
		Actor:     caller,
		Subject:   caller,
		RequestID: requestID,
		Timestamp: now,
	})
	return nil
}

// RevokeAccess отзывает одобрение запроса от имени пациента.
func (s *LedgerService) RevokeAccess(caller string, requestID uint64) error {
	now := s.clk.Now()
	if err := s.grants.Revoke(caller, requestID, now); err != nil {
		return opFailed("revoke_access", err)
	}

	middleware.OperationsTotal.WithLabelValues("revoke_access", "success").Inc()

	s.emit(audit.Event{
		Kind:      audit.KindAccessRevoked,
		Actor:     caller,
		Subject:   caller,
		RequestID: requestID,
		Timestamp: now,
	})
	return nil
}

// AuthorizeCustodian добавляет нового кастодиана от имени действующего.
func (s *LedgerService) AuthorizeCustodian(caller, target string) error {
	if err := s.registry.Authorize(caller, target); err != nil {
		return opFailed("authorize_custodian", err)
	}

	middleware.OperationsTotal.WithLabelValues("authorize_custodian", "success").Inc()

	s.emit(audit.Event{
		Kind:      audit.KindCustodianAuthorized,
		Actor:     caller,
		Subject:   target,
		Timestamp: s.clk.Now(),
	})
	return nil
}

// ListRecordsFor возвращает идентификаторы записей пациента
// в порядке создания. Чистый запрос.
func (s *LedgerService) ListRecordsFor(subject string) []uint64 {
	return s.records.ListFor(subject)
}

// IsAccessValid возвращает true, если запрос одобрен и срок не истёк.
// Пересчитывается на каждом вызове.
func (s *LedgerService) IsAccessValid(requestID uint64) bool {
	return s.grants.IsCurrentlyGranted(requestID, s.clk.Now())
}

// IsCustodian возвращает true, если identity — действующий кастодиан.
func (s *LedgerService) IsCustodian(identity string) bool {
	return s.registry.IsAuthorized(identity)
}

// GetAccessRequest возвращает запрос и его производное состояние
// на текущий момент.
func (s *LedgerService) GetAccessRequest(requestID uint64) (model.AccessRequest, model.RequestState, error) {
	req, ok := s.grants.Get(requestID)
	if !ok {
		return model.AccessRequest{}, "", &ledger.Error{
			Code:    ledger.CodeNotFound,
			Message: "запрос не найден",
		}
	}
	return req, req.State(s.clk.Now()), nil
}

// ReadRecord возвращает полные метаданные записи (включая ссылку на
// содержимое), если caller имеет право на чтение. requestID == 0
// означает чтение без запроса на доступ (доступно только владельцу).
// Авторизация перепроверяется при каждом вызове.
func (s *LedgerService) ReadRecord(caller string, recordID, requestID uint64) (model.Record, error) {
	now := s.clk.Now()
	if err := s.authorizer.CanRead(caller, recordID, requestID, now); err != nil {
		middleware.OperationsTotal.WithLabelValues("read_record", "denied").Inc()
		s.logger.Warn("Чтение записи запрещено",
			slog.String("caller", caller),
			slog.Uint64("record_id", recordID),
			slog.Uint64("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return model.Record{}, err
	}

	rec, ok := s.records.Get(recordID)
	if !ok {
		// Гонки здесь нет: записи никогда не удаляются физически
		return model.Record{}, &ledger.Error{
			Code:    ledger.CodeNotFound,
			Message: "запись не найдена",
		}
	}

	middleware.OperationsTotal.WithLabelValues("read_record", "success").Inc()
	return rec, nil
}

// RecordCount возвращает количество записей в хранилище.
func (s *LedgerService) RecordCount() int {
	return s.records.Count()
}

// RequestCount возвращает количество запросов на доступ.
func (s *LedgerService) RequestCount() int {
	return s.grants.Count()
}

// CustodianCount возвращает количество авторизованных кастодианов.
func (s *LedgerService) CustodianCount() int {
	return s.registry.Count()
}

// emit отправляет событие аудита fire-and-forget.
// EventID присваивается здесь, чтобы хранилища о нём не знали.
func (s *LedgerService) emit(event audit.Event) {
	event.EventID = uuid.New().String()
	s.sink.Emit(event)
}

// opFailed фиксирует неуспех операции в метриках и возвращает ошибку.
func opFailed(operation string, err error) error {
	middleware.OperationsTotal.WithLabelValues(operation, "error").Inc()
	return err
}
