// records.go — потокобезопасное in-memory хранилище записей пациентов.
//
// RecordStore единолично владеет множеством Record и индексом
// "пациент → идентификаторы записей" (append-only, порядок создания).
// Счётчик идентификаторов выделяется под тем же мьютексом, что и
// вставка, поэтому идентификаторы глобально уникальны и монотонны
// при любом числе конкурентных писателей.
package ledger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/medledger/internal/domain/model"
)

// RecordStore — хранилище записей пациентов.
// Использует sync.RWMutex для конкурентного чтения и
// эксклюзивной записи.
type RecordStore struct {
	mu        sync.RWMutex
	records   map[uint64]*model.Record
	bySubject map[string][]uint64 // пациент → id записей в порядке создания
	nextID    uint64              // следующий идентификатор (начинается с 1)
	logger    *slog.Logger
}

// NewRecordStore создаёт пустое хранилище записей.
func NewRecordStore(logger *slog.Logger) *RecordStore {
	return &RecordStore{
		records:   make(map[uint64]*model.Record),
		bySubject: make(map[string][]uint64),
		nextID:    1,
		logger:    logger.With(slog.String("component", "record_store")),
	}
}

// Create сохраняет новую запись и возвращает её идентификатор.
//
// Валидация: subject непустой (INVALID_IDENTITY), contentRef и
// category непустые (INVALID_INPUT). Авторизацию кастодиана проверяет
// сервисный слой через CustodianRegistry ДО вызова Create — до любой
// мутации состояния.
//
// Идентификаторы монотонны, начинаются с 1 и никогда не
// переиспользуются, даже если запись позже деактивирована.
func (rs *RecordStore) Create(custodian, subject, contentRef, category string, now time.Time) (uint64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if subject == "" {
		return 0, newError(CodeInvalidIdentity, "идентификатор пациента пуст")
	}
	if contentRef == "" {
		return 0, newError(CodeInvalidInput, "ссылка на содержимое пуста")
	}
	if category == "" {
		return 0, newError(CodeInvalidInput, "категория записи пуста")
	}

	id := rs.nextID
	rs.nextID++

	rs.records[id] = &model.Record{
		ID:         id,
		ContentRef: contentRef,
		Subject:    subject,
		Custodian:  custodian,
		CreatedAt:  now,
		Category:   category,
		Active:     true,
	}
	rs.bySubject[subject] = append(rs.bySubject[subject], id)

	rs.logger.Info("Запись создана",
		slog.Uint64("record_id", id),
		slog.String("subject", subject),
		slog.String("custodian", custodian),
		slog.String("category", category),
	)

	return id, nil
}

// ListFor возвращает идентификаторы записей пациента в порядке создания.
// Пустой срез, если записей нет. Чистый запрос, возвращает копию.
func (rs *RecordStore) ListFor(subject string) []uint64 {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	ids := rs.bySubject[subject]
	result := make([]uint64, len(ids))
	copy(result, ids)
	return result
}

// Get возвращает запись по идентификатору.
// Возвращает копию для потокобезопасности; false, если запись не найдена.
func (rs *RecordStore) Get(id uint64) (model.Record, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rec, ok := rs.records[id]
	if !ok {
		return model.Record{}, false
	}
	return *rec, true
}

// Count возвращает общее количество записей в хранилище.
func (rs *RecordStore) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.records)
}
