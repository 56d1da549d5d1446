package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSink — файловый append-only журнал аудита.
// Каждое событие — одна JSON-строка. Файл открывается в режиме
// O_APPEND: записи только добавляются, перезапись невозможна.
// Потокобезопасен через мьютекс.
type FileSink struct {
	mu     sync.Mutex
	f      *os.File
	logger *slog.Logger
}

// NewFileSink открывает (или создаёт) файл журнала аудита.
// Создаёт родительскую директорию при необходимости.
func NewFileSink(path string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию журнала аудита: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть журнал аудита %s: %w", path, err)
	}

	return &FileSink{
		f:      f,
		logger: logger.With(slog.String("component", "audit_sink")),
	}, nil
}

// Emit дописывает событие в журнал. Ошибки записи логируются,
// но не возвращаются: ядро не зависит от успешности аудита.
func (s *FileSink) Emit(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Ошибка сериализации события аудита",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.Write(data); err != nil {
		s.logger.Error("Ошибка записи в журнал аудита",
			slog.String("event_id", event.EventID),
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	// fsync для гарантии записи на диск
	if err := s.f.Sync(); err != nil {
		s.logger.Warn("Ошибка fsync журнала аудита",
			slog.String("error", err.Error()),
		)
	}
}

// Close закрывает файл журнала.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Memory — in-memory приёмник событий для тестов сервисного слоя.
// Потокобезопасен.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Emit сохраняет событие в памяти.
func (m *Memory) Emit(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events возвращает копию накопленных событий.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Event, len(m.events))
	copy(result, m.events)
	return result
}
