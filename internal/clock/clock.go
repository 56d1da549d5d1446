// Пакет clock — источник логического времени Medledger.
// Все операции ядра получают now явно от сервисного слоя,
// поэтому истечение сроков детерминированно тестируется.
package clock

import (
	"sync"
	"time"
)

// Clock — источник текущего времени.
type Clock interface {
	Now() time.Time
}

// System — системные часы (UTC).
type System struct{}

// Now возвращает текущее системное время в UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Manual — управляемые часы для тестов.
// Потокобезопасны: Now/Set/Advance под мьютексом.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual создаёт управляемые часы с начальным временем.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now возвращает текущее установленное время.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set устанавливает время.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance сдвигает время вперёд на d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
