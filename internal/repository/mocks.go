package repository

import (
	"context"
	"sync"

	"github.com/kitbuilder587/brave-search/internal/domain"
)

type MockHistoryRepository struct {
	mu      sync.RWMutex
	records []domain.SearchRecord
	nextID  int64

	// RecordErr - если задан, Record возвращает его
	RecordErr error
}

var _ HistoryRepository = (*MockHistoryRepository)(nil)

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{nextID: 1}
}

func (m *MockHistoryRepository) Record(ctx context.Context, rec *domain.SearchRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordErr != nil {
		return m.RecordErr
	}

	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *rec)
	return nil
}

// ListRecent - самые свежие первыми
func (m *MockHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.SearchRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MockHistoryRepository) CountByStatus(ctx context.Context, status domain.SearchStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cnt := 0
	for _, r := range m.records {
		if r.Status == status {
			cnt++
		}
	}
	return cnt, nil
}

func (m *MockHistoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
