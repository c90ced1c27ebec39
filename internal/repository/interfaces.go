package repository

import (
	"context"

	"github.com/kitbuilder587/brave-search/internal/domain"
)

// HistoryRepository - журнал выполненных запросов к провайдеру
type HistoryRepository interface {
	Record(ctx context.Context, rec *domain.SearchRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.SearchRecord, error)
	CountByStatus(ctx context.Context, status domain.SearchStatus) (int, error)
}
