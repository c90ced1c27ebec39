package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/brave-search/internal/domain"
)

type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Record(ctx context.Context, rec *domain.SearchRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
        INSERT INTO search_history
            (endpoint, query, count, "offset", result_count, status, error, correlation_id, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `

	err := r.db.Pool.QueryRow(ctx, query,
		rec.Endpoint,
		rec.Query,
		rec.Count,
		rec.Offset,
		rec.ResultCount,
		string(rec.Status),
		rec.Error,
		rec.CorrelationID,
		rec.StartedAt,
		rec.FinishedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}

	return nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT id, endpoint, query, count, "offset", result_count, status, error, correlation_id, started_at, finished_at
        FROM search_history
        ORDER BY started_at DESC, id DESC
        LIMIT $1
    `

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	return records, nil
}

func (r *HistoryRepo) CountByStatus(ctx context.Context, status domain.SearchStatus) (int, error) {
	var cnt int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM search_history WHERE status = $1`,
		string(status),
	).Scan(&cnt)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return cnt, nil
}

func scanRecord(row pgx.CollectableRow) (domain.SearchRecord, error) {
	var rec domain.SearchRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.Endpoint,
		&rec.Query,
		&rec.Count,
		&rec.Offset,
		&rec.ResultCount,
		&status,
		&rec.Error,
		&rec.CorrelationID,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	rec.Status = domain.SearchStatus(status)
	return rec, err
}
