package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/api/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Storage struct {
	db    *sqlx.DB
	table string
}

func NewStorage(db *sqlx.DB, table string) *Storage {
	return &Storage{
		db:    db,
		table: table,
	}
}

type RateFilter struct {
	From     string
	To       string
	PageSize int
	Cursor   *RateCursor
}

type RateCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ListRates returns up to PageSize+1 samples, newest first. The extra row
// tells the caller whether another page exists.
func (s *Storage) ListRates(ctx context.Context, filter RateFilter) ([]model.Rate, error) {
	query := fmt.Sprintf(`
        SELECT id, from_currency, to_currency, rate, created_at
        FROM %s
        WHERE 1=1
    `, pq.QuoteIdentifier(s.table))
	args := []interface{}{}
	argIdx := 1

	if filter.From != "" {
		query += fmt.Sprintf(" AND from_currency = $%d", argIdx)
		args = append(args, filter.From)
		argIdx++
	}

	if filter.To != "" {
		query += fmt.Sprintf(" AND to_currency = $%d", argIdx)
		args = append(args, filter.To)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rates []model.Rate
	err := s.db.SelectContext(ctx, &rates, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}

	return rates, nil
}

// Ping checks the store connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
