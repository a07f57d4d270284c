package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Storage persists rate samples for the worker
type Storage struct {
	db     *sqlx.DB
	table  string
	logger *slog.Logger
	now    func() time.Time
}

// NewStorage creates a new Storage writing into table. The table name must
// already be validated as a plain identifier.
func NewStorage(db *sqlx.DB, table string, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		table:  table,
		logger: logger,
		now:    time.Now,
	}
}

// SaveRate stamps created_at and inserts one row. Every call adds a new
// sample; nothing is overwritten.
func (s *Storage) SaveRate(ctx context.Context, result *domain.RateResult) error {
	result.CreatedAt = s.now().UTC()

	query := fmt.Sprintf(`
		INSERT INTO %s (from_currency, to_currency, rate, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, pq.QuoteIdentifier(s.table))

	var id int64
	err := s.db.QueryRowxContext(ctx, query, result.From, result.To, result.Rate, result.CreatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("%w: failed to insert rate: %v", domain.ErrPersist, err)
	}
	result.ID = id

	s.logger.Debug("Rate saved",
		slog.Int64("id", id),
		slog.String("from", result.From),
		slog.String("to", result.To),
		slog.String("rate", result.Rate),
	)

	return nil
}
