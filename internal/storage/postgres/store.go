package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"priceScope/internal/storage"
)

// Store provides Postgres persistence for audit records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id BIGSERIAL PRIMARY KEY,
			method TEXT NOT NULL,
			detail TEXT NOT NULL,
			ok BOOLEAN NOT NULL,
			error TEXT,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// PutAudit inserts one audit record.
func (s *Store) PutAudit(ctx context.Context, record storage.AuditRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_records (method, detail, ok, error, recorded_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`,
		record.Method,
		record.Detail,
		record.OK,
		record.Error,
		record.RecordedAt,
	)
	return err
}
