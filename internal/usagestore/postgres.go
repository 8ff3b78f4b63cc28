package usagestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stojg/runmix/internal/model"
)

// PostgresStore is a Postgres-backed usage store, the read/write
// counterpart to catalogstore.PostgresLayer.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a usage Store.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("usagestore: connect to postgres: %w", err)
	}

	return &PostgresStore{Pool: pool}, nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() {
	p.Pool.Close()
}

func (p *PostgresStore) LoadAll(ctx context.Context) (map[string]model.Usage, error) {
	rows, err := p.Pool.Query(ctx, `SELECT track_id, last_used_at, used_count FROM usage`)
	if err != nil {
		return nil, fmt.Errorf("usagestore: query usage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Usage)

	for rows.Next() {
		var u model.Usage

		if err := rows.Scan(&u.TrackID, &u.LastUsedAt, &u.UsedCount); err != nil {
			return nil, fmt.Errorf("usagestore: scan usage: %w", err)
		}

		out[u.TrackID] = u
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("usagestore: iterate usage: %w", err)
	}

	return out, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, usage model.Usage) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO usage (track_id, last_used_at, used_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (track_id) DO UPDATE SET
			last_used_at = EXCLUDED.last_used_at,
			used_count = EXCLUDED.used_count`,
		usage.TrackID, usage.LastUsedAt, usage.UsedCount)
	if err != nil {
		return fmt.Errorf("usagestore: upsert usage: %w", err)
	}

	return nil
}
