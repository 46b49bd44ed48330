package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Sequencer hands out per-partition, monotonically increasing sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresSequencer struct {
	pool rowQuerier
}

func NewPostgresSequencer(pool rowQuerier) *PostgresSequencer {
	return &PostgresSequencer{pool: pool}
}

func (s *PostgresSequencer) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = NOW()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
