package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGConfig holds PostgreSQL connection configuration.
type PGConfig struct {
	URL      string `yaml:"url" json:"url"`
	MaxConns int32  `yaml:"max_conns" json:"max_conns"`
	MinConns int32  `yaml:"min_conns" json:"min_conns"`

	// OpTimeout bounds each ledger call. Zero means no store-level bound
	// beyond the caller's context.
	OpTimeout time.Duration `yaml:"op_timeout" json:"op_timeout"`
}

// PGStore wraps a pgxpool.Pool and provides access to the session ledger.
type PGStore struct {
	pool   *pgxpool.Pool
	ledger *PGSessionLedger
}

// NewPGStore connects to PostgreSQL and returns a PGStore.
func NewPGStore(ctx context.Context, cfg PGConfig) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pg config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}

	return &PGStore{
		pool:   pool,
		ledger: &PGSessionLedger{pool: pool, opTimeout: cfg.OpTimeout},
	}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (s *PGStore) Pool() *pgxpool.Pool { return s.pool }

// Close closes the connection pool.
func (s *PGStore) Close() { s.pool.Close() }

// Sessions returns the SessionLedger.
func (s *PGStore) Sessions() SessionLedger { return s.ledger }
