package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ledgerLockKey scopes the migration advisory lock to this service, so a
// shared database cannot cross-block unrelated migrators.
const ledgerLockKey = 0x6c656467 // "ledg"

// migration is one embedded schema step, keyed by its filename version.
type migration struct {
	version string
	sql     string
}

// Migrator brings the session-ledger schema up to date from the embedded
// migration files.
type Migrator struct {
	pool *pgxpool.Pool
}

// NewMigrator creates a Migrator over the given pool.
func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

// Migrate applies pending migrations in version order, each in its own
// transaction. Concurrent server starts serialize on ledgerLockKey;
// applied versions are recorded in schema_migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, `SELECT pg_advisory_lock($1)`, ledgerLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = m.pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, ledgerLockKey)
	}()

	if _, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(migrationsFS, applied)
	if err != nil {
		return err
	}

	for _, mg := range pending {
		if err := m.apply(ctx, mg); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migration versions: %w", err)
	}
	return applied, nil
}

// apply runs one migration and records its version atomically.
func (m *Migrator) apply(ctx context.Context, mg migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", mg.version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, mg.sql); err != nil {
		return fmt.Errorf("apply migration %s: %w", mg.version, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, mg.version); err != nil {
		return fmt.Errorf("record migration %s: %w", mg.version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", mg.version, err)
	}
	return nil
}

// pendingMigrations returns the embedded migrations not yet in applied,
// sorted by version.
func pendingMigrations(fsys fs.FS, applied map[string]bool) ([]migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}
	sort.Strings(names)

	var out []migration
	for _, name := range names {
		version := strings.TrimSuffix(path.Base(name), ".sql")
		if applied[version] {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, migration{version: version, sql: string(content)})
	}
	return out, nil
}
