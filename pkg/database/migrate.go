package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationResult describes one applied or pending migration
type MigrationResult struct {
	Version int64
	Source  string
	State   string
}

// Migrator applies goose migrations from an embedded filesystem
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

// NewMigrator opens a database/sql handle through the pgx driver and loads
// the migrations found at the root of fsys.
func NewMigrator(dsn string, fsys fs.FS) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db for migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{db: db, provider: provider}, nil
}

// Up applies all pending migrations
func (m *Migrator) Up(ctx context.Context) ([]MigrationResult, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return toResults(results), nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down(ctx context.Context) (*MigrationResult, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	out := toResults([]*goose.MigrationResult{result})
	return &out[0], nil
}

// Status lists every known migration and whether it is applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationResult, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}

	out := make([]MigrationResult, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationResult{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			State:   string(s.State),
		})
	}
	return out, nil
}

// Close releases the database handle
func (m *Migrator) Close() error {
	return m.db.Close()
}

func toResults(results []*goose.MigrationResult) []MigrationResult {
	out := make([]MigrationResult, 0, len(results))
	for _, r := range results {
		out = append(out, MigrationResult{
			Version: r.Source.Version,
			Source:  r.Source.Path,
			State:   r.Direction,
		})
	}
	return out
}
