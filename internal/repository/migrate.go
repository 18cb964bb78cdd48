package store

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoMigrations is returned by Rollback when nothing is applied.
var ErrNoMigrations = errors.New("store: no applied migrations")

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createMigrationsTableSQL = `
CREATE TABLE IF NOT EXISTS claimcheck_migrations (
	id         SERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	checksum   TEXT NOT NULL
);`

type migrationFile struct {
	Name     string
	Up       string
	Down     string
	Checksum string
}

// loadMigrations reads the embedded migrations sorted by name.
func loadMigrations() ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	upFiles := make(map[string]string)
	downFiles := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		switch {
		case strings.HasSuffix(name, ".up.sql"):
			upFiles[strings.TrimSuffix(name, ".up.sql")] = string(data)
		case strings.HasSuffix(name, ".down.sql"):
			downFiles[strings.TrimSuffix(name, ".down.sql")] = string(data)
		}
	}

	migrations := make([]migrationFile, 0, len(upFiles))
	for key, up := range upFiles {
		migrations = append(migrations, migrationFile{
			Name:     key,
			Up:       up,
			Down:     downFiles[key],
			Checksum: fmt.Sprintf("%x", sha256.Sum256([]byte(up))),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}

func (s *PGStore) appliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name, checksum FROM claimcheck_migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var name, checksum string
		if err := rows.Scan(&name, &checksum); err != nil {
			return nil, err
		}
		applied[name] = checksum
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations in order, each in its own transaction.
// An applied migration whose checksum changed is an error.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createMigrationsTableSQL); err != nil {
		return fmt.Errorf("store: ensure migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("store: load migrations: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("store: get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if checksum, ok := applied[m.Name]; ok {
			if checksum != m.Checksum {
				return fmt.Errorf("store: migration %s checksum mismatch (expected %s, got %s)", m.Name, checksum, m.Checksum)
			}
			continue
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("store: begin migration %s: %w", m.Name, err)
		}

		if _, err := tx.Exec(ctx, m.Up); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("store: run migration %s: %w", m.Name, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO claimcheck_migrations (name, checksum) VALUES ($1, $2)`, m.Name, m.Checksum); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("store: record migration %s: %w", m.Name, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", m.Name, err)
		}
	}

	return nil
}

// Rollback reverts the most recently applied migration.
func (s *PGStore) Rollback(ctx context.Context) error {
	var id int
	var name string
	err := s.db.QueryRow(ctx, `SELECT id, name FROM claimcheck_migrations ORDER BY id DESC LIMIT 1`).Scan(&id, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoMigrations
	}
	if err != nil {
		return fmt.Errorf("store: get last migration: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("store: load migrations: %w", err)
	}

	var downSQL string
	for _, m := range migrations {
		if m.Name == name {
			downSQL = m.Down
			break
		}
	}
	if downSQL == "" {
		return fmt.Errorf("store: no down migration for %s", name)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin rollback %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, downSQL); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("store: run rollback %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM claimcheck_migrations WHERE id = $1`, id); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("store: remove migration record %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit rollback %s: %w", name, err)
	}
	return nil
}

// RollbackPostgres reverts the last steps applied migrations of the PostgreSQL database at
// url without applying pending ones first. It returns the names of the reverted migrations.
func RollbackPostgres(ctx context.Context, url string, steps int) ([]string, error) {
	if !isPostgresURL(url) {
		return nil, fmt.Errorf("%w: migrations are postgres only: %s", ErrUnsupportedURL, redact(url))
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer pool.Close()

	s := &PGStore{db: pool}
	var reverted []string
	for i := 0; i < steps; i++ {
		var name string
		err := s.db.QueryRow(ctx, `SELECT name FROM claimcheck_migrations ORDER BY id DESC LIMIT 1`).Scan(&name)
		if errors.Is(err, pgx.ErrNoRows) {
			return reverted, ErrNoMigrations
		}
		if err != nil {
			return reverted, fmt.Errorf("store: get last migration: %w", err)
		}
		if err := s.Rollback(ctx); err != nil {
			return reverted, err
		}
		reverted = append(reverted, name)
	}
	return reverted, nil
}
