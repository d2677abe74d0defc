package store

import (
	"fmt"

	"github.com/roach88/wishrank/internal/querysql"
)

// Schema version tracking:
// 0 - Empty database
// 1 - items table
// 2 - Composite index matching the list order
const currentSchemaVersion = 2

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema() error {
	schema := schemaSQLite
	if s.dialect == querysql.Postgres {
		schema = schemaPostgres
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on the stored
// schema version.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version < 2 {
		if err := s.migrateToV2(); err != nil {
			return err
		}
	}

	return s.setSchemaVersion(currentSchemaVersion)
}

// migrateToV2 adds the index that serves keyset pagination.
func (s *Store) migrateToV2() error {
	_, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_items_order
		ON items(list_id, deleted, sort_key, created_at, id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// schemaVersion reads PRAGMA user_version on SQLite and the schema_version
// table on Postgres.
func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.dialect == querysql.SQLite {
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return 0, fmt.Errorf("get user_version: %w", err)
		}
		return version, nil
	}

	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get schema_version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(version int) error {
	if s.dialect == querysql.SQLite {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	return nil
}
