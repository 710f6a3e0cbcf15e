package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrateUp applies every pending migration found under path.
func MigrateUp(dbURL, path string) error {
	if path == "" {
		return errors.New("migrate: empty migrations path")
	}

	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
