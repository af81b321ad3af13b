// Package migrations holds the embedded schema for every supported driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

// Run executes all migrations for the connection's driver in order.
// Every statement is idempotent, so Run is safe on an existing database.
func Run(ctx context.Context, conn database.Connection) error {
	dir, err := dirFor(conn.Driver())
	if err != nil {
		return err
	}

	files, err := upFiles(dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		migration, err := migrationsFS.ReadFile(dir + "/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		for _, stmt := range Statements(string(migration)) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", file, err)
			}
		}
	}

	return nil
}

func dirFor(d database.Driver) (string, error) {
	switch d {
	case database.DriverSQLite:
		return "sqlite", nil
	case database.DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", d)
	}
}

// upFiles lists the .up.sql files of a directory in name order.
func upFiles(dir string) ([]string, error) {
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Statements splits a migration file on semicolons and drops empty parts.
func Statements(migration string) []string {
	var out []string
	for _, part := range strings.Split(migration, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
