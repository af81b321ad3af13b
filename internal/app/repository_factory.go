package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/gritline/internal/shared/application"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/gritline/pkg/config"

	// Register the SQL drivers with the database factory.
	_ "github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database/sqlite"
)

// RepositoryFactory creates the data store for the configured database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory. A nil connection
// selects the in-memory store.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	if conn == nil {
		return &RepositoryFactory{driver: database.DriverMemory}
	}
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// Driver returns the database driver the factory builds for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// DataStore creates the data store for the configured driver.
func (f *RepositoryFactory) DataStore() (domain.DataStore, error) {
	switch f.driver {
	case database.DriverPostgres, database.DriverSQLite:
		return persistence.NewSQLStore(f.conn), nil

	case database.DriverMemory:
		return persistence.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// UnitOfWork returns a transactional unit of work, or nil for the memory
// store.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	if f.conn == nil {
		return nil
	}
	return database.NewUnitOfWork(f.conn)
}

// openConnection connects to the configured database and applies the schema.
// The memory driver returns a nil connection.
func openConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Connection, error) {
	dbCfg := database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}
	if dbCfg.Driver == "" {
		dbCfg.Driver = database.DetectDriver(cfg.DatabaseURL)
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if errors.Is(err, database.ErrNoConnection) {
		logger.Info("using in-memory data store")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("running migrations", "driver", conn.Driver())
	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("connected to database", "driver", conn.Driver())
	return conn, nil
}
