package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	dqlite "github.com/canonical/go-dqlite/app"
	"github.com/canonical/lxd/shared/logger"
	"github.com/canonical/lxd/shared/revert"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/spi/types"
)

// DefaultDqliteAddress is the listen address of the local dqlite node when none is configured.
const DefaultDqliteAddress = "127.0.0.1:9666"

// openDqlite starts a single local dqlite node in the database directory and opens its database.
func openDqlite(ctx context.Context, cfg types.EngineConfig, fs *sys.OS) (*DB, error) {
	if fs == nil {
		return nil, fmt.Errorf("The %q engine requires a state directory", types.EngineDqlite)
	}

	address := cfg.Address
	if address == "" {
		address = DefaultDqliteAddress
	}

	reverter := revert.New()
	defer reverter.Fail()

	app, err := dqlite.New(fs.DatabaseDir,
		dqlite.WithAddress(address),
		dqlite.WithUnixSocket(os.Getenv(sys.DqliteSocket)))
	if err != nil {
		return nil, fmt.Errorf("Failed to start dqlite: %w", err)
	}

	reverter.Add(func() {
		err := app.Close()
		if err != nil {
			logger.Error("Failed to stop dqlite", logger.Ctx{"address": address, "error": err})
		}
	})

	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = app.Ready(readyCtx)
	if err != nil {
		return nil, fmt.Errorf("Failed waiting for dqlite to be ready: %w", err)
	}

	name := cfg.DSN
	if name == "" {
		name = filepath.Base(fs.DatabasePath(string(types.EngineDqlite)))
	}

	sqlDB, err := app.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Failed to open dqlite database %q: %w", name, err)
	}

	db, err := NewDB(sqlDB, types.EngineDqlite)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db.stop = app.Close

	logger.Info("Started dqlite", logger.Ctx{"address": address, "database": name})

	reverter.Success()

	return db, nil
}

// dqliteDialect plans like SQLite, but statements run on the dqlite node where host code
// can't be called.
type dqliteDialect struct {
	sqliteDialect
}

func (dqliteDialect) checkFunction(fn types.Function) error {
	return fmt.Errorf("Host functions are not supported by the %q engine", types.EngineDqlite)
}

func (d dqliteDialect) registerFunction(conn *sql.Conn, fn types.Function) error {
	return d.checkFunction(fn)
}
