package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/canonical/lxd/lxd/db/query"
	"github.com/canonical/lxd/shared/logger"
	"github.com/canonical/lxd/shared/revert"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/spi/types"
)

// DB is an Engine backed by a database/sql driver running in this process.
type DB struct {
	db      *sql.DB
	engine  types.EngineType
	dialect dialect

	// stop shuts down anything started alongside the database (the dqlite node).
	stop func() error

	mu        sync.Mutex
	functions []types.Function

	// registered holds the names of the functions already registered, keyed by driver connection
	// for engines whose functions are connection local and by the DB itself otherwise.
	registered map[any]map[string]bool
}

// Open opens the configured engine and applies its init statements.
func Open(ctx context.Context, cfg types.EngineConfig, os *sys.OS) (*DB, error) {
	var db *DB
	var err error
	switch cfg.Engine {
	case types.EngineDuckDB, "":
		db, err = openDuckDB(cfg)
	case types.EngineSQLite:
		db, err = openSQLite(cfg, os)
	case types.EngineDqlite:
		db, err = openDqlite(ctx, cfg, os)
	default:
		return nil, fmt.Errorf("Unknown engine %q", cfg.Engine)
	}

	if err != nil {
		return nil, err
	}

	reverter := revert.New()
	defer reverter.Fail()

	reverter.Add(func() {
		err := db.Close()
		if err != nil {
			logger.Error("Failed to close engine", logger.Ctx{"engine": db.engine, "error": err})
		}
	})

	err = db.applyInit(ctx, cfg.Init)
	if err != nil {
		return nil, err
	}

	logger.Debug("Opened engine", logger.Ctx{"engine": db.engine, "init": len(cfg.Init)})

	reverter.Success()

	return db, nil
}

// NewDB wraps an already open database of the given engine type.
func NewDB(sqlDB *sql.DB, engine types.EngineType) (*DB, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return nil, err
	}

	if engine != types.EngineDuckDB {
		// SQLite based engines hold a single writer connection.
		sqlDB.SetMaxOpenConns(1)
	}

	return &DB{db: sqlDB, engine: engine, dialect: d, registered: map[any]map[string]bool{}}, nil
}

func dialectFor(engine types.EngineType) (dialect, error) {
	switch engine {
	case types.EngineDuckDB:
		return duckDialect{}, nil
	case types.EngineSQLite:
		return sqliteDialect{}, nil
	case types.EngineDqlite:
		return dqliteDialect{}, nil
	}

	return nil, fmt.Errorf("Unknown engine %q", engine)
}

// applyInit runs the configured init statements in a single transaction.
func (db *DB) applyInit(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}

	return query.Transaction(ctx, db.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range stmts {
			_, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("Failed to apply init statement %q: %w", stmt, err)
			}
		}

		return nil
	})
}

// Name returns the engine implementation name.
func (db *DB) Name() types.EngineType {
	return db.engine
}

// Begin acquires a dedicated connection and starts a transaction on it.
func (db *DB) Begin(ctx context.Context) (Conn, error) {
	reverter := revert.New()
	defer reverter.Fail()

	conn, err := db.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("Failed to acquire engine connection: %w", err)
	}

	reverter.Add(func() {
		err := conn.Close()
		if err != nil {
			logger.Warn("Failed to release engine connection", logger.Ctx{"error": err})
		}
	})

	err = db.registerFunctions(conn)
	if err != nil {
		return nil, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to begin transaction: %w", err)
	}

	reverter.Success()

	return &sqlConn{conn: conn, tx: tx, dialect: db.dialect}, nil
}

// RegisterFunction makes host code callable from statements. It is registered on each
// connection the next time a transaction begins on it.
func (db *DB) RegisterFunction(fn types.Function) error {
	err := db.dialect.checkFunction(fn)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.functions {
		if existing.Name == fn.Name {
			return fmt.Errorf("Host function %q is already registered", fn.Name)
		}
	}

	db.functions = append(db.functions, fn)

	return nil
}

// registerFunctions registers every host function conn doesn't know about yet.
func (db *DB) registerFunctions(conn *sql.Conn) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.functions) == 0 {
		return nil
	}

	var scope any = db
	if db.dialect.functionsPerConn() {
		err := conn.Raw(func(driverConn any) error {
			scope = driverConn
			return nil
		})
		if err != nil {
			return fmt.Errorf("Failed to access engine connection: %w", err)
		}
	}

	done, ok := db.registered[scope]
	if !ok {
		done = map[string]bool{}
		db.registered[scope] = done
	}

	for _, fn := range db.functions {
		if done[fn.Name] {
			continue
		}

		err := db.dialect.registerFunction(conn, fn)
		if err != nil {
			return fmt.Errorf("Failed to register host function %q: %w", fn.Name, err)
		}

		done[fn.Name] = true
		logger.Debug("Registered host function", logger.Ctx{"engine": db.engine, "function": fn.Name})
	}

	return nil
}

// Close closes the database and anything started alongside it.
func (db *DB) Close() error {
	err := db.db.Close()
	if err != nil {
		return fmt.Errorf("Failed to close database: %w", err)
	}

	if db.stop != nil {
		err = db.stop()
		if err != nil {
			return err
		}
	}

	return nil
}
