package db

import (
	"context"

	"github.com/canonical/microspi/spi/types"
)

// Engine is the low-level call contract of the database engine hosting the SPI.
type Engine interface {
	// Name returns the engine implementation name.
	Name() types.EngineType

	// Begin acquires the engine connection and starts a transaction on it.
	Begin(ctx context.Context) (Conn, error)

	// RegisterFunction makes host code callable by name from statements.
	RegisterFunction(fn types.Function) error

	// Close shuts the engine down.
	Close() error
}

// Conn is an acquired engine connection with an open transaction.
type Conn interface {
	// Exec executes a statement and returns its tuple table.
	Exec(ctx context.Context, stmt Statement) (*TupleTable, error)

	// Explain plans a statement without executing it and returns the plan output as JSON
	// (an array of objects each holding a "Plan" object).
	Explain(ctx context.Context, stmt Statement) ([]byte, error)

	// Commit commits the transaction and releases the connection.
	Commit() error

	// Rollback aborts the transaction and releases the connection.
	Rollback() error
}

// Statement is a SQL text with its bound driver values.
type Statement struct {
	Query    string
	Args     []any
	ReadOnly bool

	// Limit caps the number of tuples returned. Zero returns all tuples.
	Limit int64
}

// TupleTable is the raw result of executing a statement.
type TupleTable struct {
	Columns   []string
	Types     []types.Oid
	Rows      [][]types.Datum
	Processed int64
}
