package types

// EngineType is the name of an engine implementation.
type EngineType string

const (
	// EngineDuckDB runs statements on an in-process DuckDB database.
	EngineDuckDB EngineType = "duckdb"

	// EngineSQLite runs statements on an in-process SQLite database.
	EngineSQLite EngineType = "sqlite"

	// EngineDqlite runs statements on a local single-node dqlite database.
	EngineDqlite EngineType = "dqlite"
)

// EngineConfig is the in memory version of the engine.yaml file.
type EngineConfig struct {
	// Engine selects the engine implementation.
	Engine EngineType `json:"engine" yaml:"engine" mapstructure:"engine"`

	// DSN is passed to the engine's driver. An empty DSN opens an in-memory database
	// (or the default database file under the state directory for dqlite).
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// Address is the dqlite listen address.
	Address string `json:"address" yaml:"address" mapstructure:"address"`

	// Init holds statements applied once when the engine is opened.
	Init []string `json:"init" yaml:"init" mapstructure:"init"`
}
