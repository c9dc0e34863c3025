package sys

const (
	// EnvPrefix is the prefix of environment variables overriding engine.yaml keys, e.g. MICROSPI_ENGINE.
	EnvPrefix = "MICROSPI"

	// StateDir is the location of the state directory.
	StateDir = "MICROSPI_STATE_DIR"

	// DqliteSocket is the configurable location of the dqlite socket.
	DqliteSocket = "DQLITE_SOCKET"
)
