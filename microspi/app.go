// Package microspi wires a configured engine to an SPI.
package microspi

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/canonical/lxd/shared/logger"

	"github.com/canonical/microspi/internal/config"
	"github.com/canonical/microspi/internal/db"
	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/spi"
	"github.com/canonical/microspi/spi/types"
)

// MicroSPI contains the filesystem and configuration used to open an engine.
type MicroSPI struct {
	FileSystem *sys.OS

	config *config.EngineConfig
	args   Args
}

// Args contains options for configuring MicroSPI.
type Args struct {
	Verbose  bool
	Debug    bool
	StateDir string

	// Engine and DSN override the values from engine.yaml when set.
	Engine types.EngineType
	DSN    string
}

// App returns an instance of MicroSPI with a newly initialized filesystem if one does not exist.
// Without a state directory the engine runs fully in memory with the default configuration.
func App(args Args) (*MicroSPI, error) {
	m := &MicroSPI{args: args}
	if args.StateDir == "" {
		m.config = config.NewEngineConfig("")
	} else {
		stateDir, err := filepath.Abs(args.StateDir)
		if err != nil {
			return nil, fmt.Errorf("Missing absolute state directory: %w", err)
		}

		m.FileSystem, err = sys.DefaultOS(stateDir, true)
		if err != nil {
			return nil, err
		}

		m.config = config.NewEngineConfig(m.FileSystem.ConfigPath())
		err = m.config.Load()
		if err != nil {
			return nil, err
		}
	}

	if args.Engine != "" {
		err := m.config.SetEngine(args.Engine)
		if err != nil {
			return nil, err
		}
	}

	if args.DSN != "" {
		m.config.SetDSN(args.DSN)
	}

	return m, nil
}

// Config returns the engine configuration.
func (m *MicroSPI) Config() *config.EngineConfig {
	return m.config
}

// Instance is an open engine together with the SPI bound to it.
type Instance struct {
	*spi.SPI

	engine *db.DB
}

// Open opens the configured engine and returns an SPI for it. Hooks may be nil.
func (m *MicroSPI) Open(ctx context.Context, hooks *spi.Hooks) (*Instance, error) {
	cfg := m.config.Get()
	err := config.Validate(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := db.Open(ctx, cfg, m.FileSystem)
	if err != nil {
		return nil, fmt.Errorf("Failed to open engine %q: %w", cfg.Engine, err)
	}

	logger.Info("Engine ready", logger.Ctx{"engine": engine.Name()})

	return &Instance{SPI: spi.New(engine, hooks), engine: engine}, nil
}

// Engine returns the name of the engine implementation.
func (i *Instance) Engine() types.EngineType {
	return i.engine.Name()
}

// Close shuts the engine down. No frame may be open.
func (i *Instance) Close() error {
	if i.Depth() > 0 {
		return fmt.Errorf("Cannot close engine with %d open SPI frames", i.Depth())
	}

	return i.engine.Close()
}
