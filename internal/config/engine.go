package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/internal/utils"
	"github.com/canonical/microspi/spi/types"
)

// EngineConfig wraps the engine's config with get, set and lock capabilities.
type EngineConfig struct {
	// Path of the engine.yaml file.
	path string

	// Lock the engine config for read and write operations.
	lock *sync.RWMutex

	// The actual configuration.
	config *types.EngineConfig
}

// NewEngineConfig returns an initialised version of the engine's config.
// The config has to be written to file proactively so when setting a config setting
// it doesn't automatically get propagated to the underlying file.
func NewEngineConfig(path string) *EngineConfig {
	return &EngineConfig{
		path: path,
		lock: &sync.RWMutex{},
		config: &types.EngineConfig{
			Engine: types.EngineDuckDB,
		},
	}
}

// Load loads the engine's config from its path. A missing file leaves the defaults in place.
// Every key can be overridden from the environment, e.g. MICROSPI_ENGINE=sqlite.
func (e *EngineConfig) Load() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	v := viper.New()
	v.SetConfigFile(e.path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(sys.EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("engine", string(e.config.Engine))
	v.SetDefault("dsn", e.config.DSN)
	v.SetDefault("address", e.config.Address)
	v.SetDefault("init", e.config.Init)

	_, err := os.Stat(e.path)
	if err == nil {
		err = v.ReadInConfig()
		if err != nil {
			return fmt.Errorf("Failed to load engine config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("Failed to load engine config: %w", err)
	}

	cfg := types.EngineConfig{}
	err = v.Unmarshal(&cfg)
	if err != nil {
		return fmt.Errorf("Failed to parse engine config: %w", err)
	}

	err = Validate(cfg)
	if err != nil {
		return err
	}

	*e.config = cfg

	return nil
}

// Write writes the engine's config to its path.
func (e *EngineConfig) Write() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	bytes, err := yaml.Marshal(e.config)
	if err != nil {
		return fmt.Errorf("Failed to parse engine config to yaml: %w", err)
	}

	err = renameio.WriteFile(e.path, bytes, 0644)
	if err != nil {
		return fmt.Errorf("Failed to write engine configuration yaml: %w", err)
	}

	return nil
}

// Get returns a copy of the engine's config.
func (e *EngineConfig) Get() types.EngineConfig {
	e.lock.RLock()
	defer e.lock.RUnlock()

	cfg := *e.config
	cfg.Init = append([]string(nil), e.config.Init...)

	return cfg
}

// GetEngine returns the configured engine type.
func (e *EngineConfig) GetEngine() types.EngineType {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.config.Engine
}

// SetEngine sets the engine type.
func (e *EngineConfig) SetEngine(engine types.EngineType) error {
	err := validateEngine(engine)
	if err != nil {
		return err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.config.Engine = engine

	return nil
}

// SetDSN sets the driver data source name.
func (e *EngineConfig) SetDSN(dsn string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.config.DSN = dsn
}

// SetAddress sets the dqlite listen address.
func (e *EngineConfig) SetAddress(address string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.config.Address = address
}

// SetInit sets the statements applied when the engine is opened.
func (e *EngineConfig) SetInit(stmts []string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.config.Init = append([]string(nil), stmts...)
}

// Validate checks an engine configuration for consistency.
func Validate(cfg types.EngineConfig) error {
	err := validateEngine(cfg.Engine)
	if err != nil {
		return err
	}

	if cfg.Address != "" && cfg.Engine != types.EngineDqlite {
		return fmt.Errorf("Address is only supported by the %q engine", types.EngineDqlite)
	}

	if cfg.Address != "" {
		err = utils.ValidateAddress(cfg.Address)
		if err != nil {
			return err
		}
	}

	return nil
}

func validateEngine(engine types.EngineType) error {
	switch engine {
	case types.EngineDuckDB, types.EngineSQLite, types.EngineDqlite:
		return nil
	}

	return fmt.Errorf("Unknown engine %q", engine)
}
