package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canonical/microspi/spi/types"
)

type cmdConfig struct {
	common *CmdControl
}

func (c *cmdConfig) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the engine configuration.",
		RunE:  func(cmd *cobra.Command, args []string) error { return cmd.Help() },
	}

	var cmdShow = cmdConfigShow{common: c.common}
	cmd.AddCommand(cmdShow.command())

	var cmdSet = cmdConfigSet{common: c.common}
	cmd.AddCommand(cmdSet.command())

	return cmd
}

type cmdConfigShow struct {
	common *CmdControl
}

func (c *cmdConfigShow) command() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective engine configuration.",
		RunE:  c.run,
	}
}

func (c *cmdConfigShow) run(cmd *cobra.Command, args []string) error {
	m, err := c.common.app()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(m.Config().Get())
	if err != nil {
		return fmt.Errorf("Failed to marshal engine config: %w", err)
	}

	fmt.Print(string(out))

	return nil
}

type cmdConfigSet struct {
	common *CmdControl
}

func (c *cmdConfigSet) command() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set an engine configuration key (engine, dsn, address or init) and write it to the state directory.",
		RunE:  c.run,
	}
}

func (c *cmdConfigSet) run(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return cmd.Help()
	}

	if c.common.FlagStateDir == "" {
		return fmt.Errorf("A state directory is required to write the engine config")
	}

	m, err := c.common.app()
	if err != nil {
		return err
	}

	cfg := m.Config()
	key, value := args[0], args[1]
	switch key {
	case "engine":
		err = cfg.SetEngine(types.EngineType(value))
		if err != nil {
			return err
		}

	case "dsn":
		cfg.SetDSN(value)
	case "address":
		cfg.SetAddress(value)
	case "init":
		stmts := []string{}
		for _, stmt := range strings.Split(value, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt != "" {
				stmts = append(stmts, stmt)
			}
		}

		cfg.SetInit(stmts)
	default:
		return fmt.Errorf("Unknown config key %q", key)
	}

	return cfg.Write()
}
