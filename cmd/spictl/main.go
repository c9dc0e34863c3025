// Package main provides spictl, a tool for running statements through the SPI.
package main

import (
	"os"

	"github.com/canonical/lxd/shared/logger"
	"github.com/spf13/cobra"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/microspi"
	"github.com/canonical/microspi/spi/types"
)

// CmdControl has functions that are common to the spictl commands.
type CmdControl struct {
	FlagHelp       bool
	FlagVersion    bool
	FlagLogDebug   bool
	FlagLogVerbose bool
	FlagStateDir   string
	FlagEngine     string
	FlagDSN        string
}

// Version is the spictl version.
var Version = "0.1.0"

func (c *CmdControl) initLogger(cmd *cobra.Command, args []string) error {
	return logger.InitLogger("", "", c.FlagLogVerbose, c.FlagLogDebug, nil)
}

// app returns the MicroSPI instance for the common flags.
func (c *CmdControl) app() (*microspi.MicroSPI, error) {
	return microspi.App(microspi.Args{
		StateDir: c.FlagStateDir,
		Verbose:  c.FlagLogVerbose,
		Debug:    c.FlagLogDebug,
		Engine:   types.EngineType(c.FlagEngine),
		DSN:      c.FlagDSN,
	})
}

func main() {
	// common flags.
	commonCmd := CmdControl{}

	app := &cobra.Command{
		Use:               "spictl",
		Short:             "Command for running statements through the SPI",
		Version:           Version,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: commonCmd.initLogger,
	}

	app.PersistentFlags().StringVar(&commonCmd.FlagStateDir, "state-dir", os.Getenv(sys.StateDir), "Path to store state information"+"``")
	app.PersistentFlags().StringVar(&commonCmd.FlagEngine, "engine", "", "Engine to run statements on (duckdb, sqlite or dqlite)"+"``")
	app.PersistentFlags().StringVar(&commonCmd.FlagDSN, "dsn", "", "Data source name passed to the engine driver"+"``")
	app.PersistentFlags().BoolVarP(&commonCmd.FlagHelp, "help", "h", false, "Print help")
	app.PersistentFlags().BoolVar(&commonCmd.FlagVersion, "version", false, "Print version number")
	app.PersistentFlags().BoolVarP(&commonCmd.FlagLogDebug, "debug", "d", false, "Show all debug messages")
	app.PersistentFlags().BoolVarP(&commonCmd.FlagLogVerbose, "verbose", "v", false, "Show all information messages")

	app.SetVersionTemplate("{{.Version}}\n")

	var cmdQuery = cmdQuery{common: &commonCmd}
	app.AddCommand(cmdQuery.command())

	var cmdExec = cmdExec{common: &commonCmd}
	app.AddCommand(cmdExec.command())

	var cmdExplain = cmdExplain{common: &commonCmd}
	app.AddCommand(cmdExplain.command())

	var cmdConfig = cmdConfig{common: &commonCmd}
	app.AddCommand(cmdConfig.command())

	app.InitDefaultHelpCmd()

	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
