package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/microspi/spi"
)

type cmdExec struct {
	common *CmdControl

	flagArgs []string
}

func (c *cmdExec) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <sql>...",
		Short: "Run statements in a single transaction and print the rows each processed.",
		RunE:  c.run,
	}

	cmd.Flags().StringArrayVarP(&c.flagArgs, "arg", "a", nil, "Argument of the last statement as <type>:<value>, or <type> for NULL"+"``")

	return cmd
}

func (c *cmdExec) run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	stmtArgs, err := parseArguments(c.flagArgs)
	if err != nil {
		return err
	}

	m, err := c.common.app()
	if err != nil {
		return err
	}

	instance, err := m.Open(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = instance.Close() }()

	processed := make([]int64, 0, len(args))
	err = instance.Execute(cmd.Context(), func(client *spi.Client) error {
		for i, query := range args {
			var queryArgs = stmtArgs
			if i != len(args)-1 {
				queryArgs = nil
			}

			rs, err := client.Update(query, 0, queryArgs...)
			if err != nil {
				return err
			}

			processed = append(processed, rs.Processed())
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("Failed to run statements: %w", err)
	}

	for i, n := range processed {
		fmt.Printf("%s: %d\n", args[i], n)
	}

	return nil
}
