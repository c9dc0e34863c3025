package main

import (
	"fmt"

	cli "github.com/canonical/lxd/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/canonical/microspi/spi"
)

type cmdQuery struct {
	common *CmdControl

	flagArgs   []string
	flagLimit  int64
	flagFormat string
}

func (c *cmdQuery) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only statement and print its rows.",
		RunE:  c.run,
	}

	cmd.Flags().StringArrayVarP(&c.flagArgs, "arg", "a", nil, "Statement argument as <type>:<value>, or <type> for NULL"+"``")
	cmd.Flags().Int64VarP(&c.flagLimit, "limit", "n", 0, "Maximum number of rows to return"+"``")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", cli.TableFormatTable, "Format (csv|json|table|yaml|compact)"+"``")

	return cmd
}

func (c *cmdQuery) run(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
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

	var header []string
	data := [][]string{}
	raw := []map[string]any{}
	err = instance.Execute(cmd.Context(), func(client *spi.Client) error {
		rs, err := client.Select(args[0], c.flagLimit, stmtArgs...)
		if err != nil {
			return err
		}

		header = rs.Columns()
		for _, row := range rs.All() {
			line := make([]string, row.Len())
			entry := make(map[string]any, row.Len())
			for i := 1; i <= row.Len(); i++ {
				d, err := row.Datum(i)
				if err != nil {
					return err
				}

				line[i-1] = d.String()
				entry[header[i-1]] = d.Value
			}

			data = append(data, line)
			raw = append(raw, entry)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("Failed to run query: %w", err)
	}

	return cli.RenderTable(c.flagFormat, header, data, raw)
}
