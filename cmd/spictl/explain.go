package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/canonical/microspi/spi/types"
)

type cmdExplain struct {
	common *CmdControl

	flagArgs   []string
	flagFormat string
}

func (c *cmdExplain) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Print the plan of a statement without running it.",
		RunE:  c.run,
	}

	cmd.Flags().StringArrayVarP(&c.flagArgs, "arg", "a", nil, "Statement argument as <type>:<value>, or <type> for NULL"+"``")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "table", "Format (table|json|yaml)"+"``")

	return cmd
}

func (c *cmdExplain) run(cmd *cobra.Command, args []string) error {
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

	plan, err := instance.ExplainWithArgs(cmd.Context(), args[0], stmtArgs)
	if err != nil {
		return fmt.Errorf("Failed to explain statement: %w", err)
	}

	switch c.flagFormat {
	case "json":
		out, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
	case "yaml":
		// Round trip through JSON so the plan keys keep their display names.
		var doc any
		out, err := json.Marshal(plan)
		if err != nil {
			return err
		}

		err = json.Unmarshal(out, &doc)
		if err != nil {
			return err
		}

		out, err = yaml.Marshal(doc)
		if err != nil {
			return err
		}

		fmt.Print(string(out))
	case "table":
		table := tablewriter.NewWriter(os.Stdout)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"NODE", "ROWS", "WIDTH", "STARTUP COST", "TOTAL COST"})
		table.AppendBulk(planRows(plan))
		table.Render()
	default:
		return fmt.Errorf("Invalid format %q", c.flagFormat)
	}

	return nil
}

// planRows flattens a plan into table rows, indenting each node by its depth.
func planRows(plan types.PlanResult) [][]string {
	data := [][]string{}
	for _, root := range plan.Plans {
		root.Walk(func(node types.PlanNode, depth int) {
			data = append(data, []string{
				strings.Repeat("  ", depth) + node.NodeType,
				fmt.Sprintf("%d", node.PlanRows),
				fmt.Sprintf("%d", node.PlanWidth),
				fmt.Sprintf("%.2f", node.StartupCost),
				fmt.Sprintf("%.2f", node.TotalCost),
			})
		})
	}

	return data
}
