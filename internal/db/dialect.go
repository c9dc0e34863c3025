package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/canonical/microspi/spi/types"
)

// dialect translates engine specific behaviour into the SPI call contract.
//
// None of the embedded engines report planner costs, so every dialect synthesizes them from its
// row estimates with a fixed cost of 0.01 per emitted tuple (see estimateCosts).
type dialect interface {
	// explain plans a statement and returns the plan tree in the engine's plan output shape.
	explain(ctx context.Context, tx *sql.Tx, stmt Statement) ([]types.PlanNode, error)

	// checkFunction reports whether the engine can host the function.
	checkFunction(fn types.Function) error

	// registerFunction makes fn callable from statements run on conn.
	registerFunction(conn *sql.Conn, fn types.Function) error

	// functionsPerConn reports whether registered functions are only visible on the connection
	// they were registered on.
	functionsPerConn() bool
}

const (
	// cpuTupleCost is the estimated cost of emitting one tuple.
	cpuTupleCost = 0.01

	// defaultScanRows is the row estimate for relations the engine has no statistics for.
	defaultScanRows = 1000
)

// blockingNodes must consume their whole input before emitting the first tuple.
var blockingNodes = map[string]bool{
	"Sort":          true,
	"Aggregate":     true,
	"HashAggregate": true,
	"Hash":          true,
	"Materialize":   true,
	"WindowAgg":     true,
}

// estimateCosts fills in startup and total cost bottom up from the row estimates.
func estimateCosts(node *types.PlanNode) {
	var childTotal float64
	for i := range node.Plans {
		estimateCosts(&node.Plans[i])
		childTotal += node.Plans[i].TotalCost
	}

	node.StartupCost = 0
	if blockingNodes[node.NodeType] {
		node.StartupCost = roundCost(childTotal)
	}

	node.TotalCost = roundCost(childTotal + float64(node.PlanRows)*cpuTupleCost)
}

// fillWidth sets the width of every node that has none to the statement's output width.
func fillWidth(node *types.PlanNode, width int64) {
	if node.PlanWidth == 0 {
		node.PlanWidth = width
	}

	for i := range node.Plans {
		fillWidth(&node.Plans[i], width)
	}
}

// roundCost rounds to the two decimals the engine reports costs with.
func roundCost(cost float64) float64 {
	return math.Round(cost*100) / 100
}

// outputWidth reads the output column types of a query without producing any rows.
// Columns of a type the engine does not name are counted as fallback bytes.
func outputWidth(ctx context.Context, tx *sql.Tx, stmt Statement, fallback int64) (int64, error) {
	query := strings.TrimRight(strings.TrimSpace(stmt.Query), ";")
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT * FROM (%s) LIMIT 0", query), stmt.Args...)
	if err != nil {
		return 0, err
	}

	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return 0, err
	}

	typeNames := make([]string, 0, len(columnTypes))
	for _, columnType := range columnTypes {
		typeNames = append(typeNames, columnType.DatabaseTypeName())
	}

	return columnWidth(typeNames, fallback), rows.Err()
}

// columnWidth sums the estimated widths of a list of engine type names.
func columnWidth(typeNames []string, fallback int64) int64 {
	var width int64
	for _, name := range typeNames {
		oid, ok := types.OidFromTypeName(name)
		if !ok {
			width += fallback
			continue
		}

		width += oid.Width()
	}

	return width
}

// titleCase turns an engine operator name such as HASH_GROUP_BY into "Hash Group By".
func titleCase(name string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(name, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}

	return strings.Join(words, " ")
}
