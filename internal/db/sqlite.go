package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/canonical/microspi/internal/sys"
	"github.com/canonical/microspi/spi/types"
)

func openSQLite(cfg types.EngineConfig, os *sys.OS) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
		if os != nil {
			dsn = os.DatabasePath(string(types.EngineSQLite))
		}
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("Failed to open sqlite database: %w", err)
	}

	return NewDB(sqlDB, types.EngineSQLite)
}

type sqliteDialect struct{}

func (sqliteDialect) checkFunction(fn types.Function) error {
	return fn.Validate()
}

func (sqliteDialect) functionsPerConn() bool {
	return true
}

func (sqliteDialect) registerFunction(conn *sql.Conn, fn types.Function) error {
	return conn.Raw(func(driverConn any) error {
		sqliteConn, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("Unexpected sqlite connection type %T", driverConn)
		}

		return sqliteConn.RegisterFunc(fn.Name, func(args ...any) (any, error) {
			result, err := fn.Invoke(args)
			if err != nil {
				return nil, err
			}

			t, ok := result.(time.Time)
			if ok {
				return t.Format(sqlite3.SQLiteTimestampFormats[0]), nil
			}

			return result, nil
		}, false)
	})
}

// sqliteStep is one row of EXPLAIN QUERY PLAN output.
type sqliteStep struct {
	id     int64
	parent int64
	detail string
}

func (sqliteDialect) explain(ctx context.Context, tx *sql.Tx, stmt Statement) ([]types.PlanNode, error) {
	rows, err := tx.QueryContext(ctx, "EXPLAIN QUERY PLAN "+stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}

	steps := []sqliteStep{}
	for rows.Next() {
		var step sqliteStep
		var notused int64
		err := rows.Scan(&step.id, &step.parent, &notused, &step.detail)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("Failed to scan plan: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	root := sqliteTree(steps)

	var width int64
	if isQuery(stmt.Query) {
		// Untyped expressions are stored in at most 8 bytes.
		width, err = outputWidth(ctx, tx, stmt, types.Int8OID.Width())
		if err != nil {
			return nil, err
		}
	}

	fillWidth(&root, width)
	estimateCosts(&root)

	return []types.PlanNode{root}, nil
}

// sqliteTree assembles plan steps into a tree. Steps hanging off the statement itself become
// children of a Result root unless there is exactly one of them.
func sqliteTree(steps []sqliteStep) types.PlanNode {
	children := map[int64][]sqliteStep{}
	for _, step := range steps {
		children[step.parent] = append(children[step.parent], step)
	}

	var build func(step sqliteStep) types.PlanNode
	build = func(step sqliteStep) types.PlanNode {
		node := sqliteNode(step.detail)
		for _, child := range children[step.id] {
			node.Plans = append(node.Plans, build(child))
		}

		if len(node.Plans) > 0 && node.PlanRows == 0 {
			for _, child := range node.Plans {
				node.PlanRows = max(node.PlanRows, child.PlanRows)
			}
		}

		if node.PlanRows == 0 {
			node.PlanRows = 1
		}

		return node
	}

	top := children[0]
	if len(top) == 1 {
		return build(top[0])
	}

	root := types.PlanNode{NodeType: "Result", PlanRows: 1}
	for _, step := range top {
		root.Plans = append(root.Plans, build(step))
		root.PlanRows = max(root.PlanRows, root.Plans[len(root.Plans)-1].PlanRows)
	}

	return root
}

func sqliteNode(detail string) types.PlanNode {
	node := types.PlanNode{Extra: map[string]any{"Detail": detail}}
	upper := strings.ToUpper(detail)
	fields := strings.Fields(detail)

	switch {
	case len(fields) == 0, strings.HasPrefix(upper, "SCAN CONSTANT ROW"):
		node.NodeType = "Result"
		node.PlanRows = 1
	case strings.HasPrefix(upper, "SCAN"):
		node.NodeType = "Seq Scan"
		if strings.Contains(upper, "COVERING INDEX") {
			node.NodeType = "Index Only Scan"
		} else if strings.Contains(upper, "USING INDEX") {
			node.NodeType = "Index Scan"
		}

		node.PlanRows = defaultScanRows
	case strings.HasPrefix(upper, "SEARCH"):
		node.NodeType = "Index Scan"
		if strings.Contains(upper, "COVERING INDEX") {
			node.NodeType = "Index Only Scan"
		}
	case strings.HasPrefix(upper, "USE TEMP B-TREE"):
		node.NodeType = "Sort"
	case strings.HasPrefix(upper, "COMPOUND"), strings.HasPrefix(upper, "UNION"), strings.HasPrefix(upper, "MERGE"):
		node.NodeType = "Append"
	case strings.HasPrefix(upper, "MATERIALIZE"):
		node.NodeType = "Materialize"
	case strings.HasPrefix(upper, "CO-ROUTINE"):
		node.NodeType = "Subquery Scan"
	case strings.Contains(upper, "SUBQUERY"):
		node.NodeType = "SubPlan"
	default:
		node.NodeType = titleCase(fields[0])
	}

	// SCAN t / SEARCH t USING ...
	if (node.NodeType == "Seq Scan" || strings.HasSuffix(node.NodeType, "Index Scan") || node.NodeType == "Index Only Scan") && len(fields) > 1 {
		relation := fields[1]
		if strings.EqualFold(relation, "TABLE") && len(fields) > 2 {
			relation = fields[2]
		}

		node.Extra["Relation Name"] = relation
	}

	return node
}
