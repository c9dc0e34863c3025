package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/canonical/microspi/spi/types"
)

func openDuckDB(cfg types.EngineConfig) (*DB, error) {
	sqlDB, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("Failed to open duckdb database: %w", err)
	}

	return NewDB(sqlDB, types.EngineDuckDB)
}

type duckDialect struct{}

var duckFunctionTypes = map[types.Oid]duckdb.Type{
	types.BoolOID:        duckdb.TYPE_BOOLEAN,
	types.Int2OID:        duckdb.TYPE_SMALLINT,
	types.Int4OID:        duckdb.TYPE_INTEGER,
	types.Int8OID:        duckdb.TYPE_BIGINT,
	types.Float4OID:      duckdb.TYPE_FLOAT,
	types.Float8OID:      duckdb.TYPE_DOUBLE,
	types.TextOID:        duckdb.TYPE_VARCHAR,
	types.VarcharOID:     duckdb.TYPE_VARCHAR,
	types.JSONOID:        duckdb.TYPE_VARCHAR,
	types.ByteaOID:       duckdb.TYPE_BLOB,
	types.DateOID:        duckdb.TYPE_DATE,
	types.TimestampOID:   duckdb.TYPE_TIMESTAMP,
	types.TimestampTzOID: duckdb.TYPE_TIMESTAMP_TZ,
}

// duckFunction is a host function in the shape of a DuckDB scalar UDF.
type duckFunction struct {
	config   duckdb.ScalarFuncConfig
	executor duckdb.ScalarFuncExecutor
}

func (f *duckFunction) Config() duckdb.ScalarFuncConfig {
	return f.config
}

func (f *duckFunction) Executor() duckdb.ScalarFuncExecutor {
	return f.executor
}

func duckTypeInfo(fn types.Function, oid types.Oid) (duckdb.TypeInfo, error) {
	t, ok := duckFunctionTypes[oid]
	if !ok {
		return nil, fmt.Errorf("Host function %q uses type %s which has no DuckDB equivalent", fn.Name, oid)
	}

	return duckdb.NewTypeInfo(t)
}

func newDuckFunction(fn types.Function) (*duckFunction, error) {
	err := fn.Validate()
	if err != nil {
		return nil, err
	}

	config := duckdb.ScalarFuncConfig{
		InputTypeInfos: make([]duckdb.TypeInfo, 0, len(fn.Args)),
		// Evaluated on every row, never folded into a constant.
		Volatile: true,
	}

	for _, oid := range fn.Args {
		info, err := duckTypeInfo(fn, oid)
		if err != nil {
			return nil, err
		}

		config.InputTypeInfos = append(config.InputTypeInfos, info)
	}

	config.ResultTypeInfo, err = duckTypeInfo(fn, fn.Result)
	if err != nil {
		return nil, err
	}

	executor := duckdb.ScalarFuncExecutor{
		RowExecutor: func(values []driver.Value) (any, error) {
			args := make([]any, len(values))
			for i, v := range values {
				args[i] = v
			}

			return fn.Invoke(args)
		},
	}

	return &duckFunction{config: config, executor: executor}, nil
}

func (duckDialect) checkFunction(fn types.Function) error {
	_, err := newDuckFunction(fn)
	return err
}

// DuckDB keeps scalar functions in the database catalog.
func (duckDialect) functionsPerConn() bool {
	return false
}

func (duckDialect) registerFunction(conn *sql.Conn, fn types.Function) error {
	udf, err := newDuckFunction(fn)
	if err != nil {
		return err
	}

	return duckdb.RegisterScalarUDF(conn, fn.Name, udf)
}

// duckNode is a node of DuckDB's JSON plan rendering.
type duckNode struct {
	Name      string         `json:"name"`
	Children  []duckNode     `json:"children"`
	ExtraInfo map[string]any `json:"extra_info"`
}

var duckNodeTypes = map[string]string{
	"PROJECTION":            "Result",
	"DUMMY_SCAN":            "Result",
	"EMPTY_RESULT":          "Result",
	"FILTER":                "Result",
	"SEQ_SCAN":              "Seq Scan",
	"TABLE_SCAN":            "Seq Scan",
	"INDEX_SCAN":            "Index Scan",
	"COLUMN_DATA_SCAN":      "Values Scan",
	"CHUNK_SCAN":            "Values Scan",
	"TABLE_FUNCTION":        "Function Scan",
	"CTE_SCAN":              "CTE Scan",
	"HASH_JOIN":             "Hash Join",
	"NESTED_LOOP_JOIN":      "Nested Loop",
	"BLOCKWISE_NL_JOIN":     "Nested Loop",
	"CROSS_PRODUCT":         "Nested Loop",
	"PIECEWISE_MERGE_JOIN":  "Merge Join",
	"HASH_GROUP_BY":         "HashAggregate",
	"PERFECT_HASH_GROUP_BY": "HashAggregate",
	"UNGROUPED_AGGREGATE":   "Aggregate",
	"ORDER_BY":              "Sort",
	"TOP_N":                 "Limit",
	"LIMIT":                 "Limit",
	"STREAMING_LIMIT":       "Limit",
	"WINDOW":                "WindowAgg",
	"STREAMING_WINDOW":      "WindowAgg",
	"UNION":                 "Append",
	"INSERT":                "ModifyTable",
	"UPDATE":                "ModifyTable",
	"DELETE":                "ModifyTable",
}

func (duckDialect) explain(ctx context.Context, tx *sql.Tx, stmt Statement) ([]types.PlanNode, error) {
	rows, err := tx.QueryContext(ctx, "EXPLAIN (FORMAT JSON) "+stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}

	var nodes []duckNode
	for rows.Next() {
		var key, value string
		err := rows.Scan(&key, &value)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("Failed to scan plan: %w", err)
		}

		parsed, err := parseDuckPlan(value)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}

		nodes = append(nodes, parsed...)
	}

	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("Engine returned an empty plan")
	}

	var width int64
	if isQuery(stmt.Query) {
		width, err = outputWidth(ctx, tx, stmt, types.UnknownOID.Width())
		if err != nil {
			return nil, err
		}
	}

	plans := make([]types.PlanNode, 0, len(nodes))
	for _, n := range nodes {
		plan := translateDuckNode(n)
		fillWidth(&plan, width)
		estimateCosts(&plan)
		plans = append(plans, plan)
	}

	return plans, nil
}

func parseDuckPlan(value string) ([]duckNode, error) {
	value = strings.TrimSpace(value)

	var nodes []duckNode
	err := json.Unmarshal([]byte(value), &nodes)
	if err == nil {
		return nodes, nil
	}

	var node duckNode
	err = json.Unmarshal([]byte(value), &node)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse engine plan: %w", err)
	}

	return []duckNode{node}, nil
}

func translateDuckNode(n duckNode) types.PlanNode {
	name := strings.ToUpper(strings.TrimSpace(n.Name))
	nodeType, ok := duckNodeTypes[name]
	if !ok {
		nodeType = titleCase(name)
	}

	node := types.PlanNode{
		NodeType: nodeType,
		Extra:    map[string]any{"Engine Node": name},
	}

	table, ok := n.ExtraInfo["Table"]
	if ok {
		node.Extra["Relation Name"] = fmt.Sprint(table)
	}

	for _, child := range n.Children {
		childName := strings.ToUpper(strings.TrimSpace(child.Name))

		// A projection over the dummy scan is a plain Result node.
		if nodeType == "Result" && childName == "DUMMY_SCAN" && len(child.Children) == 0 {
			continue
		}

		node.Plans = append(node.Plans, translateDuckNode(child))
	}

	rows, ok := duckCardinality(n.ExtraInfo)
	if !ok {
		switch {
		case len(node.Plans) > 0:
			for _, child := range node.Plans {
				rows = max(rows, child.PlanRows)
			}

		case nodeType == "Seq Scan":
			rows = defaultScanRows
		default:
			rows = 1
		}
	}

	node.PlanRows = rows

	return node
}

func duckCardinality(info map[string]any) (int64, bool) {
	raw, ok := info["Estimated Cardinality"]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimLeft(strings.TrimSpace(v), "~"), 10, 64)
		if err != nil {
			return 0, false
		}

		return n, true
	}

	return 0, false
}
