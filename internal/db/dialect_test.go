package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/microspi/spi/types"
)

func TestEstimateCosts(t *testing.T) {
	node := types.PlanNode{
		NodeType: "Sort",
		PlanRows: 1000,
		Plans: []types.PlanNode{
			{NodeType: "Seq Scan", PlanRows: 1000},
		},
	}

	estimateCosts(&node)

	assert.Equal(t, 0.0, node.Plans[0].StartupCost)
	assert.Equal(t, 10.0, node.Plans[0].TotalCost)
	assert.Equal(t, 10.0, node.StartupCost)
	assert.Equal(t, 20.0, node.TotalCost)

	// A single tuple costs exactly one tuple's worth.
	result := types.PlanNode{NodeType: "Result", PlanRows: 1}
	estimateCosts(&result)
	assert.Equal(t, 0.0, result.StartupCost)
	assert.Equal(t, cpuTupleCost, result.TotalCost)
}

func TestColumnWidth(t *testing.T) {
	assert.Equal(t, int64(4), columnWidth([]string{"INTEGER"}, 8))
	assert.Equal(t, int64(4+32+8), columnWidth([]string{"INT", "VARCHAR(10)", ""}, 8))
	assert.Equal(t, int64(0), columnWidth(nil, 8))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Hash Group By", titleCase("HASH_GROUP_BY"))
	assert.Equal(t, "Scan", titleCase("scan"))
	assert.Equal(t, "", titleCase(""))
}

func TestTranslateDuckNode(t *testing.T) {
	cases := []struct {
		name     string
		plan     string
		nodeType string
		rows     int64
		children int
	}{
		{
			name:     "Projection over dummy scan",
			plan:     `[{"name": "PROJECTION", "children": [{"name": "DUMMY_SCAN", "children": [], "extra_info": {}}], "extra_info": {"Projections": "1", "Estimated Cardinality": "1"}}]`,
			nodeType: "Result",
			rows:     1,
			children: 0,
		},
		{
			name:     "Aggregate over table scan",
			plan:     `{"name": "UNGROUPED_AGGREGATE", "children": [{"name": "SEQ_SCAN ", "children": [], "extra_info": {"Table": "users", "Estimated Cardinality": "~42"}}], "extra_info": {}}`,
			nodeType: "Aggregate",
			rows:     42,
			children: 1,
		},
		{
			name:     "Unmapped operator",
			plan:     `[{"name": "PIVOT_UNNEST", "children": [], "extra_info": {}}]`,
			nodeType: "Pivot Unnest",
			rows:     1,
			children: 0,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			nodes, err := parseDuckPlan(c.plan)
			require.NoError(t, err)
			require.Len(t, nodes, 1)

			node := translateDuckNode(nodes[0])
			assert.Equal(t, c.nodeType, node.NodeType)
			assert.Equal(t, c.rows, node.PlanRows)
			assert.Len(t, node.Plans, c.children)
		})
	}
}

func TestTranslateDuckRelation(t *testing.T) {
	nodes, err := parseDuckPlan(`{"name": "SEQ_SCAN", "children": [], "extra_info": {"Table": "users"}}`)
	require.NoError(t, err)

	node := translateDuckNode(nodes[0])
	assert.Equal(t, "Seq Scan", node.NodeType)
	assert.Equal(t, int64(defaultScanRows), node.PlanRows)
	assert.Equal(t, "users", node.Extra["Relation Name"])
	assert.Equal(t, "SEQ_SCAN", node.Extra["Engine Node"])
}

func TestParseDuckPlanError(t *testing.T) {
	_, err := parseDuckPlan("not a plan")
	assert.Error(t, err)
}

func TestSQLiteTree(t *testing.T) {
	steps := []sqliteStep{
		{id: 2, parent: 0, detail: "SCAN users"},
		{id: 5, parent: 0, detail: "USE TEMP B-TREE FOR ORDER BY"},
	}

	root := sqliteTree(steps)
	assert.Equal(t, "Result", root.NodeType)
	require.Len(t, root.Plans, 2)
	assert.Equal(t, "Seq Scan", root.Plans[0].NodeType)
	assert.Equal(t, "users", root.Plans[0].Extra["Relation Name"])
	assert.Equal(t, "Sort", root.Plans[1].NodeType)
	assert.Equal(t, int64(defaultScanRows), root.PlanRows)

	single := sqliteTree([]sqliteStep{{id: 3, parent: 0, detail: "SEARCH users USING INTEGER PRIMARY KEY (rowid=?)"}})
	assert.Equal(t, "Index Scan", single.NodeType)
	assert.Equal(t, int64(1), single.PlanRows)

	empty := sqliteTree(nil)
	assert.Equal(t, "Result", empty.NodeType)
	assert.Equal(t, int64(1), empty.PlanRows)
}

func TestSQLiteNode(t *testing.T) {
	cases := []struct {
		detail   string
		nodeType string
	}{
		{"SCAN TABLE users", "Seq Scan"},
		{"SCAN users USING COVERING INDEX idx", "Index Only Scan"},
		{"SCAN CONSTANT ROW", "Result"},
		{"", "Result"},
		{"COMPOUND QUERY", "Append"},
		{"MATERIALIZE sub", "Materialize"},
		{"CORRELATED SCALAR SUBQUERY 1", "SubPlan"},
	}

	for _, c := range cases {
		t.Run(c.detail, func(t *testing.T) {
			assert.Equal(t, c.nodeType, sqliteNode(c.detail).NodeType)
		})
	}

	assert.Equal(t, "users", sqliteNode("SCAN TABLE users").Extra["Relation Name"])
}

func TestPlanOutputShape(t *testing.T) {
	node := types.PlanNode{NodeType: "Result", PlanRows: 1, PlanWidth: 4}
	estimateCosts(&node)

	data, err := json.Marshal(types.PlanResult{Plans: []types.PlanNode{node}})
	require.NoError(t, err)

	plan, err := types.ParsePlan(data)
	require.NoError(t, err)
	assert.Equal(t, 0.01, plan.Root().TotalCost)
}
