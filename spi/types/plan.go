package types

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// PlanNode is a single node of the engine's execution plan.
type PlanNode struct {
	NodeType      string     `json:"Node Type" yaml:"node_type"`
	ParallelAware bool       `json:"Parallel Aware" yaml:"parallel_aware"`
	PlanRows      int64      `json:"Plan Rows" yaml:"plan_rows"`
	PlanWidth     int64      `json:"Plan Width" yaml:"plan_width"`
	StartupCost   float64    `json:"Startup Cost" yaml:"startup_cost"`
	TotalCost     float64    `json:"Total Cost" yaml:"total_cost"`
	Plans         []PlanNode `json:"Plans,omitempty" yaml:"plans,omitempty"`

	// Extra holds any engine specific attributes (relation names, filters, ...).
	Extra map[string]any `json:"-" yaml:"extra,omitempty"`
}

var planNodeKeys = map[string]bool{
	"Node Type":      true,
	"Parallel Aware": true,
	"Plan Rows":      true,
	"Plan Width":     true,
	"Startup Cost":   true,
	"Total Cost":     true,
	"Plans":          true,
}

// UnmarshalJSON implements json.Unmarshaler, keeping unknown attributes in Extra.
func (n *PlanNode) UnmarshalJSON(data []byte) error {
	type plain PlanNode
	var node plain
	err := json.Unmarshal(data, &node)
	if err != nil {
		return err
	}

	var attrs map[string]json.RawMessage
	err = json.Unmarshal(data, &attrs)
	if err != nil {
		return err
	}

	_, ok := attrs["Node Type"]
	if !ok {
		return fmt.Errorf("Plan node is missing %q", "Node Type")
	}

	for key, raw := range attrs {
		if planNodeKeys[key] {
			continue
		}

		if node.Extra == nil {
			node.Extra = map[string]any{}
		}

		var v any
		err = json.Unmarshal(raw, &v)
		if err != nil {
			return fmt.Errorf("Failed to parse plan attribute %q: %w", key, err)
		}

		node.Extra[key] = v
	}

	*n = PlanNode(node)

	return nil
}

// MarshalJSON implements json.Marshaler, flattening Extra into the node object.
func (n PlanNode) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range n.Extra {
		out[k] = v
	}

	out["Node Type"] = n.NodeType
	out["Parallel Aware"] = n.ParallelAware
	out["Plan Rows"] = n.PlanRows
	out["Plan Width"] = n.PlanWidth
	out["Startup Cost"] = n.StartupCost
	out["Total Cost"] = n.TotalCost
	if len(n.Plans) > 0 {
		out["Plans"] = n.Plans
	}

	return json.Marshal(out)
}

// Equal compares two nodes and their children field by field.
func (n PlanNode) Equal(other PlanNode) bool {
	if n.NodeType != other.NodeType ||
		n.ParallelAware != other.ParallelAware ||
		n.PlanRows != other.PlanRows ||
		n.PlanWidth != other.PlanWidth ||
		n.StartupCost != other.StartupCost ||
		n.TotalCost != other.TotalCost {
		return false
	}

	if len(n.Plans) != len(other.Plans) {
		return false
	}

	for i := range n.Plans {
		if !n.Plans[i].Equal(other.Plans[i]) {
			return false
		}
	}

	if len(n.Extra) == 0 && len(other.Extra) == 0 {
		return true
	}

	return reflect.DeepEqual(n.Extra, other.Extra)
}

// Walk calls f for the node and each of its descendants, depth first.
func (n PlanNode) Walk(f func(node PlanNode, depth int)) {
	n.walk(f, 0)
}

func (n PlanNode) walk(f func(node PlanNode, depth int), depth int) {
	f(n, depth)
	for _, child := range n.Plans {
		child.walk(f, depth+1)
	}
}

// PlanResult is the decoded output of explaining a statement.
type PlanResult struct {
	Plans []PlanNode `json:"plans" yaml:"plans"`
}

type planEntry struct {
	Plan PlanNode `json:"Plan"`
}

// ParsePlan decodes the engine's plan output, an array of objects each holding a "Plan" object.
func ParsePlan(data []byte) (PlanResult, error) {
	var entries []planEntry
	err := json.Unmarshal(data, &entries)
	if err != nil {
		return PlanResult{}, fmt.Errorf("Failed to parse plan output: %w", err)
	}

	if len(entries) == 0 {
		return PlanResult{}, fmt.Errorf("Plan output is empty")
	}

	result := PlanResult{Plans: make([]PlanNode, 0, len(entries))}
	for _, entry := range entries {
		result.Plans = append(result.Plans, entry.Plan)
	}

	return result, nil
}

// Root returns the first top-level plan node.
func (p PlanResult) Root() PlanNode {
	if len(p.Plans) == 0 {
		return PlanNode{}
	}

	return p.Plans[0]
}

// Equal compares two plan results structurally.
func (p PlanResult) Equal(other PlanResult) bool {
	if len(p.Plans) != len(other.Plans) {
		return false
	}

	for i := range p.Plans {
		if !p.Plans[i].Equal(other.Plans[i]) {
			return false
		}
	}

	return true
}

// MarshalJSON encodes the result in the engine's plan output shape.
func (p PlanResult) MarshalJSON() ([]byte, error) {
	entries := make([]planEntry, 0, len(p.Plans))
	for _, node := range p.Plans {
		entries = append(entries, planEntry{Plan: node})
	}

	return json.Marshal(entries)
}

// UnmarshalJSON implements json.Unmarshaler for the engine's plan output shape.
func (p *PlanResult) UnmarshalJSON(data []byte) error {
	result, err := ParsePlan(data)
	if err != nil {
		return err
	}

	*p = result

	return nil
}
