package definition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/flowgraph/types"
)

// ListDelimiter separates entries in multi-valued row fields.
const ListDelimiter = "|"

// Row is one raw tabular record before typing. Field names follow the
// source format; Context arrives either as a serialized JSON object
// (CSV) or as an inline mapping (YAML).
type Row struct {
	GraphName   string `yaml:"graph_name" json:"graph_name"`
	Node        string `yaml:"node" json:"node"`
	Edge        string `yaml:"edge,omitempty" json:"edge,omitempty"`
	Context     any    `yaml:"context,omitempty" json:"context,omitempty"`
	AgentType   string `yaml:"agent_type" json:"agent_type"`
	SuccessNext string `yaml:"success_next,omitempty" json:"success_next,omitempty"`
	FailureNext string `yaml:"failure_next,omitempty" json:"failure_next,omitempty"`
	InputFields string `yaml:"input_fields,omitempty" json:"input_fields,omitempty"`
	OutputField string `yaml:"output_field,omitempty" json:"output_field,omitempty"`
	Prompt      string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Parse turns raw rows into WorkflowDefinitions grouped by graph name,
// preserving both row order within a graph and first-appearance order of
// graphs. Required per row: graph name, node name, agent type; every
// other field has a defined default. Returns a MALFORMED_DEFINITION
// error naming the offending row (1-based) and field.
func Parse(rows []Row) ([]*WorkflowDefinition, error) {
	defs := make(map[string]*WorkflowDefinition)
	var order []string

	for i, row := range rows {
		rowNum := i + 1

		if strings.TrimSpace(row.GraphName) == "" {
			return nil, malformed(rowNum, "graph_name", "graph name is required")
		}
		if strings.TrimSpace(row.Node) == "" {
			return nil, malformed(rowNum, "node", "node name is required").WithGraph(row.GraphName)
		}
		if strings.TrimSpace(row.AgentType) == "" {
			return nil, malformed(rowNum, "agent_type", "agent type is required").
				WithGraph(row.GraphName).WithNode(row.Node)
		}

		ctx, err := decodeContext(row.Context)
		if err != nil {
			return nil, malformed(rowNum, "context", "context must be a JSON object").
				WithGraph(row.GraphName).WithNode(row.Node).WithCause(err)
		}

		spec := &NodeSpec{
			GraphName:   strings.TrimSpace(row.GraphName),
			Name:        strings.TrimSpace(row.Node),
			AgentType:   strings.TrimSpace(row.AgentType),
			SuccessNext: SplitList(row.SuccessNext),
			FailureNext: SplitList(row.FailureNext),
			InputFields: SplitList(row.InputFields),
			OutputField: strings.TrimSpace(row.OutputField),
			Context:     ctx,
			Prompt:      row.Prompt,
			Edge:        strings.TrimSpace(row.Edge),
			Description: strings.TrimSpace(row.Description),
		}

		def, ok := defs[spec.GraphName]
		if !ok {
			def = &WorkflowDefinition{GraphName: spec.GraphName}
			defs[spec.GraphName] = def
			order = append(order, spec.GraphName)
		}
		def.Nodes = append(def.Nodes, spec)
	}

	out := make([]*WorkflowDefinition, len(order))
	for i, name := range order {
		out[i] = defs[name]
	}
	return out, nil
}

// ParseOne parses rows that must all belong to a single graph.
func ParseOne(rows []Row) (*WorkflowDefinition, error) {
	defs, err := Parse(rows)
	if err != nil {
		return nil, err
	}
	if len(defs) != 1 {
		return nil, types.NewError(types.ErrMalformedDefinition,
			fmt.Sprintf("expected exactly one graph, got %d", len(defs)))
	}
	return defs[0], nil
}

// SplitList splits a '|'-delimited field, trimming segments and dropping
// empty ones.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ListDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeContext normalizes the context blob into a map. CSV sources carry
// a JSON string; YAML sources carry an inline mapping.
func decodeContext(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, err
		}
		return m, nil
	case map[string]any:
		return v, nil
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprintf("%v", k)] = val
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported context type %T", raw)
	}
}

func malformed(row int, field, msg string) *types.Error {
	return types.NewError(types.ErrMalformedDefinition,
		fmt.Sprintf("row %d: %s", row, msg)).WithRow(row).WithField(field)
}
