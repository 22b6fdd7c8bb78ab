package definition

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/flowgraph/types"
)

// ParseCSV reads a header-first CSV document of workflow rows. Column
// order is free; headers are matched case-insensitively with underscores
// ignored, so "Success_Next", "success_next" and "SuccessNext" are
// equivalent. Unknown columns are ignored.
func ParseCSV(r io.Reader) ([]*WorkflowDefinition, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, types.NewError(types.ErrMalformedDefinition, "empty document")
	}
	if err != nil {
		return nil, types.NewError(types.ErrMalformedDefinition, "read header").WithCause(err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	for _, required := range []string{"graphname", "node", "agenttype"} {
		if _, ok := cols[required]; !ok {
			return nil, types.NewError(types.ErrMalformedDefinition,
				fmt.Sprintf("missing required column %q", required)).WithField(required)
		}
	}

	cell := func(record []string, key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewError(types.ErrMalformedDefinition,
				fmt.Sprintf("read row %d", len(rows)+1)).WithRow(len(rows) + 1).WithCause(err)
		}
		rows = append(rows, Row{
			GraphName:   cell(record, "graphname"),
			Node:        cell(record, "node"),
			Edge:        cell(record, "edge"),
			Context:     cell(record, "context"),
			AgentType:   cell(record, "agenttype"),
			SuccessNext: cell(record, "successnext"),
			FailureNext: cell(record, "failurenext"),
			InputFields: cell(record, "inputfields"),
			OutputField: cell(record, "outputfield"),
			Prompt:      cell(record, "prompt"),
			Description: cell(record, "description"),
		})
	}

	return Parse(rows)
}

// yamlDocument mirrors the row schema for YAML workflow files, so
// definitions can live next to configuration:
//
//	rows:
//	  - graph_name: support
//	    node: classify
//	    agent_type: echo
//	    success_next: route
type yamlDocument struct {
	Rows []Row `yaml:"rows"`
}

// ParseYAML reads workflow rows from a YAML document. Both a top-level
// `rows:` key and a bare list of rows are accepted.
func ParseYAML(data []byte) ([]*WorkflowDefinition, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var bare []Row
		if err2 := yaml.Unmarshal(data, &bare); err2 != nil {
			return nil, types.NewError(types.ErrMalformedDefinition, "parse YAML").WithCause(err)
		}
		doc.Rows = bare
	}
	if len(doc.Rows) == 0 {
		return nil, types.NewError(types.ErrMalformedDefinition, "empty document")
	}
	return Parse(doc.Rows)
}

// LoadFile loads workflow definitions from a .csv, .yaml or .yml file.
func LoadFile(path string) ([]*WorkflowDefinition, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open workflow file: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read workflow file: %w", err)
		}
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported workflow file extension %q", ext)
	}
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), "_", "")
}
