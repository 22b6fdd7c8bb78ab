package definition

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/types"
)

const sampleCSV = `Graph_Name,Node,Agent_Type,Success_Next,Failure_Next,Input_Fields,Output_Field,Prompt
support,classify,echo,route,,ticket,category,Classify: {ticket}
support,route,orchestrator,handle_billing|handle_tech,,category,,
support,handle_billing,echo,,,*,reply,
support,handle_tech,echo,,,*,reply,
`

func TestParseCSV(t *testing.T) {
	defs, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "support", def.GraphName)
	assert.Equal(t, []string{"classify", "route", "handle_billing", "handle_tech"}, def.NodeNames())

	classify := def.Node("classify")
	assert.Equal(t, []string{"route"}, classify.SuccessNext)
	assert.Equal(t, []string{"ticket"}, classify.InputFields)
	assert.Equal(t, "category", classify.OutputField)
	assert.Equal(t, "Classify: {ticket}", classify.Prompt)

	route := def.Node("route")
	assert.Equal(t, []string{"handle_billing", "handle_tech"}, route.SuccessNext)
}

func TestParseCSVHeaderVariants(t *testing.T) {
	doc := "graphname,NODE,AgentType\ng,a,echo\n"
	defs, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, defs[0].NodeNames())
}

func TestParseCSVMissingColumn(t *testing.T) {
	doc := "graph_name,node\ng,a\n"
	_, err := ParseCSV(strings.NewReader(doc))
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedDefinition, types.GetErrorCode(err))
}

func TestParseCSVEmptyDocument(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedDefinition, types.GetErrorCode(err))
}

func TestParseYAML(t *testing.T) {
	doc := `
rows:
  - graph_name: support
    node: classify
    agent_type: echo
    success_next: respond
    context:
      model: small
  - graph_name: support
    node: respond
    agent_type: echo
`
	defs, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, []string{"classify", "respond"}, defs[0].NodeNames())
	assert.Equal(t, "small", defs[0].Node("classify").Context["model"])
}

func TestParseYAMLBareList(t *testing.T) {
	doc := `
- graph_name: g
  node: a
  agent_type: echo
`
	defs, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, defs[0].NodeNames())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "flow.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	defs, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "support", defs[0].GraphName)

	_, err = LoadFile(filepath.Join(dir, "flow.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported workflow file extension")
}
