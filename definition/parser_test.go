package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/types"
)

func TestParseGroupsRowsByGraph(t *testing.T) {
	rows := []Row{
		{GraphName: "support", Node: "classify", AgentType: "echo", SuccessNext: "route"},
		{GraphName: "billing", Node: "invoice", AgentType: "echo"},
		{GraphName: "support", Node: "route", AgentType: "orchestrator", InputFields: "category"},
	}

	defs, err := Parse(rows)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "support", defs[0].GraphName)
	assert.Equal(t, []string{"classify", "route"}, defs[0].NodeNames())
	assert.Equal(t, "billing", defs[1].GraphName)
	assert.Equal(t, []string{"invoice"}, defs[1].NodeNames())
}

func TestParseRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		rows  []Row
		field string
		row   int
	}{
		{
			name:  "missing graph name",
			rows:  []Row{{Node: "a", AgentType: "echo"}},
			field: "graph_name",
			row:   1,
		},
		{
			name: "missing node name",
			rows: []Row{
				{GraphName: "g", Node: "a", AgentType: "echo"},
				{GraphName: "g", AgentType: "echo"},
			},
			field: "node",
			row:   2,
		},
		{
			name:  "missing agent type",
			rows:  []Row{{GraphName: "g", Node: "a"}},
			field: "agent_type",
			row:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.rows)
			require.Error(t, err)

			var typed *types.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, types.ErrMalformedDefinition, typed.Code)
			assert.Equal(t, tt.field, typed.Field)
			assert.Equal(t, tt.row, typed.Row)
		})
	}
}

func TestParseDecodesContext(t *testing.T) {
	t.Run("json string", func(t *testing.T) {
		defs, err := Parse([]Row{{
			GraphName: "g", Node: "a", AgentType: "branch",
			Context: `{"field": "amount", "not_empty": true}`,
		}})
		require.NoError(t, err)

		ctx := defs[0].Nodes[0].Context
		assert.Equal(t, "amount", ctx["field"])
		assert.Equal(t, true, ctx["not_empty"])
	})

	t.Run("inline map", func(t *testing.T) {
		defs, err := Parse([]Row{{
			GraphName: "g", Node: "a", AgentType: "branch",
			Context: map[string]any{"field": "amount"},
		}})
		require.NoError(t, err)
		assert.Equal(t, "amount", defs[0].Nodes[0].Context["field"])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Parse([]Row{{
			GraphName: "g", Node: "a", AgentType: "branch",
			Context: "{not json",
		}})
		require.Error(t, err)
		assert.Equal(t, types.ErrMalformedDefinition, types.GetErrorCode(err))
	})
}

func TestParseOne(t *testing.T) {
	def, err := ParseOne([]Row{
		{GraphName: "g", Node: "a", AgentType: "echo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "g", def.GraphName)

	_, err = ParseOne([]Row{
		{GraphName: "g1", Node: "a", AgentType: "echo"},
		{GraphName: "g2", Node: "b", AgentType: "echo"},
	})
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a|b|c", []string{"a", "b", "c"}},
		{" a | b ", []string{"a", "b"}},
		{"a||b", []string{"a", "b"}},
		{"|", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitList(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNodeSpecHelpers(t *testing.T) {
	defs, err := Parse([]Row{
		{GraphName: "g", Node: "all", AgentType: "echo", InputFields: "*"},
		{GraphName: "g", Node: "ext", AgentType: "custom:crm_lookup", InputFields: "ticket"},
	})
	require.NoError(t, err)

	all := defs[0].Node("all")
	require.NotNil(t, all)
	assert.True(t, all.WantsFullState())
	assert.False(t, all.IsCustom())

	ext := defs[0].Node("ext")
	require.NotNil(t, ext)
	assert.False(t, ext.WantsFullState())
	assert.True(t, ext.IsCustom())

	assert.Nil(t, defs[0].Node("nope"))
}
