package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/types"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{TypeBranch, TypeEcho, TypeInput, TypeOrchestrator}, r.Types())
	for _, name := range []string{TypeEcho, TypeInput, TypeBranch, TypeOrchestrator} {
		assert.True(t, r.IsBuiltin(name), name)
		factory, err := r.Resolve(name)
		require.NoError(t, err, name)
		assert.NotNil(t, factory, name)
	}
}

func TestRegistryRegisterCustom(t *testing.T) {
	r := NewRegistry()

	factory := func(spec *definition.NodeSpec) (Agent, error) {
		return Func(func(ctx context.Context, input map[string]any) (*Result, error) {
			return &Result{Output: "ok"}, nil
		}), nil
	}
	require.NoError(t, r.Register("custom:crm_lookup", factory))

	resolved, err := r.Resolve("custom:crm_lookup")
	require.NoError(t, err)
	a, err := resolved(&definition.NodeSpec{Name: "n"})
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.False(t, r.IsBuiltin("custom:crm_lookup"))
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	factory := func(spec *definition.NodeSpec) (Agent, error) { return nil, nil }

	t.Run("builtin not overridable", func(t *testing.T) {
		err := r.Register(TypeEcho, factory)
		require.Error(t, err)
		assert.Equal(t, types.ErrDuplicateAgentType, types.GetErrorCode(err))
	})

	t.Run("custom registered twice", func(t *testing.T) {
		require.NoError(t, r.Register("custom:x", factory))
		err := r.Register("custom:x", factory)
		require.Error(t, err)
		assert.Equal(t, types.ErrDuplicateAgentType, types.GetErrorCode(err))
	})

	t.Run("empty name", func(t *testing.T) {
		require.Error(t, r.Register("", factory))
	})

	t.Run("nil factory", func(t *testing.T) {
		require.Error(t, r.Register("custom:y", nil))
	})
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("custom:ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgentType, types.GetErrorCode(err))
}
