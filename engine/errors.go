package engine

import (
	"fmt"

	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/types"
)

// wrapExecution normalizes agent errors: typed errors keep their code,
// anything else becomes AGENT_EXECUTION with the cause preserved.
func wrapExecution(node *definition.NodeSpec, err error) error {
	if code := types.GetErrorCode(err); code != "" {
		return err
	}
	return types.NewError(types.ErrAgentExecution,
		fmt.Sprintf("agent %q failed on node %q", node.AgentType, node.Name)).
		WithGraph(node.GraphName).
		WithNode(node.Name).
		WithCause(err)
}

// invalidTarget builds the fatal error for a dynamic route pointing at a
// node the graph does not contain.
func invalidTarget(graphName, nodeName, target string) error {
	return types.NewError(types.ErrInvalidDynamicTarget,
		fmt.Sprintf("dynamic target %q selected by node %q does not exist in graph %q",
			target, nodeName, graphName)).
		WithGraph(graphName).
		WithNode(nodeName)
}

// errorCode extracts the typed code from a node error, defaulting to
// AGENT_EXECUTION for plain errors.
func errorCode(err error) types.ErrorCode {
	if code := types.GetErrorCode(err); code != "" {
		return code
	}
	return types.ErrAgentExecution
}
