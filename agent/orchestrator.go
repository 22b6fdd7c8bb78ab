package agent

import (
	"context"
	"fmt"

	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/types"
)

// orchestratorConfig is the typed view of the orchestrator's context
// blob: a routing-rule table mapping classification labels to target
// node names, plus an optional default target.
type orchestratorConfig struct {
	// Field names the state field holding the upstream classification
	// value. Defaults to the node's first declared input field.
	Field string `json:"field"`
	// Routes maps classification labels to target node names.
	Routes map[string]string `json:"routes"`
	// Default is the target when no route matches.
	Default string `json:"default"`
}

// OrchestratorAgent performs run-time, data-driven selection of the next
// node. It inspects a classification value already present in state and
// returns the selected target, which the engine validates against the
// graph and uses in place of the node's static success path.
type OrchestratorAgent struct {
	node string
	cfg  orchestratorConfig
}

// NewOrchestratorAgent builds the orchestrator built-in.
func NewOrchestratorAgent(spec *definition.NodeSpec) (Agent, error) {
	a := &OrchestratorAgent{node: spec.Name}
	if err := decodeConfig(spec.Context, &a.cfg); err != nil {
		return nil, err
	}
	if len(a.cfg.Routes) == 0 && a.cfg.Default == "" {
		return nil, fmt.Errorf("orchestrator node %q has no routes and no default", spec.Name)
	}
	if a.cfg.Field == "" && len(spec.InputFields) > 0 && spec.InputFields[0] != definition.Wildcard {
		a.cfg.Field = spec.InputFields[0]
	}
	if a.cfg.Field == "" {
		return nil, fmt.Errorf("orchestrator node %q has no classification field", spec.Name)
	}
	return a, nil
}

// Run implements Agent. The selected target node name is also returned
// as the node's output, so a declared output field records the decision.
func (a *OrchestratorAgent) Run(_ context.Context, input map[string]any) (*Result, error) {
	value, ok := input[a.cfg.Field]
	if !ok {
		return nil, types.NewError(types.ErrMissingField,
			fmt.Sprintf("classification field %q not present in state", a.cfg.Field)).
			WithField(a.cfg.Field).WithNode(a.node)
	}

	label := fmt.Sprintf("%v", value)
	if target, ok := a.cfg.Routes[label]; ok {
		return &Result{Output: target, Target: target}, nil
	}
	if a.cfg.Default != "" {
		return &Result{Output: a.cfg.Default, Target: a.cfg.Default}, nil
	}

	return nil, types.NewError(types.ErrNoRouteMatched,
		fmt.Sprintf("no route for classification %q and no default configured", label)).
		WithNode(a.node)
}
