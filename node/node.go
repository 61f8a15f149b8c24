// ABOUTME: NodeDefinition and the Transformer protocol for one stage of a node workflow DAG
// ABOUTME: (spec §4.7): a subset of agents, its dependencies, and optional input/output transformers.

package node

import "fmt"

// TransformContext is what an input/output Transformer receives: the
// composed content, the workflow's original prompt, every node's result so
// far, and the declared dependency list (spec §4.7 step 2).
type TransformContext struct {
	Node           string
	Content        string
	OriginalPrompt string
	AllResults     map[string]Result
	Dependencies   []string
}

// TransformResult is what a Transformer returns. A plain-string transform
// sets Content and leaves Skip/Halt false. SkipExecution mirrors the
// `{skip_execution: true, content: S}` shape from spec §4.7.
type TransformResult struct {
	SkipExecution bool
	Halt          bool
	Content       string
}

// TransformFunc is an in-process transformer.
type TransformFunc func(ctx TransformContext) (TransformResult, error)

// Transformer is either an in-process Func or a ShellCmd, never both. A
// ShellCmd follows the exit-code protocol in spec §4.7/§6.3: exit 0 → stdout
// replaces content; exit 1 → skip node execution; exit 2 → halt the workflow.
type Transformer struct {
	Func       TransformFunc
	ShellCmd   string
	TimeoutSec int
}

// Definition is one node in a workflow graph: a named stage built from a
// subset of a swarm's agents (or none, for a pure computation step), with
// optional input/output transformers and the names of nodes it depends on.
type Definition struct {
	Name      string
	Agents    []string // subset of agent names from the parent swarm's Definitions
	Lead      string   // defaults to Agents[0] if empty
	DependsOn []string

	InputTransformer  *Transformer
	OutputTransformer *Transformer
}

// Validate checks the invariant from spec §4.7: "agent-less nodes are
// allowed... but must have at least one transformer."
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("node definition: name is required")
	}
	if len(d.Agents) == 0 && d.InputTransformer == nil && d.OutputTransformer == nil {
		return fmt.Errorf("node %q: agent-less nodes must declare at least one transformer", d.Name)
	}
	if len(d.Agents) > 0 && d.Lead == "" {
		d.Lead = d.Agents[0]
	}
	return nil
}

// Result is one node's outcome: its content, whether it was skipped, which
// agents participated, and how long it took (spec §6.2's node_stop fields).
type Result struct {
	Node      string
	Content   string
	Skipped   bool
	AgentLess bool
	Agents    []string
	Duration  float64 // seconds
}
