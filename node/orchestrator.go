// ABOUTME: Orchestrator executes a Graph's nodes in topological order, building a fresh
// ABOUTME: sub-Swarm per node from its agent subset, per spec §4.7 "Execution" steps 1-3.

package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389-research/swarmloom/agent"
	"github.com/2389-research/swarmloom/internal/diag"
	"github.com/2389-research/swarmloom/swarm"
	"github.com/2389-research/swarmloom/telemetry"
)

// Orchestrator runs a Graph against the full set of agent Definitions a
// workflow config declares; each node's sub-Swarm is built from the subset
// named in its Definition.
type Orchestrator struct {
	Defs   map[string]*agent.Definition
	Client agent.LLMDriver

	// Subscriber receives node_start/node_stop events plus everything each
	// node's sub-Swarm emits internally, if non-nil.
	Subscriber swarm.Subscriber

	logOnce sync.Once
	logger  hclog.Logger
}

func (o *Orchestrator) log() hclog.Logger {
	o.logOnce.Do(func() { o.logger = diag.New("node") })
	return o.logger
}

// RunResult is the final workflow output: the terminal node's Result plus
// every intermediate node's Result, keyed by node name (spec §4.7 step 3).
type RunResult struct {
	Final  Result
	ByNode map[string]Result
}

// Run executes every node in g's topological order, composing each node's
// input from the previous node's output (or the original prompt for the
// first node), running transformers, and executing non-skipped nodes
// against a fresh sub-Swarm (spec §4.7 "Execution").
func (o *Orchestrator) Run(ctx context.Context, g *Graph, prompt string) (RunResult, error) {
	results := make(map[string]Result, len(g.nodes))
	var lastContent string
	var terminal Result

	for _, name := range g.Order() {
		def := g.Node(name)

		nodeCtx, span := telemetry.Tracer().Start(ctx, "node.execute", trace.WithAttributes(attribute.String("node.name", name)))
		ctx = nodeCtx
		start := time.Now()

		content := lastContent
		if content == "" {
			content = prompt
		}

		tctx := TransformContext{
			Node:           name,
			Content:        content,
			OriginalPrompt: prompt,
			AllResults:     results,
			Dependencies:   def.DependsOn,
		}

		o.log().Debug("node starting", "node", name, "agent_less", len(def.Agents) == 0)
		o.emit("node_start", map[string]any{
			"node":         name,
			"agent_less":   len(def.Agents) == 0,
			"agents":       def.Agents,
			"dependencies": def.DependsOn,
		})

		skip, halted, err := o.runInputTransformer(ctx, def, &tctx)
		if err != nil {
			span.End()
			return RunResult{}, fmt.Errorf("node %q input transform: %w", name, err)
		}
		if halted {
			res := Result{Node: name, Content: tctx.Content, Skipped: true, AgentLess: len(def.Agents) == 0, Agents: def.Agents, Duration: time.Since(start).Seconds()}
			results[name] = res
			o.log().Warn("node halted by input transformer", "node", name)
			o.emit("node_stop", nodeStopFields(def, res))
			span.End()
			return RunResult{Final: res, ByNode: results}, fmt.Errorf("workflow halted at node %q", name)
		}

		var res Result
		if skip || len(def.Agents) == 0 {
			res = Result{Node: name, Content: tctx.Content, Skipped: skip, AgentLess: len(def.Agents) == 0, Agents: def.Agents}
		} else {
			output, err := o.runSubSwarm(ctx, def, tctx.Content)
			if err != nil {
				span.End()
				return RunResult{}, fmt.Errorf("node %q: %w", name, err)
			}
			res = Result{Node: name, Content: output, Agents: def.Agents}
		}

		if def.OutputTransformer != nil {
			outCtx := tctx
			outCtx.Content = res.Content
			transformed, err := def.OutputTransformer.Run(ctx, outCtx)
			if err != nil {
				span.End()
				return RunResult{}, fmt.Errorf("node %q output transform: %w", name, err)
			}
			if transformed.Halt {
				res.Content = transformed.Content
				res.Duration = time.Since(start).Seconds()
				results[name] = res
				o.emit("node_stop", nodeStopFields(def, res))
				span.End()
				return RunResult{Final: res, ByNode: results}, fmt.Errorf("workflow halted at node %q after output transform", name)
			}
			if transformed.SkipExecution {
				res.Skipped = true
			}
			res.Content = transformed.Content
		}

		res.Duration = time.Since(start).Seconds()
		results[name] = res
		lastContent = res.Content
		terminal = res

		o.emit("node_stop", nodeStopFields(def, res))
		span.End()
	}

	return RunResult{Final: terminal, ByNode: results}, nil
}

// runInputTransformer runs def's input transformer if present, mutating
// tctx.Content in place and reporting skip/halt per spec §4.7 step 2.
func (o *Orchestrator) runInputTransformer(ctx context.Context, def *Definition, tctx *TransformContext) (skip, halt bool, err error) {
	if def.InputTransformer == nil {
		return false, false, nil
	}
	result, err := def.InputTransformer.Run(ctx, *tctx)
	if err != nil {
		return false, false, err
	}
	if result.Halt {
		tctx.Content = result.Content
		return false, true, nil
	}
	tctx.Content = result.Content
	return result.SkipExecution, false, nil
}

// runSubSwarm builds a fresh sub-Swarm scoped to def.Agents, preserving
// delegation edges restricted to that subset, and runs it with content as
// the prompt (spec §4.7 step 2: "execute the sub-swarm with the content as prompt").
func (o *Orchestrator) runSubSwarm(ctx context.Context, def *Definition, content string) (string, error) {
	subset := make(map[string]*agent.Definition, len(def.Agents))
	for _, name := range def.Agents {
		full, ok := o.Defs[name]
		if !ok {
			return "", fmt.Errorf("node %q: agent %q is not defined in this swarm", def.Name, name)
		}
		subset[name] = restrictDelegation(full, def.Agents)
	}

	lead := def.Lead
	if lead == "" {
		lead = def.Agents[0]
	}

	sub := swarm.New(def.Name+":"+lead, lead, subset, o.Client)
	if err := sub.Validate(); err != nil {
		return "", err
	}

	result, err := sub.Execute(ctx, content, o.Subscriber)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("sub-swarm for node %q failed: %s", def.Name, result.Error)
	}
	return result.Content, nil
}

// restrictDelegation copies def, trimming DelegatesTo to targets present in
// allowed — preserving delegation topology restricted to the node's subset
// (spec §4.7 step 2), without mutating the orchestrator's shared Definitions.
func restrictDelegation(def *agent.Definition, allowed []string) *agent.Definition {
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	cp := *def
	cp.DelegatesTo = nil
	for _, target := range def.DelegatesTo {
		if allowedSet[target] {
			cp.DelegatesTo = append(cp.DelegatesTo, target)
		}
	}
	return &cp
}

func nodeStopFields(def *Definition, res Result) map[string]any {
	return map[string]any{
		"node":       def.Name,
		"agent_less": len(def.Agents) == 0,
		"skipped":    res.Skipped,
		"agents":     def.Agents,
		"duration":   res.Duration,
	}
}

func (o *Orchestrator) emit(eventType string, fields map[string]any) {
	if o.Subscriber == nil {
		return
	}
	o.Subscriber(swarm.LogEvent{Type: eventType, Timestamp: time.Now().UTC(), Fields: fields})
}
