// ABOUTME: Loader turns a YAML v2 document into the same agent.Definition/
// ABOUTME: hook.Registration/node.Definition objects the swarm.Builder DSL produces (spec §4.8).

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/swarmloom/agent"
	"github.com/2389-research/swarmloom/hook"
	"github.com/2389-research/swarmloom/internal/diag"
	"github.com/2389-research/swarmloom/node"
	"github.com/2389-research/swarmloom/swarm"
)

// Document is a fully loaded, validated configuration: ready-to-use
// agent Definitions, swarm-level hook Registrations, and an optional
// workflow Graph.
type Document struct {
	SwarmName         string
	Lead              string
	GlobalConcurrency int
	LocalConcurrency  int
	Agents            map[string]*agent.Definition
	Hooks             []*hook.Registration

	HasWorkflow bool
	StartNode   string
	Nodes       []*node.Definition
}

// Loader reads and validates YAML v2 swarmloom configuration files.
type Loader struct {
	logger hclog.Logger
}

// NewLoader returns a ready-to-use Loader. It carries no state besides its
// logger: every Load call is independent, matching the teacher's stateless
// yaml export helper.
func NewLoader() *Loader {
	return &Loader{logger: diag.New("config")}
}

// LoadFile reads path and loads it as a YAML v2 document.
func (l *Loader) LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	l.logger.Debug("loading config file", "path", path)
	return l.LoadBytes(raw)
}

// LoadBytes parses, env-interpolates, normalizes, and validates a YAML v2
// document, in the order spec §4.8 specifies.
func (l *Loader) LoadBytes(raw []byte) (*Document, error) {
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}

	expanded, err := expandEnvVarsInData(generic)
	if err != nil {
		return nil, err
	}

	expandedBytes, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: re-encoding expanded document: %w", err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(expandedBytes, &doc); err != nil {
		return nil, fmt.Errorf("config: decoding document: %w", err)
	}

	result, err := normalizeDocument(&doc)
	if err != nil {
		l.logger.Warn("config validation failed", "error", err)
		return nil, err
	}
	l.logger.Debug("config loaded", "swarm", result.SwarmName, "agents", len(result.Agents), "workflow", result.HasWorkflow)
	return result, nil
}

func normalizeDocument(doc *rawDocument) (*Document, error) {
	if doc.Version != 2 {
		return nil, fmt.Errorf("config: unsupported version %d, only version 2 is supported", doc.Version)
	}
	if doc.Swarm.Name == "" {
		return nil, fmt.Errorf("config: swarm.name is required")
	}
	if doc.Swarm.Lead == "" {
		return nil, fmt.Errorf("config: swarm.lead is required")
	}
	if len(doc.Swarm.Agents) == 0 {
		return nil, fmt.Errorf("config: swarm.agents must declare at least one agent")
	}

	known := make(map[string]bool, len(doc.Swarm.Agents))
	for name := range doc.Swarm.Agents {
		known[name] = true
	}
	if !known[doc.Swarm.Lead] {
		return nil, fmt.Errorf("config: swarm.lead %q is not a declared agent", doc.Swarm.Lead)
	}

	defs := make(map[string]*agent.Definition, len(doc.Swarm.Agents))
	for name, raw := range doc.Swarm.Agents {
		merged := mergeAgent(doc.Swarm.AllAgents, raw)
		def, err := buildDefinition(name, merged)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	for _, def := range defs {
		if err := def.Validate(known); err != nil {
			return nil, err
		}
	}
	if err := swarm.DetectDelegationCycle(defs); err != nil {
		return nil, err
	}

	hooks, err := buildHooks(doc.Swarm.Hooks)
	if err != nil {
		return nil, err
	}

	result := &Document{
		SwarmName:         doc.Swarm.Name,
		Lead:              doc.Swarm.Lead,
		GlobalConcurrency: doc.Swarm.GlobalConcurrency,
		LocalConcurrency:  doc.Swarm.LocalConcurrency,
		Agents:            defs,
		Hooks:             hooks,
	}

	if doc.Workflow != nil {
		nodes, err := buildNodes(doc.Workflow.Nodes)
		if err != nil {
			return nil, err
		}
		if _, err := node.NewGraph(doc.Workflow.StartNode, nodes); err != nil {
			return nil, err
		}
		result.HasWorkflow = true
		result.StartNode = doc.Workflow.StartNode
		result.Nodes = nodes
	}

	return result, nil
}

func buildDefinition(name string, raw rawAgent) (*agent.Definition, error) {
	if raw.Description == "" {
		return nil, fmt.Errorf("agent %q: description is required", name)
	}
	if raw.SystemPrompt == "" {
		return nil, fmt.Errorf("agent %q: system_prompt is required", name)
	}
	if raw.Directory == "" {
		return nil, fmt.Errorf("agent %q: directory is required", name)
	}

	includeDefaults := true
	if raw.IncludeDefaultTools != nil {
		includeDefaults = *raw.IncludeDefaultTools
	}
	bypass := false
	if raw.BypassPermissions != nil {
		bypass = *raw.BypassPermissions
	}
	contextWindow := raw.ContextWindow
	if contextWindow == 0 {
		contextWindow = agent.DefaultContextWindow
	}
	timeout := agent.DefaultTimeout
	if raw.TimeoutSeconds != nil {
		timeout = time.Duration(*raw.TimeoutSeconds) * time.Second
	}

	tools := make([]agent.ToolSpec, 0, len(raw.Tools))
	for _, t := range raw.Tools {
		spec := agent.ToolSpec{Name: t.Name}
		if t.Permissions != nil {
			spec.Permissions = &agent.ToolPermissionRule{
				AllowedPaths: t.Permissions.AllowedPaths,
				DeniedPaths:  t.Permissions.DeniedPaths,
			}
		}
		tools = append(tools, spec)
	}

	mcpServers := make([]agent.MCPServerDescriptor, 0, len(raw.MCPServers))
	for _, m := range raw.MCPServers {
		mcpServers = append(mcpServers, agent.MCPServerDescriptor{
			Name:    m.Name,
			Command: m.Command,
			Args:    m.Args,
			URL:     m.URL,
			Headers: m.Headers,
		})
	}

	return &agent.Definition{
		Name:                name,
		Description:         raw.Description,
		Model:               raw.Model,
		Provider:            raw.Provider,
		BaseURL:             raw.BaseURL,
		APIVersion:          raw.APIVersion,
		ContextWindow:       contextWindow,
		SystemPrompt:        raw.SystemPrompt,
		Directory:           raw.Directory,
		Tools:               tools,
		DelegatesTo:         raw.DelegatesTo,
		IncludeDefaultTools: includeDefaults,
		BypassPermissions:   bypass,
		Timeout:             timeout,
		Parameters:          raw.Parameters,
		Headers:             raw.Headers,
		MCPServers:          mcpServers,
	}, nil
}

// buildHooks normalizes swarm-level hook entries; spec §6.1 restricts these
// to swarm_start/swarm_stop.
func buildHooks(raw []rawHook) ([]*hook.Registration, error) {
	out := make([]*hook.Registration, 0, len(raw))
	for _, h := range raw {
		var event hook.Event
		switch h.Event {
		case "swarm_start":
			event = hook.EventSwarmStart
		case "swarm_stop":
			event = hook.EventSwarmStop
		default:
			return nil, fmt.Errorf("config: swarm-level hooks only support swarm_start/swarm_stop, got %q", h.Event)
		}
		if h.Command == "" {
			return nil, fmt.Errorf("config: hook for event %q requires a command", h.Event)
		}

		reg := &hook.Registration{
			Event:       event,
			Priority:    h.Priority,
			ShellCmd:    h.Command,
			TimeoutSecs: h.TimeoutSeconds,
		}
		if h.Matcher != "" {
			re, err := regexp.Compile(h.Matcher)
			if err != nil {
				return nil, fmt.Errorf("config: hook matcher %q: %w", h.Matcher, err)
			}
			reg.Matcher = re
		}
		out = append(out, reg)
	}
	return out, nil
}

func buildNodes(raw []rawNodeSpec) ([]*node.Definition, error) {
	out := make([]*node.Definition, 0, len(raw))
	for _, n := range raw {
		def := &node.Definition{
			Name:      n.Name,
			Agents:    n.Agents,
			Lead:      n.Lead,
			DependsOn: n.DependsOn,
		}
		if n.InputTransformCmd != "" {
			def.InputTransformer = &node.Transformer{ShellCmd: n.InputTransformCmd, TimeoutSec: n.TransformTimeoutSecs}
		}
		if n.OutputTransformCmd != "" {
			def.OutputTransformer = &node.Transformer{ShellCmd: n.OutputTransformCmd, TimeoutSec: n.TransformTimeoutSecs}
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
