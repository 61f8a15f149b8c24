// ABOUTME: Raw YAML v2 document shape, decoded with gopkg.in/yaml.v3 before
// ABOUTME: normalization into agent.Definition/hook.Registration/node.Definition.

package config

import "gopkg.in/yaml.v3"

// rawDocument mirrors spec §6.1's top-level shape: `version: 2`, `swarm:
// {name, lead, all_agents?, agents, hooks?}`, plus an optional `workflow:`
// block so a node.Graph can be declared alongside the swarm the way the DSL
// Builder already allows programmatically.
type rawDocument struct {
	Version  int          `yaml:"version"`
	Swarm    rawSwarm     `yaml:"swarm"`
	Workflow *rawWorkflow `yaml:"workflow,omitempty"`
}

type rawSwarm struct {
	Name              string              `yaml:"name"`
	Lead              string              `yaml:"lead"`
	AllAgents         *rawAgent           `yaml:"all_agents,omitempty"`
	Agents            map[string]rawAgent `yaml:"agents"`
	Hooks             []rawHook           `yaml:"hooks,omitempty"`
	GlobalConcurrency int                 `yaml:"global_concurrency,omitempty"`
	LocalConcurrency  int                 `yaml:"local_concurrency,omitempty"`
}

type rawAgent struct {
	Description         string            `yaml:"description"`
	Model               string            `yaml:"model"`
	Provider            string            `yaml:"provider"`
	BaseURL             string            `yaml:"base_url,omitempty"`
	APIVersion          string            `yaml:"api_version,omitempty"`
	ContextWindow       int               `yaml:"context_window,omitempty"`
	SystemPrompt        string            `yaml:"system_prompt"`
	Directory           string            `yaml:"directory"`
	Tools               []rawTool         `yaml:"tools,omitempty"`
	DelegatesTo         []string          `yaml:"delegates_to,omitempty"`
	IncludeDefaultTools *bool             `yaml:"include_default_tools,omitempty"`
	BypassPermissions   *bool             `yaml:"bypass_permissions,omitempty"`
	TimeoutSeconds      *int              `yaml:"timeout_seconds,omitempty"`
	Parameters          map[string]any    `yaml:"parameters,omitempty"`
	Headers             map[string]string `yaml:"headers,omitempty"`
	MCPServers          []rawMCPServer    `yaml:"mcp_servers,omitempty"`
}

type rawMCPServer struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// rawTool normalizes a `tools:` entry that is either a bare string (tool
// name, no permission overrides) or a `{name, permissions}` map, per spec
// §4.8: "tool list normalization (strings → {name: S})".
type rawTool struct {
	Name        string
	Permissions *rawToolPermissions
}

func (t *rawTool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Name = node.Value
		return nil
	}

	var aux struct {
		Name        string              `yaml:"name"`
		Permissions *rawToolPermissions `yaml:"permissions"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	t.Name = aux.Name
	t.Permissions = aux.Permissions
	return nil
}

type rawToolPermissions struct {
	AllowedPaths []string `yaml:"allowed_paths,omitempty"`
	DeniedPaths  []string `yaml:"denied_paths,omitempty"`
}

// rawHook is a swarm-level hook registration. Per spec §6.1, swarm-level
// hooks support only swarm_start/swarm_stop.
type rawHook struct {
	Event          string `yaml:"event"`
	Matcher        string `yaml:"matcher,omitempty"`
	Priority       int    `yaml:"priority,omitempty"`
	Command        string `yaml:"command"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

type rawWorkflow struct {
	StartNode string        `yaml:"start_node"`
	Nodes     []rawNodeSpec `yaml:"nodes"`
}

type rawNodeSpec struct {
	Name                 string   `yaml:"name"`
	Agents               []string `yaml:"agents,omitempty"`
	Lead                 string   `yaml:"lead,omitempty"`
	DependsOn            []string `yaml:"depends_on,omitempty"`
	InputTransformCmd    string   `yaml:"input_transform,omitempty"`
	OutputTransformCmd   string   `yaml:"output_transform,omitempty"`
	TransformTimeoutSecs int      `yaml:"transform_timeout_seconds,omitempty"`
}
