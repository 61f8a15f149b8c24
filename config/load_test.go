package config

import (
	"fmt"
	"testing"
)

func minimalYAML(t *testing.T, directory string) string {
	t.Helper()
	return fmt.Sprintf(`
version: 2
swarm:
  name: test-swarm
  lead: writer
  agents:
    writer:
      description: drafts content
      model: claude-sonnet
      provider: anthropic
      system_prompt: You are a writer.
      directory: %s
`, directory)
}

func TestLoadBytesMinimalDocument(t *testing.T) {
	doc, err := NewLoader().LoadBytes([]byte(minimalYAML(t, t.TempDir())))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.SwarmName != "test-swarm" || doc.Lead != "writer" {
		t.Fatalf("unexpected swarm identity: %+v", doc)
	}
	writer, ok := doc.Agents["writer"]
	if !ok {
		t.Fatal("expected writer agent to be present")
	}
	if writer.Description != "drafts content" || writer.Model != "claude-sonnet" {
		t.Fatalf("unexpected agent definition: %+v", writer)
	}
}

func TestLoadBytesRejectsWrongVersion(t *testing.T) {
	yaml := `
version: 1
swarm:
  name: s
  lead: a
  agents:
    a: {description: d, system_prompt: p, directory: /tmp}
`
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestLoadBytesRejectsUnknownLead(t *testing.T) {
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: missing
  agents:
    a:
      description: d
      system_prompt: p
      directory: %s
`, t.TempDir())
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for lead referencing an undeclared agent")
	}
}

func TestLoadBytesRejectsDelegationCycle(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a:
      description: d
      system_prompt: p
      directory: %s
      delegates_to: [b]
    b:
      description: d
      system_prompt: p
      directory: %s
      delegates_to: [a]
`, dir, dir)
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for delegation cycle")
	}
}

func TestLoadBytesEnvInterpolationWithDefault(t *testing.T) {
	t.Setenv("SWARMLOOM_TEST_MODEL", "")
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a:
      description: d
      model: ${SWARMLOOM_TEST_MODEL:=fallback-model}
      system_prompt: p
      directory: %s
`, dir)
	doc, err := NewLoader().LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Agents["a"].Model != "fallback-model" {
		t.Fatalf("expected fallback-model, got %q", doc.Agents["a"].Model)
	}
}

func TestLoadBytesEnvInterpolationMissingWithoutDefaultFails(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a:
      description: d
      model: ${SWARMLOOM_DEFINITELY_UNSET_VAR}
      system_prompt: p
      directory: %s
`, dir)
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for missing env var with no default")
	}
}

func TestLoadBytesToolStringNormalization(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a:
      description: d
      system_prompt: p
      directory: %s
      tools:
        - Read
        - name: Write
          permissions:
            allowed_paths: ["**/*.go"]
`, dir)
	doc, err := NewLoader().LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tools := doc.Agents["a"].Tools
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "Read" || tools[0].Permissions != nil {
		t.Fatalf("expected bare string tool to normalize with no permissions, got %+v", tools[0])
	}
	if tools[1].Name != "Write" || tools[1].Permissions == nil || len(tools[1].Permissions.AllowedPaths) != 1 {
		t.Fatalf("expected Write tool with permissions, got %+v", tools[1])
	}
}

func TestLoadBytesAllAgentsMergeSemantics(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  all_agents:
    provider: anthropic
    tools: [Read]
    parameters:
      temperature: 0.2
  agents:
    a:
      description: d
      system_prompt: p
      directory: %s
      tools: [Write]
      parameters:
        max_tokens: 4096
`, dir)
	doc, err := NewLoader().LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := doc.Agents["a"]
	if a.Provider != "anthropic" {
		t.Fatalf("expected scalar from all_agents to apply, got %q", a.Provider)
	}
	if len(a.Tools) != 2 {
		t.Fatalf("expected tools to concat (Read, Write), got %+v", a.Tools)
	}
	if a.Parameters["temperature"] != 0.2 || a.Parameters["max_tokens"] != 4096 {
		t.Fatalf("expected parameters to map-merge, got %+v", a.Parameters)
	}
}

func TestLoadBytesAgentScalarOverridesAllAgents(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  all_agents:
    provider: anthropic
  agents:
    a:
      description: d
      provider: openai
      system_prompt: p
      directory: %s
`, dir)
	doc, err := NewLoader().LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Agents["a"].Provider != "openai" {
		t.Fatalf("expected agent-level scalar to win, got %q", doc.Agents["a"].Provider)
	}
}

func TestLoadBytesSwarmHooksRejectNonSwarmEvents(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a: {description: d, system_prompt: p, directory: %s}
  hooks:
    - event: pre_tool_use
      command: "./notify.sh"
`, dir)
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for swarm-level hook on a non-swarm event")
	}
}

func TestLoadBytesWorkflowBuildsNodeGraph(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a: {description: d, system_prompt: p, directory: %s}
    b: {description: d, system_prompt: p, directory: %s}
workflow:
  start_node: draft
  nodes:
    - name: draft
      agents: [a]
    - name: review
      agents: [b]
      depends_on: [draft]
`, dir, dir)
	doc, err := NewLoader().LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.HasWorkflow || doc.StartNode != "draft" || len(doc.Nodes) != 2 {
		t.Fatalf("expected a two-node workflow, got %+v", doc)
	}
}

func TestLoadBytesWorkflowRejectsCycle(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
version: 2
swarm:
  name: s
  lead: a
  agents:
    a: {description: d, system_prompt: p, directory: %s}
workflow:
  start_node: x
  nodes:
    - name: x
      agents: [a]
      depends_on: [y]
    - name: y
      agents: [a]
      depends_on: [x]
`, dir)
	if _, err := NewLoader().LoadBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for node depends_on cycle")
	}
}
