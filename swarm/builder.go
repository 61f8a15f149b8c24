// ABOUTME: Builder is the programmatic (non-YAML) DSL for constructing a Swarm,
// ABOUTME: producing the same Definition objects the config loader builds from YAML (spec §4.8).

package swarm

import (
	"fmt"

	"github.com/2389-research/swarmloom/agent"
	"github.com/2389-research/swarmloom/hook"
)

// Builder accumulates agent Definitions and hook registrations before
// producing a validated Swarm.
type Builder struct {
	name   string
	lead   string
	client agent.LLMDriver
	defs   map[string]*agent.Definition
	hooks  []*hook.Registration
	global int
	local  int
}

// NewBuilder starts a Builder for a swarm named name, driven by client.
func NewBuilder(name string, client agent.LLMDriver) *Builder {
	return &Builder{
		name:   name,
		client: client,
		defs:   make(map[string]*agent.Definition),
	}
}

// Lead marks which agent is the swarm's entry point.
func (b *Builder) Lead(name string) *Builder {
	b.lead = name
	return b
}

// Agent registers one agent Definition under its Name.
func (b *Builder) Agent(def *agent.Definition) *Builder {
	b.defs[def.Name] = def
	return b
}

// Hook adds a swarm-scoped hook registration (swarm_start/swarm_stop only,
// per spec §6.1 — agent-scoped hooks belong on the Definition's own config
// path, not here).
func (b *Builder) Hook(reg *hook.Registration) *Builder {
	b.hooks = append(b.hooks, reg)
	return b
}

// Concurrency overrides the default global/local semaphore sizes.
func (b *Builder) Concurrency(global, local int) *Builder {
	b.global = global
	b.local = local
	return b
}

// Build validates the accumulated Definitions (existence, delegation
// resolution, cycle-freedom) and returns a ready-to-Execute Swarm.
func (b *Builder) Build() (*Swarm, error) {
	if b.lead == "" {
		return nil, fmt.Errorf("swarm builder: Lead(...) is required")
	}
	if len(b.defs) == 0 {
		return nil, fmt.Errorf("swarm builder: at least one Agent(...) is required")
	}

	s := New(b.name, b.lead, b.defs, b.client)
	if b.global > 0 || b.local > 0 {
		s.WithConcurrency(b.global, b.local)
	}
	for _, reg := range b.hooks {
		s.WithHook(reg)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
