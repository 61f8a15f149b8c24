// ABOUTME: Swarm owns a set of agents, the shared scheduler/scratchpad/hook registry,
// ABOUTME: and the five-pass lazy init that wires delegation tools between agents (spec §4.6).

package swarm

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/2389-research/swarmloom/agent"
	"github.com/2389-research/swarmloom/hook"
	"github.com/2389-research/swarmloom/internal/diag"
	"github.com/2389-research/swarmloom/llm"
)

// Defaults for the two-tier scheduler (spec §5).
const (
	DefaultGlobalConcurrency = 50
	DefaultLocalConcurrency  = 10
)

// member is the per-agent runtime state the Swarm owns: the Agent itself,
// its Runner, and its execution environment.
type member struct {
	agent  *agent.Agent
	runner *agent.Runner
	env    agent.ExecutionEnvironment
}

// Swarm is a named collection of agents sharing one global semaphore, one
// Scratchpad, one TodoStore, and one hook Registry. It is constructed via
// Builder (programmatically) or the config loader (from YAML), and is
// lazily, idempotently initialized on its first Execute call.
type Swarm struct {
	Name string
	Lead string

	defs     map[string]*agent.Definition
	client   agent.LLMDriver
	hookRegs []*hook.Registration

	globalConcurrency int
	localConcurrency  int

	mu          sync.Mutex
	initialized bool
	members     map[string]*member
	scratchpad  *agent.Scratchpad
	todos       *agent.TodoStore
	hookReg     *hook.Registry
	hookExec    *hook.Executor
	global      chan struct{}
	logger      hclog.Logger
}

// New constructs an uninitialized Swarm. defs must include lead and every
// agent named in a DelegatesTo chain; client resolves each Definition's
// Provider to a concrete adapter at call time.
func New(name, lead string, defs map[string]*agent.Definition, client agent.LLMDriver) *Swarm {
	return &Swarm{
		Name:              name,
		Lead:              lead,
		defs:              defs,
		client:            client,
		globalConcurrency: DefaultGlobalConcurrency,
		localConcurrency:  DefaultLocalConcurrency,
		logger:            diag.New("swarm"),
	}
}

// WithConcurrency overrides the default global/local semaphore sizes.
func (s *Swarm) WithConcurrency(global, local int) *Swarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		panic("swarm: cannot change concurrency after init")
	}
	if global > 0 {
		s.globalConcurrency = global
	}
	if local > 0 {
		s.localConcurrency = local
	}
	return s
}

// WithHook registers a swarm-level hook (YAML-declared or programmatic).
// Must be called before the first Execute; panics afterward, matching the
// "HookRegistry read-only after execute begins" invariant (spec §5).
func (s *Swarm) WithHook(reg *hook.Registration) *Swarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		panic("swarm: cannot register hooks after init")
	}
	s.hookRegs = append(s.hookRegs, reg)
	return s
}

// Validate checks every Definition against the full set of known agent
// names, surfacing unresolved delegation targets before Execute is ever called.
func (s *Swarm) Validate() error {
	known := make(map[string]bool, len(s.defs))
	for name := range s.defs {
		known[name] = true
	}
	if _, ok := s.defs[s.Lead]; !ok {
		return fmt.Errorf("swarm %q: lead agent %q is not defined", s.Name, s.Lead)
	}
	for _, def := range s.defs {
		if err := def.Validate(known); err != nil {
			return err
		}
	}
	return DetectDelegationCycle(s.defs)
}

// init performs the five-pass lazy initialization from spec §4.6 step 2.
// Idempotent: a second call is a no-op.
func (s *Swarm) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	s.logger.Debug("initializing swarm", "name", s.Name, "lead", s.Lead, "agents", len(s.defs))

	// Pass (a): construct agents & their tools.
	s.global = agent.NewGlobalSemaphore(s.globalConcurrency)
	s.scratchpad = agent.NewScratchpad()
	s.todos = agent.NewTodoStore()
	s.hookReg = hook.NewRegistry()
	s.hookExec = hook.NewExecutor(s.hookReg)
	s.members = make(map[string]*member, len(s.defs))

	for name, def := range s.defs {
		env := agent.NewLocalExecutionEnvironment(def.Directory)
		a := agent.NewAgent(def, env)

		if def.IncludeDefaultTools || len(def.Tools) == 0 {
			agent.RegisterBuiltinFileTools(a.Registry, a.Permissions, a.ReadTracker)
		} else {
			registerSelectedTools(a, def)
		}
		agent.RegisterSharedStateTools(a.Registry, def.Name, s.todos, s.scratchpad, a.ResetTodoReminderCounter)

		scheduler := agent.NewScheduler(s.global, s.localConcurrency)
		runner := &agent.Runner{
			Agent:     a,
			Client:    s.client,
			Hooks:     s.hookExec,
			Logs:      nil, // set per-Execute call once the subscriber list is frozen
			Scheduler: scheduler,
		}
		s.members[name] = &member{agent: a, runner: runner, env: env}
	}

	// Pass (b): attach delegation tools, each referencing its target agent's Runner.
	for name, def := range s.defs {
		caller := s.members[name]
		for _, target := range def.DelegatesTo {
			targetMember, ok := s.members[target]
			if !ok {
				return fmt.Errorf("swarm %q: agent %q delegates to unknown agent %q", s.Name, name, target)
			}
			caller.agent.Registry.Register(newDelegationTool(target, targetMember.runner))
			s.logger.Trace("wired delegation tool", "from", name, "to", target)
		}
	}

	// Passes (c)/(d): per-agent context objects and hook registries are the
	// Agent/Permissions/ReadTracker already constructed in pass (a) plus the
	// shared hookReg/hookExec constructed above — nothing additional to attach.

	// Pass (e): attach YAML-declared (or Builder-supplied) hooks.
	for _, reg := range s.hookRegs {
		s.hookReg.Register(reg)
	}

	s.initialized = true
	s.logger.Debug("swarm initialized", "name", s.Name, "members", len(s.members))
	return nil
}

// registerSelectedTools registers only the tools named in def.Tools, drawn
// from the shared built-in catalog, rather than the full default set.
func registerSelectedTools(a *agent.Agent, def *agent.Definition) {
	full := agent.NewToolRegistry()
	agent.RegisterBuiltinFileTools(full, a.Permissions, a.ReadTracker)
	for _, spec := range def.Tools {
		if tool := full.Get(spec.Name); tool != nil {
			a.Registry.Register(tool)
		}
	}
}

// newDelegationTool builds the synthetic "delegate_to_<name>" tool: calling
// it forwards the task to the target agent's Runner.Ask and returns its
// final text, without involving pre_tool_use/post_tool_use (spec §4.2 step 2).
func newDelegationTool(target string, targetRunner *agent.Runner) *agent.RegisteredTool {
	params := []byte(`{
		"type": "object",
		"properties": {
			"task": {"type": "string", "description": "The task to delegate to this agent."}
		},
		"required": ["task"]
	}`)

	return &agent.RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "delegate_to_" + target,
			Description: fmt.Sprintf("Delegate a task to the %q agent and receive its final response.", target),
			Parameters:  params,
		},
		IsDelegation:   true,
		DelegateTarget: target,
		Execute: func(ctx context.Context, args map[string]any, env agent.ExecutionEnvironment) (string, error) {
			task, _ := args["task"].(string)
			if task == "" {
				return "", fmt.Errorf("delegation to %q requires a non-empty task", target)
			}
			msg, err := targetRunner.Ask(ctx, task)
			if err != nil {
				return "", fmt.Errorf("delegate %q failed: %w", target, err)
			}
			return msg.TextContent(), nil
		},
	}
}
