// ABOUTME: Agent is the runtime state for one agent: conversation history, tool registry,
// ABOUTME: cumulative usage counters, and the permission/read-tracking state its tools close over.

package agent

import (
	"sync"

	"github.com/2389-research/swarmloom/llm"
)

// contextWarningThresholds are the cumulative-token fractions of ContextWindow
// at which a context_limit_warning fires (spec §4.1 step 4.1).
var contextWarningThresholds = []float64{0.80, 0.90}

// Agent is the mutable runtime wrapping a Definition: its conversation
// history, registered tools, and the per-agent state (ReadTracker, todo
// counter, cumulative usage) that Ask mutates turn over turn.
type Agent struct {
	Def *Definition

	Env         ExecutionEnvironment
	Registry    *ToolRegistry
	Permissions *Permissions
	ReadTracker *ReadTracker

	mu                     sync.Mutex
	history                []llm.Message
	cumulativeUsage        llm.Usage
	crossedThresholds      map[float64]bool
	firstTurnDone          bool
	firstMessageHookFired  bool
	messagesSinceTodoWrite int
}

// NewAgent wires a Definition to its execution environment and returns an
// Agent with an empty history. Callers (the Swarm) are responsible for
// populating Registry with the built-in and delegation tools before the
// first Ask.
func NewAgent(def *Definition, env ExecutionEnvironment) *Agent {
	return &Agent{
		Def:               def,
		Env:               env,
		Registry:          NewToolRegistry(),
		Permissions:       NewPermissions(def.Directory, permissionRulesFromTools(def.Tools), def.BypassPermissions),
		ReadTracker:       NewReadTracker(),
		crossedThresholds: make(map[float64]bool),
	}
}

// permissionRulesFromTools converts a Definition's per-tool permission
// overrides into the map Permissions expects.
func permissionRulesFromTools(specs []ToolSpec) map[string]ToolPermissionRule {
	rules := make(map[string]ToolPermissionRule)
	for _, spec := range specs {
		if spec.Permissions != nil {
			rules[spec.Name] = *spec.Permissions
		}
	}
	return rules
}

// History returns a copy of the agent's message history.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}

// appendMessage appends one message to history under lock.
func (a *Agent) appendMessage(msg llm.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msg)
}

// CumulativeUsage returns the running token-usage total across every LLM
// call this agent has made.
func (a *Agent) CumulativeUsage() llm.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cumulativeUsage
}

// recordUsage adds usage to the cumulative total and reports which warning
// thresholds (0.80, 0.90) were newly crossed by this call.
func (a *Agent) recordUsage(usage llm.Usage) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cumulativeUsage = a.cumulativeUsage.Add(usage)
	if a.Def.ContextWindow <= 0 {
		return nil
	}

	var newlyCrossed []float64
	fraction := float64(a.cumulativeUsage.TotalTokens) / float64(a.Def.ContextWindow)
	for _, threshold := range contextWarningThresholds {
		if fraction >= threshold && !a.crossedThresholds[threshold] {
			a.crossedThresholds[threshold] = true
			newlyCrossed = append(newlyCrossed, threshold)
		}
	}
	return newlyCrossed
}

// consumeFirstTurn reports whether this Ask call is the agent's first user turn,
// and marks it done.
func (a *Agent) consumeFirstTurn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	wasFirst := !a.firstTurnDone
	a.firstTurnDone = true
	return wasFirst
}

// consumeFirstMessageHook reports whether the once-per-agent-lifetime
// first_message hook has already fired, and marks it fired.
func (a *Agent) consumeFirstMessageHook() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	alreadyFired := a.firstMessageHookFired
	a.firstMessageHookFired = true
	return alreadyFired
}

// dueForTodoReminder reports whether todoReminderInterval messages have
// elapsed since the last TodoWrite call, then increments the counter.
func (a *Agent) dueForTodoReminder() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	due := a.messagesSinceTodoWrite >= todoReminderInterval
	a.messagesSinceTodoWrite++
	return due
}

// resetTodoCounter zeroes the "messages since last TodoWrite" counter; wired
// as the onWrite callback passed to NewTodoWriteTool.
func (a *Agent) resetTodoCounter() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messagesSinceTodoWrite = 0
}

// ResetTodoReminderCounter is the exported form of resetTodoCounter, used by
// the swarm package when wiring NewTodoWriteTool's onWrite callback across
// the package boundary.
func (a *Agent) ResetTodoReminderCounter() {
	a.resetTodoCounter()
}
