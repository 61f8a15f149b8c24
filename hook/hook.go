// ABOUTME: Hook registration and result types for the swarm's steering system.
// ABOUTME: Registrations carry an event name, optional regex matcher, priority, and scope.

package hook

import "regexp"

// Event names the lifecycle point a hook fires at.
type Event string

const (
	EventSwarmStart     Event = "swarm_start"
	EventSwarmStop      Event = "swarm_stop"
	EventFirstMessage   Event = "first_message"
	EventUserPrompt     Event = "user_prompt"
	EventContextWarning Event = "context_warning"
	EventPreToolUse     Event = "pre_tool_use"
	EventPostToolUse    Event = "post_tool_use"
	EventPreDelegation  Event = "pre_delegation"
	EventPostDelegation Event = "post_delegation"
	EventNodeStart      Event = "node_start"
	EventNodeStop       Event = "node_stop"
)

// Action is the steering directive a hook returns.
type Action int

const (
	// Continue lets execution proceed unchanged.
	Continue Action = iota
	// Halt stops execution, surfacing Message as the result.
	Halt
	// Replace substitutes Value for whatever content the hook observed.
	Replace
	// Reprompt re-enters Swarm.execute with Value as a new prompt. Valid only for swarm_stop.
	Reprompt
)

func (a Action) String() string {
	switch a {
	case Halt:
		return "halt"
	case Replace:
		return "replace"
	case Reprompt:
		return "reprompt"
	default:
		return "continue"
	}
}

// Result is what a hook callback or shell command returns.
type Result struct {
	Action  Action
	Message string // set for Halt
	Value   string // set for Replace / Reprompt
}

// ContinueResult is the zero-value no-op result, returned by hooks that pass through.
var ContinueResult = Result{Action: Continue}

// Context is the event-specific payload passed to a hook. Fields not relevant
// to a given event are left zero.
type Context struct {
	Event          Event
	Agent          string
	Node           string
	OriginalPrompt string
	Content        string
	AllResults     map[string]string
	Dependencies   []string
	Extra          map[string]any
}

// Callback is an in-process hook implementation.
type Callback func(ctx Context) Result

// Registration describes one hook binding: a matcher (optional regex over
// Context.Agent or Context.Content depending on the event), a priority
// (higher runs first), and either an in-process Callback or a shell command.
type Registration struct {
	Event       Event
	Matcher     *regexp.Regexp
	Priority    int
	Scope       string // "" (swarm-default) or an agent name
	Callback    Callback
	ShellCmd    string
	TimeoutSecs int
}

// Matches reports whether this registration applies to the given scope
// (agent name, or "" for node events) and, if a matcher is set, whether the
// matcher's target text matches.
func (r *Registration) Matches(scope, target string) bool {
	if r.Scope != "" && r.Scope != scope {
		return false
	}
	if r.Matcher != nil && !r.Matcher.MatchString(target) {
		return false
	}
	return true
}
