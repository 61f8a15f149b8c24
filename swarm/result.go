// ABOUTME: Result aggregates one Swarm.execute call's outcome from its LogCollector,
// ABOUTME: per spec §4.6 step 6 and §6.4 (content, costs, tokens, involved agents, duration).

package swarm

import "time"

// Result is what Swarm.Execute returns: the lead agent's final content plus
// everything aggregated from the run's log stream.
type Result struct {
	Content   string
	Agent     string
	Success   bool
	Cancelled bool
	Error     string

	TotalCost      float64
	TotalTokens    int
	LLMRequests    int
	ToolCallsCount int
	AgentsInvolved []string

	Duration time.Duration
	Logs     []LogEvent
}

// buildResult implements spec §4.6 step 6: sum agent_stop.usage.total_cost,
// count user_request/tool_call events, and collect the distinct agents seen.
func buildResult(content, leadAgent string, success, cancelled bool, errMsg string, duration time.Duration, events []LogEvent) Result {
	res := Result{
		Content:   content,
		Agent:     leadAgent,
		Success:   success,
		Cancelled: cancelled,
		Error:     errMsg,
		Duration:  duration,
		Logs:      events,
	}

	seen := make(map[string]bool)
	for _, event := range events {
		if event.Agent != "" && !seen[event.Agent] {
			seen[event.Agent] = true
			res.AgentsInvolved = append(res.AgentsInvolved, event.Agent)
		}

		switch event.Type {
		case "user_request":
			res.LLMRequests++
		case "tool_call":
			res.ToolCallsCount++
		case "agent_stop":
			if usage, ok := event.Fields["usage"].(map[string]any); ok {
				if cost, ok := usage["total_cost"].(float64); ok {
					res.TotalCost += cost
				}
				if total, ok := usage["total_tokens"].(int); ok {
					res.TotalTokens += total
				}
			}
		}
	}

	return res
}
