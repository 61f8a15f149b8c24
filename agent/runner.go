// ABOUTME: AgentRunner.Ask: the turn loop that drives the LLM, injects reminders and hooks,
// ABOUTME: and dispatches tool calls (including delegation) through the two-tier scheduler.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389-research/swarmloom/hook"
	"github.com/2389-research/swarmloom/llm"
	"github.com/2389-research/swarmloom/telemetry"
)

// LogSink receives structured log events emitted during a turn. Implemented
// by the swarm's LogCollector; kept as an interface here so agent has no
// dependency on the swarm package.
type LogSink interface {
	Emit(event, agentName string, fields map[string]any)
}

// HookInvoker fires hook events for a given scope (agent name, or "" for
// swarm-scoped events) and returns the steering result.
type HookInvoker interface {
	Fire(ctx context.Context, hctx hook.Context, scope string) hook.Result
}

// Runner drives one Agent's turn loop against an LLM client.
type Runner struct {
	Agent     *Agent
	Client    LLMDriver
	Hooks     HookInvoker
	Logs      LogSink
	Scheduler *Scheduler

	// MaxToolRounds bounds how many LLM<->tool round trips a single Ask call
	// may take before it gives up and returns a fixed assistant message saying
	// the round limit was reached.
	MaxToolRounds int
}

// DefaultMaxToolRounds is used when Runner.MaxToolRounds is unset.
const DefaultMaxToolRounds = 50

// Ask drives the agent through one user turn: reminder injection, hook
// firing, and the LLM/tool-call loop (spec §4.1).
func (r *Runner) Ask(ctx context.Context, prompt string) (*llm.Message, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.ask", trace.WithAttributes(attribute.String("agent.name", r.Agent.Def.Name)))
	defer span.End()

	isFirstTurn := r.Agent.consumeFirstTurn()

	if isFirstTurn {
		r.Agent.appendMessage(llm.UserMessage(beforeFirstMessageReminder))
		r.Agent.appendMessage(llm.UserMessage(prompt))
		r.Agent.appendMessage(llm.UserMessage(afterFirstMessageReminder))
	} else {
		if r.Agent.dueForTodoReminder() {
			r.Agent.appendMessage(llm.UserMessage(periodicTodoReminder))
		}
		r.Agent.appendMessage(llm.UserMessage(prompt))
	}

	if r.Hooks != nil {
		if !r.Agent.consumeFirstMessageHook() {
			result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventFirstMessage, Agent: r.Agent.Def.Name, OriginalPrompt: prompt}, r.Agent.Def.Name)
			if result.Action == hook.Halt {
				return haltMessage(result.Message), nil
			}
		}
		result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventUserPrompt, Agent: r.Agent.Def.Name, OriginalPrompt: prompt, Content: prompt}, r.Agent.Def.Name)
		if result.Action == hook.Halt {
			return haltMessage(result.Message), nil
		}
	}

	return r.complete(ctx, 0)
}

func haltMessage(text string) *llm.Message {
	msg := llm.AssistantMessage(text)
	return &msg
}

// complete implements spec §4.1 step 4: one LLM call, then recursion into
// tool-call handling until the model returns a tool-call-free response.
func (r *Runner) complete(ctx context.Context, round int) (*llm.Message, error) {
	if round >= r.maxRounds() {
		msg := llm.AssistantMessage("Reached the maximum number of tool-call rounds for this turn.")
		return &msg, nil
	}

	systemPrompt := BuildSystemPrompt(r.Agent.Def, r.Agent.Env, r.Agent.Registry)
	history := r.Agent.History()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(systemPrompt))
	messages = append(messages, history...)

	request := llm.Request{
		Model:           r.Agent.Def.Model,
		Messages:        messages,
		Tools:           r.Agent.Registry.Definitions(),
		ToolChoice:      &llm.ToolChoice{Mode: llm.ToolChoiceAuto},
		Provider:        r.Agent.Def.Provider,
		ProviderOptions: r.Agent.Def.Parameters,
	}

	response, err := r.Client.Complete(ctx, request)
	if err != nil {
		if r.Logs != nil {
			r.Logs.Emit("error", r.Agent.Def.Name, map[string]any{"error": err.Error()})
		}
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	newlyCrossed := r.Agent.recordUsage(response.Usage)
	cumulative := r.Agent.CumulativeUsage()
	for _, threshold := range newlyCrossed {
		if r.Logs != nil {
			remaining := r.Agent.Def.ContextWindow - cumulative.TotalTokens
			if remaining < 0 {
				remaining = 0
			}
			r.Logs.Emit("context_limit_warning", r.Agent.Def.Name, map[string]any{
				"agent":            r.Agent.Def.Name,
				"threshold":        threshold,
				"current_usage":    float64(cumulative.TotalTokens) / float64(r.Agent.Def.ContextWindow),
				"tokens_used":      cumulative.TotalTokens,
				"tokens_remaining": remaining,
				"context_limit":    r.Agent.Def.ContextWindow,
			})
		}
		if r.Hooks != nil {
			r.Hooks.Fire(ctx, hook.Context{Event: hook.EventContextWarning, Agent: r.Agent.Def.Name}, r.Agent.Def.Name)
		}
	}

	if r.Logs != nil {
		r.Logs.Emit("user_request", r.Agent.Def.Name, map[string]any{
			"agent":         r.Agent.Def.Name,
			"model":         r.Agent.Def.Model,
			"provider":      r.Agent.Def.Provider,
			"message_count": len(messages),
			"tools":         r.Agent.Registry.Names(),
			"delegates_to":  r.Agent.Def.DelegatesTo,
			"round":         round,
		})
		inputCost, outputCost, totalCost := modelCost(r.Agent.Def.Model, response.Usage)
		r.Logs.Emit("agent_stop", r.Agent.Def.Name, map[string]any{
			"agent":   r.Agent.Def.Name,
			"model":   r.Agent.Def.Model,
			"content": response.TextContent(),
			"usage": map[string]any{
				"input_tokens":  response.Usage.InputTokens,
				"output_tokens": response.Usage.OutputTokens,
				"total_tokens":  response.Usage.TotalTokens,
				"input_cost":    inputCost,
				"output_cost":   outputCost,
				"total_cost":    totalCost,
			},
			"finish_reason": response.FinishReason.Reason,
		})
	}

	r.Agent.appendMessage(response.Message)

	toolCalls := response.ToolCalls()
	if len(toolCalls) == 0 {
		msg := response.Message
		return &msg, nil
	}

	results := r.executeToolCalls(ctx, toolCalls)
	for _, result := range results {
		r.Agent.appendMessage(llm.ToolResultMessage(result.ToolCallID, result.Content, result.IsError))
	}

	return r.complete(ctx, round+1)
}

// modelCost prices a Usage against the built-in model catalog, returning
// zeros for models with no known pricing (local/test adapters included).
func modelCost(model string, usage llm.Usage) (inputCost, outputCost, totalCost float64) {
	info := llm.DefaultCatalog().GetModelInfo(model)
	if info == nil {
		return 0, 0, 0
	}
	inputCost = float64(usage.InputTokens) / 1_000_000 * info.InputCostPerMillion
	outputCost = float64(usage.OutputTokens) / 1_000_000 * info.OutputCostPerMillion
	return inputCost, outputCost, inputCost + outputCost
}

func (r *Runner) maxRounds() int {
	if r.MaxToolRounds > 0 {
		return r.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

// executeToolCalls runs K tool calls per spec §4.2: inline for K==1, concurrent
// (through the two-tier scheduler) for K>1, preserving result order.
func (r *Runner) executeToolCalls(ctx context.Context, toolCalls []llm.ToolCallData) []llm.ToolResult {
	results := make([]llm.ToolResult, len(toolCalls))

	if len(toolCalls) == 1 {
		results[0] = r.executeSingleTool(ctx, toolCalls[0])
		return results
	}

	var wg sync.WaitGroup
	wg.Add(len(toolCalls))
	for i, tc := range toolCalls {
		go func(idx int, call llm.ToolCallData) {
			defer wg.Done()
			if r.Scheduler != nil {
				var release func()
				if registered := r.Agent.Registry.Get(call.Name); registered != nil && registered.IsDelegation {
					release = r.Scheduler.acquireLocal()
				} else {
					release = r.Scheduler.acquire()
				}
				defer release()
			}
			if ctx.Err() != nil {
				results[idx] = llm.ToolResult{ToolCallID: call.ID, Content: "cancelled", IsError: true}
				return
			}
			results[idx] = r.executeSingleTool(ctx, call)
		}(i, tc)
	}
	wg.Wait()
	return results
}

// executeSingleTool dispatches one tool call, branching between the
// delegation protocol and the regular-tool protocol (spec §4.2 step 2).
func (r *Runner) executeSingleTool(ctx context.Context, tc llm.ToolCallData) llm.ToolResult {
	registered := r.Agent.Registry.Get(tc.Name)
	if registered == nil {
		return llm.ToolResult{ToolCallID: tc.ID, Content: fmt.Sprintf("Unknown tool: %s", tc.Name), IsError: true}
	}

	args, err := parseToolArgs(tc)
	if err != nil {
		return llm.ToolResult{ToolCallID: tc.ID, Content: err.Error(), IsError: true}
	}

	if registered.IsDelegation {
		return r.executeDelegation(ctx, tc, registered, args)
	}
	return r.executeRegularTool(ctx, tc, registered, args)
}

func parseToolArgs(tc llm.ToolCallData) (map[string]any, error) {
	args := make(map[string]any)
	if len(tc.Arguments) > 0 {
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			return nil, fmt.Errorf("Tool error (%s): failed to parse arguments: %s", tc.Name, err)
		}
	}
	return args, nil
}

func (r *Runner) executeRegularTool(ctx context.Context, tc llm.ToolCallData, registered *RegisteredTool, args map[string]any) llm.ToolResult {
	if r.Logs != nil {
		r.Logs.Emit("tool_call", r.Agent.Def.Name, map[string]any{
			"agent":        r.Agent.Def.Name,
			"tool_call_id": tc.ID,
			"tool":         tc.Name,
			"arguments":    args,
		})
	}

	if r.Hooks != nil {
		result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventPreToolUse, Agent: r.Agent.Def.Name, Content: tc.Name}, r.Agent.Def.Name)
		switch result.Action {
		case hook.Halt:
			return r.finishToolResult(tc, result.Message, true)
		case hook.Replace:
			return r.finishToolResult(tc, result.Value, false)
		}
	}

	rawOutput, err := registered.Execute(ctx, args, r.Agent.Env)
	if err != nil {
		errorMsg := fmt.Sprintf("Tool error (%s): %s", tc.Name, err)
		return r.finishToolResult(tc, errorMsg, true)
	}

	if r.Hooks != nil {
		result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventPostToolUse, Agent: r.Agent.Def.Name, Content: rawOutput}, r.Agent.Def.Name)
		if result.Action == hook.Replace {
			rawOutput = result.Value
		}
	}

	return r.finishToolResult(tc, rawOutput, false)
}

func (r *Runner) finishToolResult(tc llm.ToolCallData, content string, isError bool) llm.ToolResult {
	truncated := content
	if !isError {
		truncated = TruncateToolOutput(content, tc.Name, nil)
	}
	if r.Logs != nil {
		r.Logs.Emit("tool_result", r.Agent.Def.Name, map[string]any{
			"agent":        r.Agent.Def.Name,
			"tool_call_id": tc.ID,
			"result":       content,
		})
	}
	return llm.ToolResult{ToolCallID: tc.ID, Content: truncated, IsError: isError}
}

// executeDelegation implements spec §4.2 step 2: pre_delegation/post_delegation
// hooks instead of pre_tool_use/post_tool_use, and agent_delegation/
// delegation_result logs instead of tool_call/tool_result.
func (r *Runner) executeDelegation(ctx context.Context, tc llm.ToolCallData, registered *RegisteredTool, args map[string]any) llm.ToolResult {
	task, _ := args["task"].(string)

	if r.Logs != nil {
		r.Logs.Emit("agent_delegation", r.Agent.Def.Name, map[string]any{
			"agent":        r.Agent.Def.Name,
			"tool_call_id": tc.ID,
			"delegate_to":  registered.DelegateTarget,
			"arguments":    args,
			"task":         task,
		})
	}

	if r.Hooks != nil {
		result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventPreDelegation, Agent: r.Agent.Def.Name, Content: registered.DelegateTarget}, r.Agent.Def.Name)
		switch result.Action {
		case hook.Halt:
			return r.finishDelegationResult(tc, registered.DelegateTarget, result.Message, true)
		case hook.Replace:
			return r.finishDelegationResult(tc, registered.DelegateTarget, result.Value, false)
		}
	}

	rawOutput, err := registered.Execute(ctx, args, r.Agent.Env)
	if err != nil {
		if r.Logs != nil {
			r.Logs.Emit("delegation_error", r.Agent.Def.Name, map[string]any{
				"agent":         r.Agent.Def.Name,
				"delegate_to":   registered.DelegateTarget,
				"error_class":   fmt.Sprintf("%T", err),
				"error_message": err.Error(),
			})
		}
		return r.finishDelegationResult(tc, registered.DelegateTarget, fmt.Sprintf("Delegation error (%s): %s", registered.DelegateTarget, err), true)
	}

	if r.Hooks != nil {
		result := r.Hooks.Fire(ctx, hook.Context{Event: hook.EventPostDelegation, Agent: r.Agent.Def.Name, Content: rawOutput}, r.Agent.Def.Name)
		if result.Action == hook.Replace {
			rawOutput = result.Value
		}
	}

	return r.finishDelegationResult(tc, registered.DelegateTarget, rawOutput, false)
}

func (r *Runner) finishDelegationResult(tc llm.ToolCallData, target, content string, isError bool) llm.ToolResult {
	if r.Logs != nil {
		r.Logs.Emit("delegation_result", r.Agent.Def.Name, map[string]any{
			"agent":         r.Agent.Def.Name,
			"delegate_from": r.Agent.Def.Name,
			"tool_call_id":  tc.ID,
			"result":        content,
		})
	}
	return llm.ToolResult{ToolCallID: tc.ID, Content: content, IsError: isError}
}
