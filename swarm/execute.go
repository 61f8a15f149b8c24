// ABOUTME: Swarm.Execute drives the six-step algorithm from spec §4.6: freeze subscribers,
// ABOUTME: lazy init, swarm_start, lead Ask, swarm_stop (with Reprompt loop-back), build Result.

package swarm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389-research/swarmloom/hook"
	"github.com/2389-research/swarmloom/telemetry"
)

// Execute runs one prompt through the swarm's lead agent, per spec §4.6.
// subscriber receives every log event emitted during this call; its
// registration is frozen before anything else happens, so it never misses
// an early event and can never be added to mid-run.
func (s *Swarm) Execute(ctx context.Context, prompt string, subscriber Subscriber) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "swarm.execute",
		trace.WithAttributes(attribute.String("swarm.name", s.Name), attribute.String("swarm.lead", s.Lead)))
	defer span.End()

	start := time.Now()

	collector := NewLogCollector()
	if subscriber != nil {
		collector.Subscribe(subscriber)
	}
	collector.Freeze()

	if err := s.init(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return buildResult("", s.Lead, false, false, err.Error(), time.Since(start), collector.Events()), err
	}

	s.mu.Lock()
	for _, m := range s.members {
		m.runner.Logs = collector
	}
	lead, ok := s.members[s.Lead]
	s.mu.Unlock()
	if !ok {
		return Result{Success: false, Error: "swarm: lead agent not found after init"}, nil
	}

	collector.Emit("swarm_start", "", map[string]any{
		"swarm_name": s.Name,
		"lead_agent": s.Lead,
		"prompt":     prompt,
	})

	startResult := s.hookExec.Fire(ctx, hook.Context{Event: hook.EventSwarmStart, OriginalPrompt: prompt}, "")
	if startResult.Action == hook.Halt {
		// spec §4.6 step 3: a halted swarm_start returns failure directly,
		// without ever firing swarm_stop.
		s.logger.Warn("swarm_start hook halted execution", "swarm", s.Name, "message", startResult.Message)
		return buildResult("", s.Lead, false, false, startResult.Message, time.Since(start), collector.Events()), nil
	}

	currentPrompt := prompt
	var finalMsg string
	var runErr error

	for {
		if ctx.Err() != nil {
			return s.finish(collector, start, finalMsg, false, true, ""), nil
		}

		msg, err := lead.runner.Ask(ctx, currentPrompt)
		if err != nil {
			runErr = err
			break
		}
		finalMsg = msg.TextContent()

		status := "success"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		stopResult := s.hookExec.Fire(ctx, hook.Context{
			Event:          hook.EventSwarmStop,
			OriginalPrompt: prompt,
			Content:        finalMsg,
		}, "")

		if stopResult.Action == hook.Reprompt {
			currentPrompt = stopResult.Value
			continue
		}

		success := status == "success"
		return s.finish(collector, start, finalMsg, success, status == "cancelled", ""), nil
	}

	span.RecordError(runErr)
	span.SetStatus(codes.Error, runErr.Error())
	s.logger.Error("lead agent ask failed", "swarm", s.Name, "lead", s.Lead, "error", runErr)
	s.hookExec.Fire(ctx, hook.Context{Event: hook.EventSwarmStop, OriginalPrompt: prompt}, "")
	return s.finish(collector, start, finalMsg, false, false, runErr.Error()), runErr
}

// finish emits swarm_stop with the aggregate counters and builds the Result.
func (s *Swarm) finish(collector *LogCollector, start time.Time, content string, success, cancelled bool, errMsg string) Result {
	duration := time.Since(start)
	status := "success"
	if cancelled {
		status = "cancelled"
	} else if !success {
		status = "error"
	}

	interim := buildResult(content, s.Lead, success, cancelled, errMsg, duration, collector.Events())
	collector.Emit("swarm_stop", "", map[string]any{
		"status":          status,
		"duration":        duration.Seconds(),
		"total_cost":      interim.TotalCost,
		"total_tokens":    interim.TotalTokens,
		"llm_requests":    interim.LLMRequests,
		"tool_calls":      interim.ToolCallsCount,
		"agents_involved": interim.AgentsInvolved,
	})

	return buildResult(content, s.Lead, success, cancelled, errMsg, duration, collector.Events())
}
