// ABOUTME: Dispatches matching hooks in priority order and executes shell-command hook callbacks.
// ABOUTME: Shell hooks run with a JSON stdin payload and the exit-code protocol from spec §4.3.

package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// defaultShellHookTimeout is used when a Registration does not set TimeoutSecs.
const defaultShellHookTimeout = 60 * time.Second

// Executor dispatches hook events against a frozen Registry.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an Executor bound to registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Fire runs every registration bound to hctx.Event and matching scope, in
// priority order. The first Halt or Reprompt short-circuits and is returned
// immediately. A Replace result updates hctx.Content for subsequent hooks and
// is returned as the final result unless a later hook further replaces or halts it.
func (e *Executor) Fire(ctx context.Context, hctx Context, scope string) Result {
	final := ContinueResult
	target := hctx.Content
	if target == "" {
		target = hctx.Agent
	}

	for _, reg := range e.registry.For(hctx.Event) {
		if !reg.Matches(scope, target) {
			continue
		}

		var result Result
		var err error
		if reg.Callback != nil {
			result = reg.Callback(hctx)
		} else {
			result, err = runShellHook(ctx, reg, hctx)
			if err != nil {
				result = Result{Action: Halt, Message: fmt.Sprintf("hook execution failed: %v", err)}
			}
		}

		switch result.Action {
		case Halt, Reprompt:
			return result
		case Replace:
			hctx.Content = result.Value
			final = result
		}
	}

	return final
}

// shellHookPayload is the JSON object written to a shell hook's stdin.
type shellHookPayload struct {
	Event          string            `json:"event"`
	Agent          string            `json:"agent,omitempty"`
	Node           string            `json:"node,omitempty"`
	OriginalPrompt string            `json:"original_prompt,omitempty"`
	Content        string            `json:"content,omitempty"`
	AllResults     map[string]string `json:"all_results,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
}

// runShellHook executes reg.ShellCmd, feeding hctx as JSON on stdin and
// applying the exit-code protocol: 0 = continue (stdout replaces the value
// for replace-capable events), 1 = warn & continue, 2 = halt with stderr as message.
func runShellHook(ctx context.Context, reg *Registration, hctx Context) (Result, error) {
	timeout := defaultShellHookTimeout
	if reg.TimeoutSecs > 0 {
		timeout = time.Duration(reg.TimeoutSecs) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := shellHookPayload{
		Event:          string(hctx.Event),
		Agent:          hctx.Agent,
		Node:           hctx.Node,
		OriginalPrompt: hctx.OriginalPrompt,
		Content:        hctx.Content,
		AllResults:     hctx.AllResults,
		Dependencies:   hctx.Dependencies,
	}
	stdin, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(runCtx, "/bin/bash", "-c", reg.ShellCmd)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		if cmd.Process != nil {
			if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
			}
		}
		return Result{Action: Halt, Message: fmt.Sprintf("hook %q timed out after %s", reg.ShellCmd, timeout)}, nil
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, runErr
		}
	}

	switch exitCode {
	case 0:
		out := stdout.String()
		if out == "" {
			return ContinueResult, nil
		}
		return Result{Action: Replace, Value: trimTrailingNewline(out)}, nil
	case 2:
		return Result{Action: Halt, Message: trimTrailingNewline(stderr.String())}, nil
	default:
		// exit 1 (or any other non-zero): warn & continue.
		return ContinueResult, nil
	}
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
