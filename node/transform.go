// ABOUTME: Shell-command transformer execution: JSON stdin payload, exit-code protocol
// ABOUTME: (0 replace, 1 skip, 2 halt), grounded on the hook package's shell hook runner.

package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

const defaultTransformerTimeout = 60 * time.Second

// shellTransformerPayload is the JSON object written to a shell transformer's stdin.
type shellTransformerPayload struct {
	Node           string            `json:"node"`
	Content        string            `json:"content"`
	OriginalPrompt string            `json:"original_prompt"`
	AllResults     map[string]Result `json:"all_results"`
	Dependencies   []string          `json:"dependencies"`
}

// Run executes the Transformer against ctx: an in-process Func if set,
// otherwise the ShellCmd under the exit-code protocol from spec §4.7/§6.3.
func (t *Transformer) Run(ctx context.Context, tctx TransformContext) (TransformResult, error) {
	if t.Func != nil {
		return t.Func(tctx)
	}
	return runShellTransformer(ctx, t, tctx)
}

func runShellTransformer(ctx context.Context, t *Transformer, tctx TransformContext) (TransformResult, error) {
	timeout := defaultTransformerTimeout
	if t.TimeoutSec > 0 {
		timeout = time.Duration(t.TimeoutSec) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := shellTransformerPayload{
		Node:           tctx.Node,
		Content:        tctx.Content,
		OriginalPrompt: tctx.OriginalPrompt,
		AllResults:     tctx.AllResults,
		Dependencies:   tctx.Dependencies,
	}
	stdin, err := json.Marshal(payload)
	if err != nil {
		return TransformResult{}, err
	}

	cmd := exec.CommandContext(runCtx, "/bin/bash", "-c", t.ShellCmd)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(cmd.Env, "SWARM_NODE_NAME="+tctx.Node, "PATH=/usr/bin:/bin:/usr/local/bin")

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
		return TransformResult{Halt: true}, fmt.Errorf("transformer for node %q timed out after %s", tctx.Node, timeout)
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return TransformResult{}, runErr
		}
	}

	switch exitCode {
	case 0:
		return TransformResult{Content: trimTrailingNewline(stdout.String())}, nil
	case 1:
		return TransformResult{SkipExecution: true, Content: tctx.Content}, nil
	case 2:
		return TransformResult{Halt: true, Content: trimTrailingNewline(stderr.String())}, nil
	default:
		return TransformResult{Content: tctx.Content}, nil
	}
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
