package hook

import (
	"context"
	"regexp"
	"testing"
)

func TestExecutorFireContinueWhenNoRegistrations(t *testing.T) {
	reg := NewRegistry()
	exec := NewExecutor(reg)

	result := exec.Fire(context.Background(), Context{Event: EventPreToolUse, Agent: "writer"}, "writer")
	if result.Action != Continue {
		t.Fatalf("expected Continue, got %v", result.Action)
	}
}

func TestExecutorFirePriorityOrder(t *testing.T) {
	reg := NewRegistry()
	var order []int

	reg.Register(&Registration{
		Event:    EventPreToolUse,
		Priority: 1,
		Callback: func(Context) Result { order = append(order, 1); return ContinueResult },
	})
	reg.Register(&Registration{
		Event:    EventPreToolUse,
		Priority: 10,
		Callback: func(Context) Result { order = append(order, 10); return ContinueResult },
	})

	exec := NewExecutor(reg)
	exec.Fire(context.Background(), Context{Event: EventPreToolUse}, "")

	if len(order) != 2 || order[0] != 10 || order[1] != 1 {
		t.Fatalf("expected priority-descending order [10 1], got %v", order)
	}
}

func TestExecutorFireHaltShortCircuits(t *testing.T) {
	reg := NewRegistry()
	called := false

	reg.Register(&Registration{
		Event:    EventPreToolUse,
		Priority: 10,
		Callback: func(Context) Result { return Result{Action: Halt, Message: "stop"} },
	})
	reg.Register(&Registration{
		Event:    EventPreToolUse,
		Priority: 1,
		Callback: func(Context) Result { called = true; return ContinueResult },
	})

	exec := NewExecutor(reg)
	result := exec.Fire(context.Background(), Context{Event: EventPreToolUse}, "")

	if result.Action != Halt || result.Message != "stop" {
		t.Fatalf("expected Halt(stop), got %+v", result)
	}
	if called {
		t.Fatal("lower-priority hook should not run after a Halt")
	}
}

func TestExecutorFireScopedMatcher(t *testing.T) {
	reg := NewRegistry()
	fired := false
	reg.Register(&Registration{
		Event:    EventPreToolUse,
		Scope:    "writer",
		Callback: func(Context) Result { fired = true; return ContinueResult },
	})

	exec := NewExecutor(reg)
	exec.Fire(context.Background(), Context{Event: EventPreToolUse, Agent: "reader"}, "reader")
	if fired {
		t.Fatal("hook scoped to writer should not fire for reader")
	}

	exec.Fire(context.Background(), Context{Event: EventPreToolUse, Agent: "writer"}, "writer")
	if !fired {
		t.Fatal("hook scoped to writer should fire for writer")
	}
}

func TestRegistrationMatchesRegex(t *testing.T) {
	reg := &Registration{Matcher: regexp.MustCompile(`^shell$`)}
	if !reg.Matches("", "shell") {
		t.Fatal("expected match for 'shell'")
	}
	if reg.Matches("", "shell_other") {
		t.Fatal("did not expect match for 'shell_other'")
	}
}

func TestRunShellHookExitCodes(t *testing.T) {
	ctx := context.Background()

	cont, err := runShellHook(ctx, &Registration{ShellCmd: "exit 0"}, Context{Event: EventPreToolUse})
	if err != nil || cont.Action != Continue {
		t.Fatalf("exit 0 with no stdout: expected Continue, got %+v err=%v", cont, err)
	}

	replace, err := runShellHook(ctx, &Registration{ShellCmd: "echo replaced"}, Context{Event: EventPreToolUse})
	if err != nil || replace.Action != Replace || replace.Value != "replaced" {
		t.Fatalf("exit 0 with stdout: expected Replace(replaced), got %+v err=%v", replace, err)
	}

	warn, err := runShellHook(ctx, &Registration{ShellCmd: "exit 1"}, Context{Event: EventPreToolUse})
	if err != nil || warn.Action != Continue {
		t.Fatalf("exit 1: expected Continue (warn), got %+v err=%v", warn, err)
	}

	halt, err := runShellHook(ctx, &Registration{ShellCmd: "echo bad 1>&2; exit 2"}, Context{Event: EventPreToolUse})
	if err != nil || halt.Action != Halt || halt.Message != "bad" {
		t.Fatalf("exit 2: expected Halt(bad), got %+v err=%v", halt, err)
	}
}
