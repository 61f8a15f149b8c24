// ABOUTME: Built-in tool constructors for swarm-shared state: TodoWrite, Scratchpad*, Think.
// ABOUTME: These tools have no path arguments and are never permission-wrapped.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2389-research/swarmloom/llm"
)

// NewTodoWriteTool creates the TodoWrite built-in for a specific agent's
// partition of store. onWrite is invoked after a successful write so the
// caller (the agent runner) can reset its "messages since last TodoWrite" counter.
func NewTodoWriteTool(agentName string, store *TodoStore, onWrite func()) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "todo_write",
			Description: "Replace the current todo list for this agent.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"items": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"content": {"type": "string"},
								"status": {"type": "string", "enum": ["pending", "in_progress", "completed"]},
								"activeForm": {"type": "string"}
							},
							"required": ["content", "status", "activeForm"]
						}
					}
				},
				"required": ["items"]
			}`),
		},
		Description: "Replace the current todo list for this agent.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			raw, err := getEditsArg(args, "items")
			if err != nil {
				return "", err
			}
			items := make([]TodoItem, 0, len(raw))
			for i, entry := range raw {
				content, err := getStringArg(entry, "content", true)
				if err != nil {
					return "", fmt.Errorf("item %d: %w", i, err)
				}
				status, err := getStringArg(entry, "status", true)
				if err != nil {
					return "", fmt.Errorf("item %d: %w", i, err)
				}
				activeForm, err := getStringArg(entry, "activeForm", true)
				if err != nil {
					return "", fmt.Errorf("item %d: %w", i, err)
				}
				switch TodoStatus(status) {
				case TodoPending, TodoInProgress, TodoCompleted:
				default:
					return "", fmt.Errorf("item %d: invalid status %q", i, status)
				}
				items = append(items, TodoItem{Content: content, Status: TodoStatus(status), ActiveForm: activeForm})
			}

			store.Set(agentName, items)
			if onWrite != nil {
				onWrite()
			}
			return fmt.Sprintf("Updated todo list (%d item(s))", len(items)), nil
		},
	}
}

// NewScratchpadWriteTool creates the ScratchpadWrite built-in.
func NewScratchpadWriteTool(pad *Scratchpad) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "scratchpad_write",
			Description: "Write an entry to the swarm-shared scratchpad.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {"type": "string", "description": "Hierarchical key, e.g. 'plan/outline'"},
					"content": {"type": "string"},
					"title": {"type": "string"}
				},
				"required": ["file_path", "content"]
			}`),
		},
		Description: "Write an entry to the swarm-shared scratchpad.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			path, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			content, err := getStringArg(args, "content", true)
			if err != nil {
				return "", err
			}
			title, _ := getStringArg(args, "title", false)

			if err := pad.Write(path, title, content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d bytes to scratchpad entry %q", len(content), path), nil
		},
	}
}

// NewScratchpadReadTool creates the ScratchpadRead built-in.
func NewScratchpadReadTool(pad *Scratchpad) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "scratchpad_read",
			Description: "Read an entry from the swarm-shared scratchpad.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {"file_path": {"type": "string"}},
				"required": ["file_path"]
			}`),
		},
		Description: "Read an entry from the swarm-shared scratchpad.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			path, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			entry, err := pad.Read(path)
			if err != nil {
				return "", err
			}
			if entry.Title != "" {
				return fmt.Sprintf("# %s\n\n%s", entry.Title, entry.Content), nil
			}
			return entry.Content, nil
		},
	}
}

// NewScratchpadListTool creates the ScratchpadList built-in.
func NewScratchpadListTool(pad *Scratchpad) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "scratchpad_list",
			Description: "List entries in the swarm-shared scratchpad, optionally filtered by prefix.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {"prefix": {"type": "string"}}
			}`),
		},
		Description: "List entries in the swarm-shared scratchpad, optionally filtered by prefix.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			prefix, _ := getStringArg(args, "prefix", false)
			entries := pad.List(prefix)
			if len(entries) == 0 {
				return "No scratchpad entries.", nil
			}
			var b strings.Builder
			for _, e := range entries {
				if e.Title != "" {
					fmt.Fprintf(&b, "%s — %s (%d bytes)\n", e.Path, e.Title, len(e.Content))
				} else {
					fmt.Fprintf(&b, "%s (%d bytes)\n", e.Path, len(e.Content))
				}
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// NewThinkTool creates the Think no-op built-in: it exists purely so the
// model can externalize reasoning as a tool call rather than free text.
func NewThinkTool() *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "think",
			Description: "Externalize a reasoning step. Has no effect on state.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {"thought": {"type": "string"}},
				"required": ["thought"]
			}`),
		},
		Description: "Externalize a reasoning step. Has no effect on state.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			if _, err := getStringArg(args, "thought", true); err != nil {
				return "", err
			}
			return "Noted.", nil
		},
	}
}

// RegisterSharedStateTools registers TodoWrite, Scratchpad*, and Think for one agent.
func RegisterSharedStateTools(registry *ToolRegistry, agentName string, todos *TodoStore, pad *Scratchpad, onTodoWrite func()) {
	registry.Register(NewTodoWriteTool(agentName, todos, onTodoWrite))
	registry.Register(NewScratchpadWriteTool(pad))
	registry.Register(NewScratchpadReadTool(pad))
	registry.Register(NewScratchpadListTool(pad))
	registry.Register(NewThinkTool())
}
