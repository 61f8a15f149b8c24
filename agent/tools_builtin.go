// ABOUTME: Built-in file and shell tool constructors: Read, Write, Edit, MultiEdit, Bash, Grep, Glob.
// ABOUTME: Each tool resolves paths relative to the agent's directory and is permission-gated.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389-research/swarmloom/llm"
)

// getStringArg extracts a string argument from a map, returning an error if missing or wrong type.
func getStringArg(args map[string]any, key string, required bool) (string, error) {
	val, ok := args[key]
	if !ok || val == nil {
		if required {
			return "", fmt.Errorf("missing required parameter: %s", key)
		}
		return "", nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", key, val)
	}
	return s, nil
}

// getIntArg extracts an integer argument from a map, handling JSON float64 encoding.
func getIntArg(args map[string]any, key string, defaultVal int) (int, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal, nil
	}
	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("parameter %s must be an integer: %w", key, err)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number, got %T", key, val)
	}
}

// getBoolArg extracts a boolean argument from a map.
func getBoolArg(args map[string]any, key string, defaultVal bool) (bool, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal, nil
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %s must be a boolean, got %T", key, val)
	}
	return b, nil
}

// getEditsArg extracts the edits[] array used by MultiEdit.
func getEditsArg(args map[string]any, key string) ([]map[string]any, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return nil, fmt.Errorf("missing required parameter: %s", key)
	}
	raw, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %s must be an array", key)
	}
	edits := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each entry of %s must be an object", key)
		}
		edits = append(edits, m)
	}
	return edits, nil
}

// formatLineNumbers prepends line numbers to content in "NNN | content" format.
func formatLineNumbers(content string, startLine int) string {
	lines := strings.Split(content, "\n")
	var builder strings.Builder
	for i, line := range lines {
		lineNum := startLine + i
		builder.WriteString(fmt.Sprintf("%3d | %s", lineNum, line))
		if i < len(lines)-1 {
			builder.WriteByte('\n')
		}
	}
	return builder.String()
}

// NewReadFileTool creates the Read built-in. On success it marks the canonical
// path as read in tracker, satisfying the read-before-write precondition.
func NewReadFileTool(perms *Permissions, tracker *ReadTracker) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read a file from the filesystem. Returns line-numbered content.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {"type": "string", "description": "Path to the file to read, relative to the agent directory or absolute"},
					"offset": {"type": "integer", "description": "1-based line number to start reading from (default: 0 = beginning)"},
					"limit": {"type": "integer", "description": "Maximum number of lines to read (default: 2000)"}
				},
				"required": ["file_path"]
			}`),
		},
		Description: "Read a file from the filesystem. Returns line-numbered content.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			filePath, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			canonical, permErr := perms.Check("read_file", filePath)
			if permErr != nil {
				return "", permErr
			}

			offset, err := getIntArg(args, "offset", 0)
			if err != nil {
				return "", err
			}
			limit, err := getIntArg(args, "limit", 2000)
			if err != nil {
				return "", err
			}

			content, err := env.ReadFile(canonical, offset, limit)
			if err != nil {
				return "", err
			}
			tracker.MarkRead(canonical)

			startLine := 1
			if offset > 0 {
				startLine = offset
			}
			return formatLineNumbers(content, startLine), nil
		},
	}
}

// NewWriteFileTool creates the Write built-in, enforcing read-before-write
// for files that already exist.
func NewWriteFileTool(perms *Permissions, tracker *ReadTracker) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file. Creates the file and parent directories if needed.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {"type": "string", "description": "Path to the file to write"},
					"content": {"type": "string", "description": "The full file content to write"}
				},
				"required": ["file_path", "content"]
			}`),
		},
		Description: "Write content to a file. Creates the file and parent directories if needed.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			filePath, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			content, err := getStringArg(args, "content", true)
			if err != nil {
				return "", err
			}
			canonical, permErr := perms.Check("write_file", filePath)
			if permErr != nil {
				return "", permErr
			}

			exists, err := env.FileExists(canonical)
			if err != nil {
				return "", err
			}
			if exists && !tracker.HasRead(canonical) {
				return "", fmt.Errorf("Cannot write without reading first")
			}

			if err := env.WriteFile(canonical, content); err != nil {
				return "", err
			}
			tracker.MarkRead(canonical)
			return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), filepath.Base(canonical)), nil
		},
	}
}

// NewEditFileTool creates the Edit built-in: exact string replacement with
// the same read-before-write precondition as Write.
func NewEditFileTool(perms *Permissions, tracker *ReadTracker) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "edit_file",
			Description: "Replace an exact string occurrence in a file.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {"type": "string", "description": "Path to the file to edit"},
					"old_string": {"type": "string", "description": "Exact text to find in the file"},
					"new_string": {"type": "string", "description": "Replacement text"},
					"replace_all": {"type": "boolean", "description": "Replace all occurrences (default: false)"}
				},
				"required": ["file_path", "old_string", "new_string"]
			}`),
		},
		Description: "Replace an exact string occurrence in a file.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			filePath, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			oldString, err := getStringArg(args, "old_string", true)
			if err != nil {
				return "", err
			}
			newString, err := getStringArg(args, "new_string", true)
			if err != nil {
				return "", err
			}
			replaceAll, err := getBoolArg(args, "replace_all", false)
			if err != nil {
				return "", err
			}
			canonical, permErr := perms.Check("edit_file", filePath)
			if permErr != nil {
				return "", permErr
			}

			exists, err := env.FileExists(canonical)
			if err != nil {
				return "", err
			}
			if exists && !tracker.HasRead(canonical) {
				return "", fmt.Errorf("Cannot write without reading first")
			}

			data, err := os.ReadFile(canonical)
			if err != nil {
				return "", err
			}
			content := string(data)

			newContent, replacements, err := applyStringReplace(content, oldString, newString, replaceAll)
			if err != nil {
				return "", fmt.Errorf("%w in %s", err, canonical)
			}

			if err := env.WriteFile(canonical, newContent); err != nil {
				return "", err
			}
			return fmt.Sprintf("Made %d replacement(s) in %s", replacements, filepath.Base(canonical)), nil
		},
	}
}

// applyStringReplace implements the shared exact-match replace semantics used
// by Edit and MultiEdit.
func applyStringReplace(content, oldString, newString string, replaceAll bool) (string, int, error) {
	count := strings.Count(content, oldString)
	if count == 0 {
		return "", 0, fmt.Errorf("old_string not found")
	}
	if !replaceAll && count > 1 {
		return "", 0, fmt.Errorf("old_string is not unique (found %d occurrences); provide more context or set replace_all=true", count)
	}
	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString), count, nil
	}
	return strings.Replace(content, oldString, newString, 1), 1, nil
}

// NewMultiEditFileTool creates the MultiEdit built-in: a sequence of edits
// applied in-memory and written only if every edit in the sequence succeeds.
func NewMultiEditFileTool(perms *Permissions, tracker *ReadTracker) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "multi_edit_file",
			Description: "Apply a sequence of exact string replacements to a file, all-or-nothing.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {"type": "string", "description": "Path to the file to edit"},
					"edits": {
						"type": "array",
						"description": "Ordered list of {old_string, new_string, replace_all?} edits",
						"items": {
							"type": "object",
							"properties": {
								"old_string": {"type": "string"},
								"new_string": {"type": "string"},
								"replace_all": {"type": "boolean"}
							},
							"required": ["old_string", "new_string"]
						}
					}
				},
				"required": ["file_path", "edits"]
			}`),
		},
		Description: "Apply a sequence of exact string replacements to a file, all-or-nothing.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			filePath, err := getStringArg(args, "file_path", true)
			if err != nil {
				return "", err
			}
			edits, err := getEditsArg(args, "edits")
			if err != nil {
				return "", err
			}
			if len(edits) == 0 {
				return "", fmt.Errorf("edits must contain at least one entry")
			}
			canonical, permErr := perms.Check("multi_edit_file", filePath)
			if permErr != nil {
				return "", permErr
			}

			exists, err := env.FileExists(canonical)
			if err != nil {
				return "", err
			}
			if exists && !tracker.HasRead(canonical) {
				return "", fmt.Errorf("Cannot write without reading first")
			}

			data, err := os.ReadFile(canonical)
			if err != nil {
				return "", err
			}

			working := string(data)
			total := 0
			for i, edit := range edits {
				oldString, err := getStringArg(edit, "old_string", true)
				if err != nil {
					return "", fmt.Errorf("edit %d: %w", i, err)
				}
				newString, err := getStringArg(edit, "new_string", true)
				if err != nil {
					return "", fmt.Errorf("edit %d: %w", i, err)
				}
				replaceAll, err := getBoolArg(edit, "replace_all", false)
				if err != nil {
					return "", fmt.Errorf("edit %d: %w", i, err)
				}

				updated, replacements, err := applyStringReplace(working, oldString, newString, replaceAll)
				if err != nil {
					// All-or-nothing: no write happens, `working` is discarded.
					return "", fmt.Errorf("edit %d: %w", i, err)
				}
				working = updated
				total += replacements
			}

			if err := env.WriteFile(canonical, working); err != nil {
				return "", err
			}
			return fmt.Sprintf("Made %d replacement(s) across %d edit(s) in %s", total, len(edits), filepath.Base(canonical)), nil
		},
	}
}

// NewShellTool creates the Bash built-in.
func NewShellTool() *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "shell",
			Description: "Execute a shell command. Returns stdout, stderr, and exit code.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "description": "The shell command to run"},
					"timeout_ms": {"type": "integer", "description": "Command timeout in milliseconds (default: 10000)"},
					"description": {"type": "string", "description": "Human-readable description of what this command does"}
				},
				"required": ["command"]
			}`),
		},
		Description: "Execute a shell command. Returns stdout, stderr, and exit code.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			command, err := getStringArg(args, "command", true)
			if err != nil {
				return "", err
			}
			timeoutMs, err := getIntArg(args, "timeout_ms", 10000)
			if err != nil {
				return "", err
			}

			result, err := env.ExecCommand(command, timeoutMs, "", nil)
			if err != nil {
				return "", err
			}

			if result.TimedOut {
				return "", fmt.Errorf("Error: Command timed out after %ds", timeoutMs/1000)
			}

			var output strings.Builder
			output.WriteString(fmt.Sprintf("[exit code: %d]\n", result.ExitCode))
			if result.Stdout != "" {
				output.WriteString(result.Stdout)
			}
			if result.Stderr != "" {
				if output.Len() > 0 {
					output.WriteByte('\n')
				}
				output.WriteString("[stderr]\n")
				output.WriteString(result.Stderr)
			}
			return output.String(), nil
		},
	}
}

// NewGrepTool creates the Grep built-in. Only the search root is checked
// against the permissions; matches under it are returned unfiltered.
func NewGrepTool(perms *Permissions) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "grep",
			Description: "Search file contents using regex patterns.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string", "description": "Regex pattern to search for"},
					"path": {"type": "string", "description": "Directory or file to search (required)"},
					"case_insensitive": {"type": "boolean", "description": "Case insensitive search (default: false)"},
					"output_mode": {"type": "string", "description": "Not used; results are always returned as matching lines"},
					"max_results": {"type": "integer", "description": "Maximum number of results (default: 100)"}
				},
				"required": ["pattern", "path"]
			}`),
		},
		Description: "Search file contents using regex patterns.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			pattern, err := getStringArg(args, "pattern", true)
			if err != nil {
				return "", err
			}
			path, err := getStringArg(args, "path", true)
			if err != nil {
				return "", err
			}
			if path == "" {
				return "", fmt.Errorf("path must not be empty")
			}
			canonical, permErr := perms.Check("grep", path)
			if permErr != nil {
				return "", permErr
			}

			caseInsensitive, err := getBoolArg(args, "case_insensitive", false)
			if err != nil {
				return "", err
			}
			maxResults, err := getIntArg(args, "max_results", 100)
			if err != nil {
				return "", err
			}

			result, err := env.Grep(pattern, canonical, GrepOptions{CaseInsensitive: caseInsensitive, MaxResults: maxResults})
			if err != nil {
				return "", err
			}
			return result, nil
		},
	}
}

// NewGlobTool creates the Glob built-in, post-filtering matches to allowed paths.
func NewGlobTool(perms *Permissions) *RegisteredTool {
	return &RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "glob",
			Description: "Find files matching a glob pattern.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string", "description": "Glob pattern (e.g., '**/*.ts')"},
					"path": {"type": "string", "description": "Base directory (required)"}
				},
				"required": ["pattern", "path"]
			}`),
		},
		Description: "Find files matching a glob pattern.",
		Execute: func(ctx context.Context, args map[string]any, env ExecutionEnvironment) (string, error) {
			pattern, err := getStringArg(args, "pattern", true)
			if err != nil {
				return "", err
			}
			path, err := getStringArg(args, "path", true)
			if err != nil {
				return "", err
			}
			if path == "" {
				return "", fmt.Errorf("path must not be empty")
			}
			canonical, permErr := perms.Check("glob", path)
			if permErr != nil {
				return "", permErr
			}

			matches, err := env.Glob(pattern, canonical)
			if err != nil {
				return "", err
			}
			matches = perms.FilterAllowed("glob", matches)

			if len(matches) == 0 {
				return "No files matched the pattern.", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

// RegisterBuiltinFileTools registers the permission-gated file and shell
// tools for one agent's ToolRegistry.
func RegisterBuiltinFileTools(registry *ToolRegistry, perms *Permissions, tracker *ReadTracker) {
	registry.Register(NewReadFileTool(perms, tracker))
	registry.Register(NewWriteFileTool(perms, tracker))
	registry.Register(NewEditFileTool(perms, tracker))
	registry.Register(NewMultiEditFileTool(perms, tracker))
	registry.Register(NewShellTool())
	registry.Register(NewGrepTool(perms))
	registry.Register(NewGlobTool(perms))
}
