// ABOUTME: System prompt assembly: environment block, tool descriptions, project docs, reminders.
// ABOUTME: Provides BuildSystemPrompt and the static reminder strings injected around turns.

package agent

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// maxProjectDocsBudget is the maximum total byte size for project documentation
// included in the system prompt. Content exceeding this budget is truncated.
const maxProjectDocsBudget = 32 * 1024

// recognizedDocFiles lists the filenames recognized as project documentation.
var recognizedDocFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	"README.md",
	".cursorrules",
}

// beforeFirstMessageReminder is injected ahead of an agent's very first user turn.
const beforeFirstMessageReminder = "<system_reminder>\n" +
	"This is the start of a new task. Use the available tools to accomplish the user's " +
	"request. Read files before editing them. Keep a todo list via todo_write for any " +
	"multi-step task.\n" +
	"</system_reminder>"

// afterFirstMessageReminder follows the first user turn with todo-list guidance.
const afterFirstMessageReminder = "<system_reminder>\n" +
	"If this task has more than one step, call todo_write now to record a plan before " +
	"taking any action.\n" +
	"</system_reminder>"

// periodicTodoReminder is injected when N or more messages have elapsed since the
// agent's last todo_write call.
const periodicTodoReminder = "<system_reminder>\n" +
	"Several messages have passed since the todo list was last updated. Call todo_write " +
	"to reflect current progress if the task is still in flight.\n" +
	"</system_reminder>"

// todoReminderInterval is N in "N messages since last TodoWrite" (spec §4.1 step 2).
const todoReminderInterval = 8

// BuildEnvironmentBlock builds the <environment> context block: working directory,
// platform, OS version, and today's date.
func BuildEnvironmentBlock(env ExecutionEnvironment, modelName string) string {
	var b strings.Builder
	b.WriteString("<environment>\n")
	b.WriteString(fmt.Sprintf("Working directory: %s\n", env.WorkingDirectory()))
	b.WriteString(fmt.Sprintf("Platform: %s\n", env.Platform()))
	b.WriteString(fmt.Sprintf("OS version: %s\n", env.OSVersion()))
	b.WriteString(fmt.Sprintf("Today's date: %s\n", time.Now().Format("2006-01-02")))
	if modelName != "" {
		b.WriteString(fmt.Sprintf("Model: %s\n", modelName))
	}
	b.WriteString("</environment>\n")
	return b.String()
}

// BuildToolDescriptions returns a formatted summary of available tools for the system prompt.
func BuildToolDescriptions(registry *ToolRegistry) string {
	if registry == nil || registry.Count() == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Available Tools\n\n")

	names := registry.Names()
	sort.Strings(names)

	for _, name := range names {
		tool := registry.Get(name)
		if tool == nil {
			continue
		}
		desc := tool.Description
		if desc == "" {
			desc = tool.Definition.Description
		}
		b.WriteString(fmt.Sprintf("- `%s`: %s\n", name, desc))
	}
	b.WriteString("\n")
	return b.String()
}

// DiscoverProjectDocs collects the recognized instruction files present in
// the agent's working directory. Parent directories are not searched.
func DiscoverProjectDocs(env ExecutionEnvironment) map[string]string {
	docs := make(map[string]string)
	workDir := env.WorkingDirectory()

	for _, docFile := range recognizedDocFiles {
		fullPath := filepath.Join(workDir, docFile)
		exists, err := env.FileExists(fullPath)
		if err != nil || !exists {
			continue
		}
		content, err := env.ReadFile(fullPath, 0, 0)
		if err != nil || content == "" {
			continue
		}
		docs[docFile] = content
	}
	return docs
}

// FilterProjectDocs assembles discovered docs in a deterministic order under a
// 32KB total byte budget, truncating the doc that crosses the boundary.
func FilterProjectDocs(docs map[string]string) []string {
	if len(docs) == 0 {
		return nil
	}

	var result []string
	totalSize := 0

	for _, key := range recognizedDocFiles {
		content, ok := docs[key]
		if !ok {
			continue
		}
		contentSize := len(content)

		if totalSize+contentSize > maxProjectDocsBudget {
			remaining := maxProjectDocsBudget - totalSize
			if remaining > 0 {
				truncated := content[:remaining] + "\n[TRUNCATED: Content exceeded 32KB budget]"
				result = append(result, truncated)
			}
			break
		}

		result = append(result, content)
		totalSize += contentSize
	}

	return result
}

// BuildSystemPrompt assembles the full system prompt for one turn: the agent's
// configured base prompt, the environment block, tool descriptions, and any
// discovered project documentation.
func BuildSystemPrompt(def *Definition, env ExecutionEnvironment, registry *ToolRegistry) string {
	var b strings.Builder
	b.WriteString(def.SystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(BuildEnvironmentBlock(env, def.Model))
	b.WriteString("\n")
	b.WriteString(BuildToolDescriptions(registry))

	docs := FilterProjectDocs(DiscoverProjectDocs(env))
	for _, doc := range docs {
		b.WriteString("\n## Project Instructions\n\n")
		b.WriteString(doc)
		b.WriteString("\n")
	}

	return b.String()
}
