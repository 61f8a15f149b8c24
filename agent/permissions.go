// ABOUTME: Glob-based allow/deny permission wrapping for path-taking tools.
// ABOUTME: Provides Permissions, PermissionDeniedError, and the resolve-then-decide algorithm.

package agent

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/2389-research/swarmloom/internal/diag"
)

// ToolPermissionRule is the allow/deny glob configuration for a single tool.
type ToolPermissionRule struct {
	AllowedPaths []string
	DeniedPaths  []string
}

// Permissions holds per-tool path rulesets for one agent and resolves paths
// relative to the agent's directory before matching.
type Permissions struct {
	baseDir string
	rules   map[string]ToolPermissionRule
	bypass  bool
	logger  hclog.Logger
}

// NewPermissions creates a Permissions evaluator rooted at baseDir. When
// bypass is true, Check always allows (mirrors AgentDefinition.BypassPermissions).
func NewPermissions(baseDir string, rules map[string]ToolPermissionRule, bypass bool) *Permissions {
	if rules == nil {
		rules = map[string]ToolPermissionRule{}
	}
	return &Permissions{baseDir: baseDir, rules: rules, bypass: bypass, logger: diag.New("permission")}
}

// PermissionDeniedError names the attempted path and the allowed globs so the
// caller can surface a ToolResult with a structured message.
type PermissionDeniedError struct {
	Tool         string
	Path         string
	AllowedPaths []string
}

func (e *PermissionDeniedError) Error() string {
	if len(e.AllowedPaths) == 0 {
		return fmt.Sprintf("permission denied: %s may not access %s", e.Tool, e.Path)
	}
	return fmt.Sprintf("permission denied: %s may not access %s (allowed: %v)", e.Tool, e.Path, e.AllowedPaths)
}

// Resolve makes path absolute relative to the agent's directory and canonicalizes it.
func (p *Permissions) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, path)
	}
	clean, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(clean), nil
}

// Check resolves candidatePath and applies the deny-then-allow decision for toolName.
// Returns the canonical path and a *PermissionDeniedError (nil on allow).
func (p *Permissions) Check(toolName, candidatePath string) (string, error) {
	canonical, err := p.Resolve(candidatePath)
	if err != nil {
		return "", err
	}
	if p.bypass {
		return canonical, nil
	}

	rule, ok := p.rules[toolName]
	if !ok {
		return canonical, nil
	}

	for _, pattern := range rule.DeniedPaths {
		if globMatch(pattern, canonical, p.baseDir) {
			p.logger.Debug("path denied", "tool", toolName, "path", canonical, "matched_deny", pattern)
			return canonical, &PermissionDeniedError{Tool: toolName, Path: canonical, AllowedPaths: rule.AllowedPaths}
		}
	}

	if len(rule.AllowedPaths) == 0 {
		return canonical, nil
	}

	for _, pattern := range rule.AllowedPaths {
		if globMatch(pattern, canonical, p.baseDir) {
			return canonical, nil
		}
	}

	p.logger.Debug("path not in allow-list", "tool", toolName, "path", canonical)
	return canonical, &PermissionDeniedError{Tool: toolName, Path: canonical, AllowedPaths: rule.AllowedPaths}
}

// FilterAllowed post-filters a list of candidate paths to those allowed under
// toolName's ruleset, used by directory-scoped tools (Grep/Glob) to filter results.
func (p *Permissions) FilterAllowed(toolName string, paths []string) []string {
	if p.bypass {
		return paths
	}
	rule, ok := p.rules[toolName]
	if !ok {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		canonical, err := p.Resolve(path)
		if err != nil {
			continue
		}
		denied := false
		for _, pattern := range rule.DeniedPaths {
			if globMatch(pattern, canonical, p.baseDir) {
				denied = true
				break
			}
		}
		if denied {
			continue
		}
		if len(rule.AllowedPaths) == 0 {
			out = append(out, path)
			continue
		}
		for _, pattern := range rule.AllowedPaths {
			if globMatch(pattern, canonical, p.baseDir) {
				out = append(out, path)
				break
			}
		}
	}
	return out
}

// globMatch matches pattern (relative to baseDir, or absolute) against an absolute path.
func globMatch(pattern, absPath, baseDir string) bool {
	if filepath.IsAbs(pattern) {
		ok, _ := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(absPath))
		return ok
	}
	rel, err := filepath.Rel(baseDir, absPath)
	if err != nil {
		return false
	}
	ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel))
	return ok
}
