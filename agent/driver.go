// ABOUTME: LLMDriver is the capability boundary agent.Runner depends on instead
// ABOUTME: of a concrete llm.Client, mirroring the ToolSource trait at the tool boundary.

package agent

import (
	"context"

	"github.com/2389-research/swarmloom/llm"
)

// LLMDriver is satisfied by anything that can turn a Request into a Response.
// *llm.Client implements it structurally; a test double or a single-provider
// adapter wired in directly (skipping the client's provider registry) can
// stand in for it without the rest of the package knowing the difference.
type LLMDriver interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

var _ LLMDriver = (*llm.Client)(nil)
