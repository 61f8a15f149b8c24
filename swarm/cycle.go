// ABOUTME: DFS-based cycle detection over the delegates_to graph, shared by
// ABOUTME: Swarm.Validate and the config loader (spec §4.8: "delegation cycle check (DFS)").

package swarm

import (
	"fmt"
	"strings"

	"github.com/2389-research/swarmloom/agent"
)

// visitState tracks a node's position in the DFS recursion stack, so a back
// edge (gray -> gray) is distinguished from a cross edge (gray -> black).
type visitState int

const (
	white visitState = iota
	gray
	black
)

// DetectDelegationCycle runs a depth-first search over the delegates_to
// edges in defs and returns an error naming the cycle if one exists.
func DetectDelegationCycle(defs map[string]*agent.Definition) error {
	state := make(map[string]visitState, len(defs))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case black:
			return nil
		case gray:
			path = append(path, name)
			return fmt.Errorf("delegation cycle detected: %s", strings.Join(path, " -> "))
		}

		state[name] = gray
		path = append(path, name)

		def, ok := defs[name]
		if ok {
			for _, target := range def.DelegatesTo {
				if err := visit(target); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		state[name] = black
		return nil
	}

	for name := range defs {
		if state[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
