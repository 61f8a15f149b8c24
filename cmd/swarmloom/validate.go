// ABOUTME: `swarmloom validate` loads and validates a config without executing
// ABOUTME: anything — checks agent references, delegation cycles, and node graph shape.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/swarmloom/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.NewLoader().LoadFile(cfgFile)
			if err != nil {
				return err
			}

			fmt.Printf("swarm: %s (lead: %s)\n", doc.SwarmName, doc.Lead)
			fmt.Printf("agents: %d\n", len(doc.Agents))
			for name := range doc.Agents {
				fmt.Printf("  - %s\n", name)
			}
			fmt.Printf("hooks: %d\n", len(doc.Hooks))
			if doc.HasWorkflow {
				fmt.Printf("workflow: %d nodes, start_node=%s\n", len(doc.Nodes), doc.StartNode)
			}
			fmt.Println("OK")
			return nil
		},
	}
}
