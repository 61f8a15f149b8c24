// ABOUTME: `swarmloom build` loads a config and prints the resolved execution
// ABOUTME: plan: delegation edges for a plain swarm, or topological node order for a workflow.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/swarmloom/config"
	"github.com/2389-research/swarmloom/node"
)

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Print the resolved execution plan without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.NewLoader().LoadFile(cfgFile)
			if err != nil {
				return err
			}

			if !doc.HasWorkflow {
				fmt.Printf("swarm %q, lead %q\n", doc.SwarmName, doc.Lead)
				for name, def := range doc.Agents {
					if len(def.DelegatesTo) == 0 {
						continue
					}
					fmt.Printf("  %s -> %v\n", name, def.DelegatesTo)
				}
				return nil
			}

			graph, err := node.NewGraph(doc.StartNode, doc.Nodes)
			if err != nil {
				return err
			}
			fmt.Printf("workflow start_node=%s\n", doc.StartNode)
			for i, name := range graph.Order() {
				def := graph.Node(name)
				fmt.Printf("  %d. %s  agents=%v  depends_on=%v\n", i+1, name, def.Agents, def.DependsOn)
			}
			return nil
		},
	}
}
