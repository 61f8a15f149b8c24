// ABOUTME: `swarmloom run` loads a config, builds either a plain swarm or a node
// ABOUTME: workflow, and executes it once against a prompt taken from args or stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/swarmloom/config"
	"github.com/2389-research/swarmloom/llm"
	"github.com/2389-research/swarmloom/node"
	"github.com/2389-research/swarmloom/swarm"
)

func runCmd() *cobra.Command {
	var jsonLog bool

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the configured swarm or workflow once against a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := resolvePrompt(args)
			if err != nil {
				return err
			}

			if !detectBackend(verbose) {
				return fmt.Errorf("no LLM API key found; set one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY")
			}

			doc, err := config.NewLoader().LoadFile(cfgFile)
			if err != nil {
				return err
			}

			client, err := llm.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "interrupted, shutting down...")
				cancel()
			}()

			subscriber := swarm.Subscriber(func(e swarm.LogEvent) {
				if !jsonLog {
					return
				}
				if line, err := json.Marshal(e); err == nil {
					fmt.Fprintln(os.Stderr, string(line))
				}
			})

			if doc.HasWorkflow {
				return runWorkflow(ctx, doc, client, prompt, subscriber)
			}
			return runSwarm(ctx, doc, client, prompt, subscriber)
		},
	}

	cmd.Flags().BoolVar(&jsonLog, "json-logs", false, "emit one NDJSON log event per line to stderr")
	return cmd
}

func runSwarm(ctx context.Context, doc *config.Document, client *llm.Client, prompt string, sub swarm.Subscriber) error {
	s := swarm.New(doc.SwarmName, doc.Lead, doc.Agents, client)
	if doc.GlobalConcurrency > 0 || doc.LocalConcurrency > 0 {
		s.WithConcurrency(doc.GlobalConcurrency, doc.LocalConcurrency)
	}
	for _, reg := range doc.Hooks {
		s.WithHook(reg)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	result, err := s.Execute(ctx, prompt, sub)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("swarm run failed: %s", result.Error)
	}

	fmt.Println(result.Content)
	fmt.Fprintf(os.Stderr, "agents: %v  tokens: %d  cost: $%.4f  duration: %s\n",
		result.AgentsInvolved, result.TotalTokens, result.TotalCost, result.Duration)
	return nil
}

func runWorkflow(ctx context.Context, doc *config.Document, client *llm.Client, prompt string, sub swarm.Subscriber) error {
	graph, err := node.NewGraph(doc.StartNode, doc.Nodes)
	if err != nil {
		return err
	}

	orch := &node.Orchestrator{Defs: doc.Agents, Client: client, Subscriber: sub}
	result, err := orch.Run(ctx, graph, prompt)
	if err != nil {
		return err
	}

	fmt.Println(result.Final.Content)
	for name, res := range result.ByNode {
		fmt.Fprintf(os.Stderr, "node %s: skipped=%v duration=%.2fs\n", name, res.Skipped, res.Duration)
	}
	return nil
}

// resolvePrompt takes the prompt from the first positional argument, or
// reads it from stdin when none is given and stdin is not a terminal.
func resolvePrompt(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", fmt.Errorf("reading prompt from stdin: %w", err)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("no prompt given: pass one as an argument or pipe it on stdin")
}
