// ABOUTME: CLI entrypoint for swarmloom: run, validate, serve-webhook, and build subcommands.
// ABOUTME: Wires the config loader to swarm.Builder/node.Orchestrator execution.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "swarmloom",
	Short: "swarmloom — multi-agent orchestration core",
	Long:  "swarmloom runs YAML-configured swarms of LLM agents: parallel tool execution, inter-agent delegation, hooks, and multi-stage node workflows.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("SWARMLOOM_LOG_LEVEL", "debug")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "swarmloom.yaml", "path to the swarm/workflow YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level diagnostic logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveWebhookCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("swarmloom %s\n", version)
		},
	}
}

func main() {
	loadDotEnvAuto()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func detectBackend(verbose bool) bool {
	keys := []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"}
	for _, k := range keys {
		if os.Getenv(k) != "" {
			if verbose {
				fmt.Fprintf(os.Stderr, "[backend] using %s\n", k)
			}
			return true
		}
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "[backend] no API keys found")
	}
	return false
}
