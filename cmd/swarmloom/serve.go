// ABOUTME: `swarmloom serve-webhook` runs an HTTP server that executes the configured
// ABOUTME: swarm or workflow once per POST request, grounded on the teacher's runServer shutdown pattern.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/swarmloom/config"
	"github.com/2389-research/swarmloom/llm"
	"github.com/2389-research/swarmloom/node"
	"github.com/2389-research/swarmloom/swarm"
)

type webhookRequest struct {
	Prompt string `json:"prompt"`
}

type webhookResponse struct {
	Content   string   `json:"content"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Agents    []string `json:"agents_involved,omitempty"`
	Tokens    int      `json:"total_tokens,omitempty"`
	Cost      float64  `json:"total_cost,omitempty"`
	Seconds   float64  `json:"duration_seconds"`
	NodeNames []string `json:"nodes,omitempty"`
}

func serveWebhookCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve-webhook",
		Short: "Serve an HTTP endpoint that runs the swarm/workflow once per request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !detectBackend(verbose) {
				fmt.Fprintln(os.Stderr, "warning: no LLM API key found — requests will fail")
			}

			doc, err := config.NewLoader().LoadFile(cfgFile)
			if err != nil {
				return err
			}
			client, err := llm.FromEnv()
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/run", webhookHandler(doc, client))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})

			addr := fmt.Sprintf("127.0.0.1:%d", port)
			httpServer := &http.Server{Addr: addr, Handler: mux}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "interrupted, shutting down...")
				cancel()
			}()
			go func() {
				<-ctx.Done()
				httpServer.Close()
			}()

			fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8787, "HTTP listen port")
	return cmd
}

func webhookHandler(doc *config.Document, client *llm.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if req.Prompt == "" {
			http.Error(w, "prompt is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
		defer cancel()

		resp := webhookResponse{}
		if doc.HasWorkflow {
			graph, err := node.NewGraph(doc.StartNode, doc.Nodes)
			if err != nil {
				writeWebhookError(w, err)
				return
			}
			orch := &node.Orchestrator{Defs: doc.Agents, Client: client}
			result, err := orch.Run(ctx, graph, req.Prompt)
			if err != nil {
				writeWebhookError(w, err)
				return
			}
			resp.Content = result.Final.Content
			resp.Success = true
			resp.Seconds = result.Final.Duration
			for name := range result.ByNode {
				resp.NodeNames = append(resp.NodeNames, name)
			}
		} else {
			s := swarm.New(doc.SwarmName, doc.Lead, doc.Agents, client)
			if doc.GlobalConcurrency > 0 || doc.LocalConcurrency > 0 {
				s.WithConcurrency(doc.GlobalConcurrency, doc.LocalConcurrency)
			}
			for _, reg := range doc.Hooks {
				s.WithHook(reg)
			}
			if err := s.Validate(); err != nil {
				writeWebhookError(w, err)
				return
			}
			result, err := s.Execute(ctx, req.Prompt, nil)
			if err != nil {
				writeWebhookError(w, err)
				return
			}
			resp.Content = result.Content
			resp.Success = result.Success
			resp.Error = result.Error
			resp.Agents = result.AgentsInvolved
			resp.Tokens = result.TotalTokens
			resp.Cost = result.TotalCost
			resp.Seconds = result.Duration.Seconds()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func writeWebhookError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(webhookResponse{Success: false, Error: err.Error()})
}
