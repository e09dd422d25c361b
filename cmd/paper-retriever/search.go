// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AutoJunjie/async-paper-retriever/internal/eventbus"
	"github.com/AutoJunjie/async-paper-retriever/internal/orchestrator"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Submit an asynchronous search and wait for its results",
	Long: `Search submits a keyword to the backend, follows the task through its
lifecycle, and prints the results once the backend materializes them. A
search that was completed within the last 24 hours is served from the local
cache without contacting the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("type", "keyword", "search type: keyword, vector, or hybrid")
	searchCmd.Flags().Int("max-results", 30, "maximum number of results to request")
	searchCmd.Flags().Bool("llm", false, "enable LLM relevance evaluation")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the completed task to a YAML file")

	rootCmd.AddCommand(searchCmd)
}

func parseSearchType(s string) (types.SearchType, error) {
	switch types.SearchType(s) {
	case types.SearchKeyword, types.SearchVector, types.SearchHybrid:
		return types.SearchType(s), nil
	}
	return "", fmt.Errorf("unknown search type %q: use keyword, vector, or hybrid", s)
}

func runSearch(cmd *cobra.Command, args []string) error {
	searchType, err := parseSearchType(mustString(cmd, "type"))
	if err != nil {
		return err
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	enableLLM, _ := cmd.Flags().GetBool("llm")

	a := newApp()
	defer a.close()

	done := make(chan int64, 1)
	a.bus.SubscribeStatus(func(ev eventbus.StatusEvent) {
		fmt.Fprintf(os.Stderr, "task %d: %s\n", ev.TaskID, ev.Status)
		if ev.Status.Terminal() {
			done <- ev.TaskID
		}
	})

	task, err := a.orch.CreateTask(args[0], types.SearchOptions{
		SearchType: searchType,
		MaxResults: maxResults,
		EnableLLM:  enableLLM,
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-time.After(waitCeiling(a.cfg.Orchestrator)):
		return fmt.Errorf("task %d did not finish in time", task.ID)
	}

	final, ok := a.orch.Task(task.ID)
	if !ok {
		return fmt.Errorf("task %d disappeared", task.ID)
	}

	if path := mustString(cmd, "save"); path != "" {
		if err := orchestrator.WriteTaskFile(path, final); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved task to %s\n", path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	}

	formatTask(final, os.Stdout)
	return nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
