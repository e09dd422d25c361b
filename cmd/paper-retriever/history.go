// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List prior searches from the backend's history feed",
	Long: `History reconstructs recent search tasks from the backend. Tasks come
back completed with their counts but without result lists; use
"history load" to lazily fetch the results of one task.`,
	RunE: runHistory,
}

var historyLoadCmd = &cobra.Command{
	Use:   "load [search-id]",
	Short: "Lazily load the results of one historical search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryLoad,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum number of history records (default from config)")
	historyCmd.Flags().Bool("json", false, "output tasks as JSON")
	historyLoadCmd.Flags().Bool("json", false, "output the task as JSON")

	historyCmd.AddCommand(historyLoadCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a := newApp()
	defer a.close()

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = a.cfg.History.Limit
	}

	tasks := a.history.Load(context.Background(), limit)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	formatTaskList(tasks, os.Stdout)
	return nil
}

func runHistoryLoad(cmd *cobra.Command, args []string) error {
	a := newApp()
	defer a.close()

	searchID := args[0]
	tasks := a.history.Load(context.Background(), a.cfg.History.Limit)
	a.orch.ImportTasks(tasks)

	for _, task := range tasks {
		if task.SearchID != searchID {
			continue
		}
		loaded, err := a.orch.LoadTaskResults(context.Background(), task)
		if err != nil {
			return fmt.Errorf("loading results: %w", err)
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(loaded)
		}
		formatTask(loaded, os.Stdout)
		return nil
	}

	return fmt.Errorf("no history record with search id %q", searchID)
}
