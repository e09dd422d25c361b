// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/AutoJunjie/async-paper-retriever/internal/orchestrator"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a task previously saved with search --save",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "output the task as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	tf, err := orchestrator.ReadTaskFile(args[0])
	if err != nil {
		return err
	}

	task := types.Task{
		ID:              tf.Task.ID,
		Keyword:         tf.Task.Keyword,
		Status:          types.StatusCompleted,
		CreatedAt:       tf.Task.CreatedAt,
		TotalResults:    &tf.Summary.TotalResults,
		RelevantResults: &tf.Summary.RelevantResults,
		Results:         tf.Results,
		SearchID:        tf.Task.SearchID,
		SearchType:      tf.Task.SearchType,
		EnableLLM:       tf.Task.EnableLLM,
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	}

	formatTask(task, os.Stdout)
	return nil
}
