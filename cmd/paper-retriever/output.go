// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// formatTask writes a completed task and its results as a readable table.
func formatTask(task types.Task, w io.Writer) {
	fmt.Fprintf(w, "Task %d  %q  (%s", task.ID, task.Keyword, task.SearchType)
	if task.EnableLLM {
		fmt.Fprint(w, ", llm")
	}
	fmt.Fprintln(w, ")")

	if task.TotalResults == nil {
		fmt.Fprintln(w, "No results (the search timed out or the backend failed).")
		return
	}
	if len(task.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-56s  %-18s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Journal")
	fmt.Fprintln(w, strings.Repeat("-", 108))

	for _, r := range task.Results {
		title := truncate(r.Title, 56)
		fmt.Fprintf(w, "%-4d  %-56s  %-18s  %-4d  %-6.2f  %s\n",
			r.ID, title, formatAuthors(r.Authors), r.Year, r.RelevanceScore, r.Journal)
	}

	fmt.Fprintf(w, "\n%d results, %d relevant\n", *task.TotalResults, *task.RelevantResults)
}

// formatTaskList writes reconstructed history tasks as a table.
func formatTaskList(tasks []types.Task, w io.Writer) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No history available.")
		return
	}

	fmt.Fprintf(w, "%-14s  %-40s  %-8s  %-7s  %s\n",
		"Task", "Keyword", "Type", "Results", "Search ID")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, task := range tasks {
		total := 0
		if task.TotalResults != nil {
			total = *task.TotalResults
		}
		fmt.Fprintf(w, "%-14d  %-40s  %-8s  %-7d  %s\n",
			task.ID, truncate(task.Keyword, 40), task.SearchType, total, task.SearchID)
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 18)
	default:
		return truncate(authors[0], 12) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
