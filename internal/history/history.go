// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history reconstructs prior search tasks from the backend's history
// feed. Reconstruction is bounded and non-eager: tasks come back Completed
// with their counts but no result lists, keeping the backend reference so
// the orchestrator can load results lazily when a task is selected.
package history

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// idWidth bounds the digits kept from a backend identifier, matching the
// width of a millisecond timestamp so derived ids stay in the same range as
// locally generated ones.
const idWidth = 13

// Loader fetches and converts history records.
type Loader struct {
	client *backend.Client
	logger *slog.Logger

	// now is injected by tests to pin the fallback id.
	now func() time.Time
}

// NewLoader builds a Loader over the backend client.
func NewLoader(client *backend.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		client: client,
		logger: logger.With("component", "history"),
		now:    time.Now,
	}
}

// Load returns up to limit reconstructed tasks, newest first as the feed
// orders them. Any fetch or parse failure yields an empty list rather than a
// partial one; the caller treats that as "no history available".
func (l *Loader) Load(ctx context.Context, limit int) []types.Task {
	if limit <= 0 {
		limit = 20
	}

	records, err := l.client.History(ctx, limit)
	if err != nil {
		l.logger.Warn("history fetch failed, treating as empty", "error", err)
		return []types.Task{}
	}
	if len(records) > limit {
		records = records[:limit]
	}

	tasks := make([]types.Task, 0, len(records))
	for _, rec := range records {
		total := rec.TotalResults
		relevant := rec.ResultsCount

		task := types.Task{
			ID:              l.localID(rec.SearchID),
			Keyword:         rec.Query,
			Status:          types.StatusCompleted,
			CreatedAt:       time.Unix(rec.CreatedAt, 0),
			TotalResults:    &total,
			RelevantResults: &relevant,
			Results:         []types.Result{},
			SearchID:        rec.SearchID,
			SearchType:      rec.SearchType,
			EnableLLM:       rec.EnableLLM,
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// localID derives a stable numeric task id from a backend identifier by
// keeping its digit characters truncated to idWidth. An identifier with no
// digits falls back to the current time.
func (l *Loader) localID(searchID string) int64 {
	digits := make([]byte, 0, idWidth)
	for i := 0; i < len(searchID) && len(digits) < idWidth; i++ {
		if searchID[i] >= '0' && searchID[i] <= '9' {
			digits = append(digits, searchID[i])
		}
	}
	if len(digits) == 0 {
		return l.now().UnixMilli()
	}

	id, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return l.now().UnixMilli()
	}
	return id
}
