// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

func historyServer(t *testing.T, records []backend.HistoryRecord) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/history", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"history": records, "count": len(records)})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func loaderFor(ts *httptest.Server) *Loader {
	c := backend.New(types.BackendConfig{BaseURL: ts.URL})
	c.HTTPClient = ts.Client()
	return NewLoader(c, nil)
}

func TestLoad_ReconstructsTasks(t *testing.T) {
	created := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	ts := historyServer(t, []backend.HistoryRecord{
		{
			SearchID:     "search-20260210-001",
			Query:        "diabetes",
			SearchType:   types.SearchHybrid,
			EnableLLM:    true,
			TotalResults: 12,
			ResultsCount: 12,
			CreatedAt:    created.Unix(),
		},
	})

	tasks := loaderFor(ts).Load(context.Background(), 10)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, types.StatusCompleted, task.Status)
	assert.Equal(t, "diabetes", task.Keyword)
	assert.Equal(t, "search-20260210-001", task.SearchID)
	assert.Equal(t, types.SearchHybrid, task.SearchType)
	assert.True(t, task.EnableLLM)
	require.NotNil(t, task.TotalResults)
	assert.Equal(t, 12, *task.TotalResults)
	assert.Empty(t, task.Results)
	assert.Equal(t, created.Unix(), task.CreatedAt.Unix())
}

func TestLoad_NeverExceedsLimit(t *testing.T) {
	var records []backend.HistoryRecord
	for i := 0; i < 10; i++ {
		records = append(records, backend.HistoryRecord{SearchID: "id", Query: "q"})
	}
	ts := historyServer(t, records)

	tasks := loaderFor(ts).Load(context.Background(), 3)
	assert.Len(t, tasks, 3)
}

func TestLoad_EveryTaskCompletedAndEmpty(t *testing.T) {
	ts := historyServer(t, []backend.HistoryRecord{
		{SearchID: "a1", Query: "x", TotalResults: 5},
		{SearchID: "b2", Query: "y", TotalResults: 0},
	})

	for _, task := range loaderFor(ts).Load(context.Background(), 10) {
		assert.Equal(t, types.StatusCompleted, task.Status)
		assert.Empty(t, task.Results)
	}
}

func TestLoad_FailureYieldsEmptyList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	tasks := loaderFor(ts).Load(context.Background(), 10)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestLoad_MalformedFeedYieldsEmptyList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	assert.Empty(t, loaderFor(ts).Load(context.Background(), 10))
}

func TestLocalID_FromUUIDDigits(t *testing.T) {
	l := NewLoader(nil, nil)

	// Digits of the UUID, truncated to 13: "5508400294147...".
	got := l.localID("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, int64(5508400294147), got)

	// Deterministic across calls.
	assert.Equal(t, got, l.localID("550e8400-e29b-41d4-a716-446655440000"))
}

func TestLocalID_ShortIDs(t *testing.T) {
	l := NewLoader(nil, nil)
	assert.Equal(t, int64(42), l.localID("search-42"))
}

func TestLocalID_NoDigitsFallsBackToClock(t *testing.T) {
	l := NewLoader(nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	assert.Equal(t, fixed.UnixMilli(), l.localID("no-digits-here"))
}
