// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-retriever client:
// the task lifecycle model, retrieved results, and per-component configuration.
package types

import "time"

// TaskStatus is one stage in a task's lifecycle. Transitions are monotonic:
// Pending → Searching → Evaluating → Completed, with no backward steps.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusSearching  TaskStatus = "searching"
	StatusEvaluating TaskStatus = "evaluating"
	StatusCompleted  TaskStatus = "completed"
)

// rank orders statuses for monotonicity checks.
var statusRank = map[TaskStatus]int{
	StatusPending:    0,
	StatusSearching:  1,
	StatusEvaluating: 2,
	StatusCompleted:  3,
}

// Before reports whether s precedes other in the lifecycle ordering.
func (s TaskStatus) Before(other TaskStatus) bool {
	return statusRank[s] < statusRank[other]
}

// Terminal reports whether the status is the end of the lifecycle.
func (s TaskStatus) Terminal() bool { return s == StatusCompleted }

// SearchType selects the backend retrieval strategy.
type SearchType string

const (
	SearchKeyword SearchType = "keyword"
	SearchVector  SearchType = "vector"
	SearchHybrid  SearchType = "hybrid"
)

// SearchOptions are the caller-supplied knobs for a new task.
type SearchOptions struct {
	SearchType SearchType
	MaxResults int
	EnableLLM  bool
}

// Result is one retrieved document, converted from a raw backend record.
type Result struct {
	// ID is the 1-based position of the result in its task's result list.
	ID int `json:"id" yaml:"id"`

	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Journal string   `json:"journal" yaml:"journal"`
	Year    int      `json:"year" yaml:"year"`

	// RelevanceScore is a value between 0.0 and 1.0.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	Abstract string `json:"abstract" yaml:"abstract"`

	// AIReasoning is the backend's relevance rationale, or one synthesized
	// from the score when the backend supplied none.
	AIReasoning string `json:"ai_reasoning" yaml:"ai_reasoning"`
}

// Task is the unit of work tracked end-to-end: one user search request and
// everything learned about it so far.
type Task struct {
	// ID is a locally generated, time-derived unique identifier.
	ID int64 `json:"id" yaml:"id"`

	// Keyword is the original query string; immutable after creation.
	Keyword string `json:"keyword" yaml:"keyword"`

	Status    TaskStatus `json:"status" yaml:"status"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`

	// TotalResults and RelevantResults stay nil until the task completes
	// with a materialized payload. A completed task with nil counts timed
	// out or hit a backend failure; a genuine empty search carries zeros.
	TotalResults    *int `json:"total_results,omitempty" yaml:"total_results,omitempty"`
	RelevantResults *int `json:"relevant_results,omitempty" yaml:"relevant_results,omitempty"`

	// Results is empty until loaded, either by the polling session or by a
	// later lazy load through the backend reference.
	Results []Result `json:"results,omitempty" yaml:"results,omitempty"`

	// SearchID is the opaque backend-assigned reference used to re-fetch
	// results later. It is a lookup key into the backend's own store, not
	// an ownership relation, and is empty until the backend accepts the
	// request.
	SearchID string `json:"search_id,omitempty" yaml:"search_id,omitempty"`

	// SearchType and EnableLLM record the options the task was created
	// with; together with Keyword they key the local result cache.
	SearchType SearchType `json:"search_type" yaml:"search_type"`
	EnableLLM  bool       `json:"enable_llm" yaml:"enable_llm"`
}

// TaskPatch is a partial update to a task, published on the event bus when
// results or counts change. Nil fields mean "unchanged".
type TaskPatch struct {
	Results         []Result `json:"results,omitempty"`
	TotalResults    *int     `json:"total_results,omitempty"`
	RelevantResults *int     `json:"relevant_results,omitempty"`
	SearchID        string   `json:"search_id,omitempty"`
}
