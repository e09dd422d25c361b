// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator owns the task lifecycle: create a task, initiate the
// backend's asynchronous search, poll until the result materializes, and
// publish every state change on the event bus. It holds no UI state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/internal/cachestore"
	"github.com/AutoJunjie/async-paper-retriever/internal/eventbus"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// ErrEmptyKeyword is returned by CreateTask for a blank query; no task is
// created.
var ErrEmptyKeyword = errors.New("keyword is empty")

// ErrNoReference is returned by LoadTaskResults for a task without a backend
// reference to fetch from.
var ErrNoReference = errors.New("task has no backend reference")

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 60
	defaultSettleDelay     = 1 * time.Second
	defaultPageSize        = 30
)

// Orchestrator drives the Pending → Searching → Evaluating → Completed state
// machine for every task it owns. Per task, status transitions are monotonic
// and polling attempts strictly sequential; sessions for different tasks run
// independently.
type Orchestrator struct {
	client *backend.Client
	bus    *eventbus.Bus
	cache  *cachestore.Store
	cfg    types.OrchestratorConfig
	logger *slog.Logger

	mu     sync.Mutex
	tasks  map[int64]types.Task
	lastID int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an orchestrator to its collaborators. The cache may be nil, in
// which case every search goes to the backend.
func New(client *backend.Client, bus *eventbus.Bus, cache *cachestore.Store, cfg types.OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		client: client,
		bus:    bus,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With("component", "orchestrator"),
		tasks:  make(map[int64]types.Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels every in-flight polling session and waits for them to stop.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// CreateTask registers a new task in Pending and starts its execution
// asynchronously. It returns the task snapshot immediately. The only
// failure is a blank keyword, in which case no task is created.
func (o *Orchestrator) CreateTask(keyword string, opts types.SearchOptions) (types.Task, error) {
	if strings.TrimSpace(keyword) == "" {
		return types.Task{}, ErrEmptyKeyword
	}
	if opts.SearchType == "" {
		opts.SearchType = types.SearchKeyword
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = o.cfg.PageSize
	}

	task := types.Task{
		ID:         o.nextID(),
		Keyword:    keyword,
		Status:     types.StatusPending,
		CreatedAt:  time.Now(),
		Results:    []types.Result{},
		SearchType: opts.SearchType,
		EnableLLM:  opts.EnableLLM,
	}

	o.mu.Lock()
	o.tasks[task.ID] = task
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(o.ctx, task.ID, opts)
	}()

	return task, nil
}

// Task returns a snapshot of the task with the given id.
func (o *Orchestrator) Task(id int64) (types.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	task, ok := o.tasks[id]
	return task, ok
}

// Tasks returns snapshots of all owned tasks, newest first.
func (o *Orchestrator) Tasks() []types.Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]types.Task, 0, len(o.tasks))
	for _, task := range o.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ImportTasks seeds the task collection with externally reconstructed tasks
// (the history loader at startup). Existing ids are not overwritten.
func (o *Orchestrator) ImportTasks(tasks []types.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, task := range tasks {
		if _, ok := o.tasks[task.ID]; !ok {
			o.tasks[task.ID] = task
		}
	}
}

// LoadTaskResults lazily fetches results for a task that has none. It is
// idempotent: a task that already has results is returned unchanged. The
// input is never mutated; the caller must adopt the returned copy. On any
// fetch or conversion failure the original task is returned with the error.
func (o *Orchestrator) LoadTaskResults(ctx context.Context, task types.Task) (types.Task, error) {
	if len(task.Results) > 0 {
		return task, nil
	}
	if task.SearchID == "" {
		return task, ErrNoReference
	}

	payload, err := o.client.FetchResult(ctx, task.SearchID)
	if err != nil {
		return task, fmt.Errorf("loading results for task %d: %w", task.ID, err)
	}

	updated := task
	updated.Results = ConvertRecords(task.Keyword, payload.Results)
	total := payload.TotalCount()
	relevant := CountRelevant(payload.Results)
	updated.TotalResults = &total
	updated.RelevantResults = &relevant

	o.mu.Lock()
	if _, ok := o.tasks[task.ID]; ok {
		o.tasks[task.ID] = updated
	}
	o.mu.Unlock()

	o.bus.PublishResults(eventbus.ResultsEvent{
		TaskID: task.ID,
		Updates: types.TaskPatch{
			Results:         updated.Results,
			TotalResults:    updated.TotalResults,
			RelevantResults: updated.RelevantResults,
		},
	})

	return updated, nil
}

// run executes one task end to end: cache probe, backend initiation, polling
// session, settle delay, completion. Transport failures and the attempt
// ceiling force completion with no results.
func (o *Orchestrator) run(ctx context.Context, id int64, opts types.SearchOptions) {
	started := time.Now()
	o.setStatus(id, types.StatusSearching)

	task, ok := o.Task(id)
	if !ok {
		return
	}

	key := cachestore.Key(task.Keyword, opts.SearchType, opts.EnableLLM)
	if o.cache != nil {
		if entry, hit, err := o.cache.Load(ctx, key); err == nil && hit {
			o.logger.Debug("serving task from cache", "task_id", id, "key", key)
			o.finish(ctx, id, entry.Results, entry.Total)
			return
		} else if err != nil {
			o.logger.Warn("cache read failed", "task_id", id, "error", err)
		}
	}

	acc, err := o.client.StartSearch(ctx, backend.SearchRequest{
		Query:      task.Keyword,
		Page:       1,
		PageSize:   opts.MaxResults,
		SearchType: opts.SearchType,
		EnableLLM:  opts.EnableLLM,
	})
	if err != nil {
		o.logger.Warn("search initiation failed", "task_id", id, "error", err)
		o.forceComplete(id)
		return
	}

	o.setSearchID(id, acc.SearchID)

	payload, err := o.poll(ctx, id, acc.SearchID)
	if err != nil {
		o.logger.Warn("polling session ended without results", "task_id", id, "error", err)
		o.forceComplete(id)
		return
	}

	if o.cache != nil {
		saveErr := o.cache.Save(ctx, key, cachestore.Payload{
			Results:        payload.Results,
			Total:          payload.TotalCount(),
			RewrittenTerms: payload.RewrittenTerms,
			SearchTimeMS:   time.Since(started).Milliseconds(),
		})
		if saveErr != nil {
			// Dropped writes (quota) and transient store errors are both
			// recoverable: the result still completes from memory.
			o.logger.Warn("cache write dropped", "task_id", id, "error", saveErr)
		}
	}

	o.finish(ctx, id, payload.Results, payload.TotalCount())
}

// poll runs the bounded polling session for one backend reference. Attempts
// are strictly sequential: each one is scheduled only after the previous
// resolves. A not-ready signal continues the session silently; any other
// error ends it.
func (o *Orchestrator) poll(ctx context.Context, id int64, searchID string) (*backend.SearchPayload, error) {
	for attempt := 1; attempt <= o.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.PollInterval):
		}

		payload, err := o.client.FetchResult(ctx, searchID)
		if errors.Is(err, backend.ErrNotReady) {
			o.logger.Debug("result not ready", "task_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
	return nil, fmt.Errorf("gave up after %d polling attempts", o.cfg.MaxPollAttempts)
}

// finish models the evaluation stage and completes the task with results.
func (o *Orchestrator) finish(ctx context.Context, id int64, records []backend.ResultRecord, total int) {
	o.setStatus(id, types.StatusEvaluating)

	if o.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.cfg.SettleDelay):
		}
	}

	task, ok := o.Task(id)
	if !ok {
		return
	}

	results := ConvertRecords(task.Keyword, records)
	relevant := CountRelevant(records)

	o.mu.Lock()
	task = o.tasks[id]
	task.Results = results
	task.TotalResults = &total
	task.RelevantResults = &relevant
	o.tasks[id] = task
	o.mu.Unlock()

	o.bus.PublishResults(eventbus.ResultsEvent{
		TaskID: id,
		Updates: types.TaskPatch{
			Results:         results,
			TotalResults:    &total,
			RelevantResults: &relevant,
			SearchID:        task.SearchID,
		},
	})
	o.setStatus(id, types.StatusCompleted)
}

// forceComplete terminates a task with no results after a timeout or backend
// failure. Counts stay nil, which distinguishes this outcome from a genuine
// empty search (zero counts).
func (o *Orchestrator) forceComplete(id int64) {
	o.setStatus(id, types.StatusCompleted)
}

// setStatus advances a task's status monotonically and publishes the change.
// Backward transitions are ignored.
func (o *Orchestrator) setStatus(id int64, status types.TaskStatus) {
	o.mu.Lock()
	task, ok := o.tasks[id]
	if !ok || !task.Status.Before(status) {
		o.mu.Unlock()
		return
	}
	task.Status = status
	o.tasks[id] = task
	o.mu.Unlock()

	o.bus.PublishStatus(eventbus.StatusEvent{TaskID: id, Status: status})
}

// setSearchID records the backend reference and publishes it as a patch.
func (o *Orchestrator) setSearchID(id int64, searchID string) {
	o.mu.Lock()
	task, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	task.SearchID = searchID
	o.tasks[id] = task
	o.mu.Unlock()

	o.bus.PublishResults(eventbus.ResultsEvent{
		TaskID:  id,
		Updates: types.TaskPatch{SearchID: searchID},
	})
}

// nextID returns a time-derived id that is strictly monotonic within the
// process, so two tasks created in the same millisecond stay distinct.
func (o *Orchestrator) nextID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := time.Now().UnixMilli()
	if id <= o.lastID {
		id = o.lastID + 1
	}
	o.lastID = id
	return id
}
