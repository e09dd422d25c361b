// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eventbus decouples the task orchestrator from its consumers.
//
// The bus is an explicit, instantiable object injected into both sides, not
// process-global state. Delivery is synchronous, in-process fan-out to the
// subscribers registered at publish time; a subscriber registered after an
// event fires does not receive it.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// StatusEvent announces a task status transition.
type StatusEvent struct {
	TaskID int64
	Status types.TaskStatus
}

// ResultsEvent announces a partial update to a task's results or counts.
type ResultsEvent struct {
	TaskID  int64
	Updates types.TaskPatch
}

// Bus fans events out to subscribers, keyed by event kind.
type Bus struct {
	mu          sync.RWMutex
	statusSubs  map[uuid.UUID]func(StatusEvent)
	resultsSubs map[uuid.UUID]func(ResultsEvent)
	logger      *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		statusSubs:  make(map[uuid.UUID]func(StatusEvent)),
		resultsSubs: make(map[uuid.UUID]func(ResultsEvent)),
		logger:      logger.With("component", "eventbus"),
	}
}

// SubscribeStatus registers fn for status events and returns a token for
// Unsubscribe.
func (b *Bus) SubscribeStatus(fn func(StatusEvent)) uuid.UUID {
	token := uuid.New()
	b.mu.Lock()
	b.statusSubs[token] = fn
	b.mu.Unlock()
	return token
}

// SubscribeResults registers fn for results events and returns a token for
// Unsubscribe.
func (b *Bus) SubscribeResults(fn func(ResultsEvent)) uuid.UUID {
	token := uuid.New()
	b.mu.Lock()
	b.resultsSubs[token] = fn
	b.mu.Unlock()
	return token
}

// Unsubscribe removes the subscription identified by token. Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(token uuid.UUID) {
	b.mu.Lock()
	delete(b.statusSubs, token)
	delete(b.resultsSubs, token)
	b.mu.Unlock()
}

// PublishStatus delivers ev synchronously to every current status subscriber.
func (b *Bus) PublishStatus(ev StatusEvent) {
	b.mu.RLock()
	subs := make([]func(StatusEvent), 0, len(b.statusSubs))
	for _, fn := range b.statusSubs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	b.logger.Debug("publishing status event",
		"task_id", ev.TaskID, "status", ev.Status, "subscriber_count", len(subs))
	for _, fn := range subs {
		fn(ev)
	}
}

// PublishResults delivers ev synchronously to every current results subscriber.
func (b *Bus) PublishResults(ev ResultsEvent) {
	b.mu.RLock()
	subs := make([]func(ResultsEvent), 0, len(b.resultsSubs))
	for _, fn := range b.resultsSubs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	b.logger.Debug("publishing results event",
		"task_id", ev.TaskID, "subscriber_count", len(subs))
	for _, fn := range subs {
		fn(ev)
	}
}
