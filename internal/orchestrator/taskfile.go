// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// TaskFile is the on-disk snapshot of a completed task and its results, so a
// researcher can keep a search offline and reload it without re-querying the
// backend.
type TaskFile struct {
	Task    TaskMeta       `yaml:"task"`
	Results []types.Result `yaml:"results"`
	Summary TaskSummary    `yaml:"summary"`
}

// TaskMeta stores the task parameters in a serializable form.
type TaskMeta struct {
	ID         int64            `yaml:"id"`
	Keyword    string           `yaml:"keyword"`
	SearchType types.SearchType `yaml:"search_type"`
	EnableLLM  bool             `yaml:"enable_llm"`
	SearchID   string           `yaml:"search_id,omitempty"`
	CreatedAt  time.Time        `yaml:"created_at"`
}

// TaskSummary stores result counts and the export timestamp.
type TaskSummary struct {
	TotalResults    int       `yaml:"total_results"`
	RelevantResults int       `yaml:"relevant_results"`
	ExportedAt      time.Time `yaml:"exported_at"`
}

// WriteTaskFile saves a task snapshot to a YAML file.
func WriteTaskFile(path string, task types.Task) error {
	tf := TaskFile{
		Task: TaskMeta{
			ID:         task.ID,
			Keyword:    task.Keyword,
			SearchType: task.SearchType,
			EnableLLM:  task.EnableLLM,
			SearchID:   task.SearchID,
			CreatedAt:  task.CreatedAt,
		},
		Results: task.Results,
		Summary: TaskSummary{
			ExportedAt: time.Now(),
		},
	}
	if task.TotalResults != nil {
		tf.Summary.TotalResults = *task.TotalResults
	}
	if task.RelevantResults != nil {
		tf.Summary.RelevantResults = *task.RelevantResults
	}

	data, err := yaml.Marshal(&tf)
	if err != nil {
		return fmt.Errorf("marshaling task file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadTaskFile loads a previously saved task file from disk.
func ReadTaskFile(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing task file: %w", err)
	}
	return &tf, nil
}
