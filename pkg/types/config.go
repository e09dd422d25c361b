// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that call the backend.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-retriever/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BackendConfig holds settings for the search backend client.
type BackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the root of the backend service (e.g. "http://localhost:8000").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MaxRetries is the retry budget for rate-limited requests (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CacheConfig holds settings for the local result cache.
type CacheConfig struct {
	// Dir is the directory holding the cache database (default ".cache").
	Dir string `json:"dir" yaml:"dir"`

	// TTL is the maximum entry age before it is treated as absent (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// MaxEntries caps the number of entries in the cache namespace. A save
	// that would exceed the cap evicts the oldest half and is dropped
	// (default 200).
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// OrchestratorConfig holds settings for the task lifecycle orchestrator.
type OrchestratorConfig struct {
	// PollInterval is the fixed spacing between polling attempts (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxPollAttempts caps a polling session (default 60, ~2 minutes).
	MaxPollAttempts int `json:"max_poll_attempts" yaml:"max_poll_attempts"`

	// SettleDelay is the fixed pause in the Evaluating stage before results
	// are published (default 1s).
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// PageSize is the page size requested from the backend (default 30).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// HistoryConfig holds settings for history reconstruction.
type HistoryConfig struct {
	// Limit is the default maximum number of history records (default 20).
	Limit int `json:"limit" yaml:"limit"`
}

// Config groups all component configurations.
type Config struct {
	Backend      BackendConfig      `json:"backend" yaml:"backend"`
	Cache        CacheConfig        `json:"cache" yaml:"cache"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	History      HistoryConfig      `json:"history" yaml:"history"`
}
