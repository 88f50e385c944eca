// Package adapter defines the notification boundary for sync runs.
//
// Adapters publish sync completion events to downstream systems (CI
// pipelines, chat hooks, build caches). The CLI owns adapter lifecycle;
// users provide configuration only.
package adapter

import "context"

// SyncCompletedEvent is the payload published when a sync finishes.
type SyncCompletedEvent struct {
	EventType  string   `json:"event_type"` // always "sync_completed"
	RunID      string   `json:"run_id"`
	Target     string   `json:"target"` // cloud, studio, debug, s3
	DryRun     bool     `json:"dry_run,omitempty"`
	Uploaded   int      `json:"uploaded"`
	Reused     int      `json:"reused"`
	Unchanged  int      `json:"unchanged"`
	Declared   int      `json:"declared"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failed_keys,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"` // ISO 8601
}

// EventType is the constant event_type value for sync completion.
const EventType = "sync_completed"

// Adapter publishes sync completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a sync completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SyncCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
