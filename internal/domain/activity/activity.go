package activity

import (
	"context"
	"time"
)

// Entry is one append-only audit record of something an actor did.
type Entry struct {
	Actor      string                 `json:"actor"`
	Action     string                 `json:"action"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RecordedAt time.Time              `json:"recordedAt"`
}

// Recorder is the audit-trail boundary the core writes through.
type Recorder interface {
	Record(ctx context.Context, actor, action string, details map[string]interface{})
}
