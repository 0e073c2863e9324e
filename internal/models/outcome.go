package models

import "time"

// SyncStatus is the final state of one reconciled event.
type SyncStatus string

const (
	StatusCreated SyncStatus = "created"
	StatusUpdated SyncStatus = "updated"
	StatusMoved   SyncStatus = "moved"
	StatusDeleted SyncStatus = "deleted"
	StatusIgnored SyncStatus = "ignored"
	StatusFailed  SyncStatus = "failed"
	// StatusPartial means the registry changed but a later step failed.
	StatusPartial SyncStatus = "partial"
)

// SyncOutcome records what happened for a single FileEvent.
type SyncOutcome struct {
	ID         int64      `json:"id,omitempty"`
	EventHash  string     `json:"event_hash"`
	Kind       EventKind  `json:"kind"`
	SrcPath    string     `json:"src_path"`
	DestPath   string     `json:"dest_path,omitempty"`
	Shortcode  string     `json:"shortcode,omitempty"`
	Status     SyncStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Duration is the wall time spent reconciling the event.
func (o SyncOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Failed reports whether any step failed.
func (o SyncOutcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusPartial
}
