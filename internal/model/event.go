package model

import "time"

// RefreshEvent asks the embedding worker to re-embed documents of a collection.
type RefreshEvent struct {
	TraceID     string    `json:"trace_id,omitempty"`
	Collection  string    `json:"collection"`
	IDs         []string  `json:"ids"`
	RequestedAt time.Time `json:"requested_at"`
}
