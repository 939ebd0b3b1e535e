// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// SearchEventTask represents a recorded search that should be indexed asynchronously.
type SearchEventTask struct {
	RecordID    string    `json:"record_id"`
	UserID      string    `json:"user_id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}
