package model

import (
	"encoding/json"
	"sync"
)

// JobStatus state of one unit of work inside a streamed query
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusDone    JobStatus = "done"
	StatusError   JobStatus = "error"
)

// JobState outcome of one sequence in a batch identification
type JobState struct {
	Status JobStatus `json:"status"`
	Count  int       `json:"count,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// JobMap concurrency-safe job states keyed by job label
type JobMap struct {
	m sync.Map
}

// NewJobMap creates an empty JobMap
func NewJobMap() *JobMap {
	return &JobMap{}
}

// Set stores a job state
func (j *JobMap) Set(label string, state *JobState) {
	j.m.Store(label, state)
}

// Get loads a job state, nil if unknown
func (j *JobMap) Get(label string) *JobState {
	v, ok := j.m.Load(label)
	if !ok {
		return nil
	}
	return v.(*JobState)
}

// CountDone counts finished jobs, failed ones included
func (j *JobMap) CountDone() int {
	count := 0
	j.m.Range(func(_, v any) bool {
		if state := v.(*JobState); state.Status == StatusDone || state.Status == StatusError {
			count++
		}
		return true
	})
	return count
}

// Len counts all jobs
func (j *JobMap) Len() int {
	n := 0
	j.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// MarshalJSON implements json.Marshaler
func (j *JobMap) MarshalJSON() ([]byte, error) {
	m := make(map[string]*JobState)
	j.m.Range(func(k, v any) bool {
		m[k.(string)] = v.(*JobState)
		return true
	})
	return json.Marshal(m)
}

// QueryState is the full structure emitted on every SSE event
type QueryState struct {
	Status        string                `json:"status"` // "querying" | "streaming" | "completed" | "error"
	Mode          QueryMode             `json:"query_mode,omitempty"`
	Query         string                `json:"query,omitempty"`
	Overall       int                   `json:"overall"` // 0-100
	CurrentAction string                `json:"current_action"`
	Format        Format                `json:"format,omitempty"`
	Total         int                   `json:"total"`
	Sent          int                   `json:"sent"`
	Records       []Record              `json:"records,omitempty"` // batch carried by this event only
	ArchiveKey    string                `json:"archive_key,omitempty"`
	Jobs          *JobMap               `json:"jobs,omitempty"`
	Warnings      []MissingFieldWarning `json:"warnings,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// NewQueryState creates the initial state
func NewQueryState() *QueryState {
	return &QueryState{
		Status:        "querying",
		CurrentAction: "Initializing...",
	}
}
