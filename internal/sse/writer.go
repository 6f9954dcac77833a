package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bold-client-go/internal/model"
)

// HeartbeatInterval is how often an idle stream sends a keep-alive event
var HeartbeatInterval = 15 * time.Second

// Writer streams model.QueryState snapshots as server-sent events
type Writer struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	mu        sync.Mutex
	state     *model.QueryState
	stopHeart chan struct{}
	stopOnce  sync.Once
}

func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	writer := &Writer{
		w:         w,
		flusher:   flusher,
		state:     model.NewQueryState(),
		stopHeart: make(chan struct{}),
	}

	go writer.heartbeat()

	return writer, nil
}

// heartbeat keeps proxies from closing an idle connection
func (s *Writer) heartbeat() {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			heartbeat := map[string]any{
				"status":         "heartbeat",
				"overall":        s.state.Overall,
				"current_action": s.state.CurrentAction,
			}
			data, _ := json.Marshal(heartbeat)
			fmt.Fprintf(s.w, "data: %s\n\n", data)
			s.flusher.Flush()
			s.mu.Unlock()
		case <-s.stopHeart:
			return
		}
	}
}

// StopHeartbeat stops the keep-alive goroutine. Safe to call more than once.
func (s *Writer) StopHeartbeat() {
	s.stopOnce.Do(func() { close(s.stopHeart) })
}

func (s *Writer) send() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w, "data: %s\n\n", data)
	if err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// SetQuery announces the query being run
func (s *Writer) SetQuery(mode model.QueryMode, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = mode
	s.state.Query = summary
	return s.send()
}

// SetAction updates the action label and progress. Progress never goes down.
func (s *Writer) SetAction(progress int, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raise(progress)
	s.state.CurrentAction = action
	return s.send()
}

// InitJobs registers the jobs of a batch as pending
func (s *Writer) InitJobs(labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Jobs = model.NewJobMap()
	for _, label := range labels {
		s.state.Jobs.Set(label, &model.JobState{Status: model.StatusPending})
	}
	return s.send()
}

// SetJob records the outcome of one job and recomputes progress
func (s *Writer) SetJob(label string, job *model.JobState, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Jobs == nil {
		s.state.Jobs = model.NewJobMap()
	}
	s.state.Jobs.Set(label, job)
	s.state.CurrentAction = action
	if total := s.state.Jobs.Len(); total > 0 {
		s.raise(s.state.Jobs.CountDone() * 100 / total)
	}
	return s.send()
}

// SendRecords emits one batch of records. The batch is carried by this event
// only; Sent accumulates across batches.
func (s *Writer) SendRecords(format model.Format, total int, batch []model.Record, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = "streaming"
	s.state.Format = format
	s.state.Total = total
	s.state.Records = batch
	s.state.Sent += len(batch)
	s.state.CurrentAction = action
	if total > 0 {
		// 100 is reserved for Done
		s.raise(min(99, 10+s.state.Sent*89/total))
	}

	err := s.send()
	s.state.Records = nil
	return err
}

// SendWarnings attaches missing-field warnings
func (s *Writer) SendWarnings(warnings []model.MissingFieldWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Warnings = append(s.state.Warnings, warnings...)
	return s.send()
}

// SetArchive reports where a trace archive was stored
func (s *Writer) SetArchive(key string, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Format = model.FormatBinary
	s.state.ArchiveKey = key
	s.state.Total = size
	s.state.CurrentAction = "Trace archive stored"
	return s.send()
}

// SendGlobalError reports a failure of the whole query
func (s *Writer) SendGlobalError(errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = "error"
	s.state.CurrentAction = "Query failed"
	s.state.Error = errMsg
	return s.send()
}

// Done marks the stream as completed
func (s *Writer) Done() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = "completed"
	s.state.Overall = 100
	s.state.CurrentAction = "Query completed"
	return s.send()
}

// raise only ever increases Overall; callers hold mu
func (s *Writer) raise(progress int) {
	if progress > s.state.Overall {
		s.state.Overall = progress
	}
}
