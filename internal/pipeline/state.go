package pipeline

import (
	"time"

	"github.com/pfrederiksen/eventscout/internal/logger"
)

// State is the progress of one event through a stage
type State string

// Item states. Persisted and Skipped are terminal.
const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateSummarizing State = "summarizing"
	StatePersisted   State = "persisted"
	StateSkipped     State = "skipped"
)

// Stage names used in results, logs and metrics.
const (
	StageFetch     = "fetch"
	StageSummarize = "summarize"
	StageRun       = "run"
)

// item tracks a single event's state within a stage
type item struct {
	id    int
	stage string
	state State
}

func newItem(stage string, id int) *item {
	return &item{id: id, stage: stage, state: StatePending}
}

func (it *item) transition(to State) {
	logger.Debug("Item state change", logger.Fields{
		"id":    it.id,
		"stage": it.stage,
		"from":  string(it.state),
		"to":    string(to),
	})
	it.state = to
}

// Result summarizes one stage run
type Result struct {
	Stage    string
	Total    int
	Counts   map[State]int
	Started  time.Time
	Finished time.Time
}

func newResult(stage string, total int) *Result {
	return &Result{
		Stage:   stage,
		Total:   total,
		Counts:  map[State]int{StatePending: total},
		Started: time.Now(),
	}
}

// record moves a finished item out of the pending count
func (r *Result) record(it *item) {
	r.Counts[StatePending]--
	r.Counts[it.state]++
}

func (r *Result) finish() {
	r.Finished = time.Now()
}

// Count returns the number of items that ended in state
func (r *Result) Count(state State) int {
	return r.Counts[state]
}

// Duration returns how long the stage ran
func (r *Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// Fields renders the result for structured logging
func (r *Result) Fields() logger.Fields {
	return logger.Fields{
		"stage":     r.Stage,
		"total":     r.Total,
		"persisted": r.Count(StatePersisted),
		"skipped":   r.Count(StateSkipped),
		"pending":   r.Count(StatePending),
		"duration":  r.Duration().Round(time.Millisecond).String(),
	}
}
