package crawler

import (
	"time"

	"github.com/google/uuid"
)

type Stage int

const (
	StagePending Stage = iota
	StageExpanding
	StageFetching
	StageFiltering
	StageChunking
	StageEmbedding
	StageWriting
	StageDone
	StageSkipped
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageExpanding:
		return "expanding"
	case StageFetching:
		return "fetching"
	case StageFiltering:
		return "filtering"
	case StageChunking:
		return "chunking"
	case StageEmbedding:
		return "embedding"
	case StageWriting:
		return "writing"
	case StageDone:
		return "done"
	case StageSkipped:
		return "skipped"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the terminal result of one queue entry. At is the stage the
// entry was in when it stopped.
type Outcome struct {
	URL      string
	Final    Stage
	At       Stage
	Reason   string
	Err      error
	Parents  int
	Children int
	Dups     int
	Links    int
}

// RunState is everything one run shares across queue entries. It is owned by
// the single goroutine draining the queue.
type RunState struct {
	RunID string

	seen     map[string]struct{}
	started  time.Time
	done     int
	skipped  int
	failed   int
	expanded int
	capped   int
	parents  int
	children int
	dups     int

	// expansion failures do not count towards Processed
	expandFailed int
}

func NewRunState(now time.Time) *RunState {
	return &RunState{
		RunID:   uuid.NewString(),
		seen:    make(map[string]struct{}),
		started: now,
	}
}

// MarkSeen records url and reports whether it was new to this run.
func (s *RunState) MarkSeen(url string) bool {
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Processed counts fetch entries that reached a terminal state.
func (s *RunState) Processed() int {
	return s.done + s.skipped + s.failed
}

func (s *RunState) Record(o Outcome) {
	if o.At == StageExpanding {
		if o.Final == StageFailed {
			s.expandFailed++
		} else {
			s.expanded++
		}
		return
	}
	switch o.Final {
	case StageDone:
		s.done++
	case StageSkipped:
		s.skipped++
	case StageFailed:
		s.failed++
	}
	s.parents += o.Parents
	s.children += o.Children
	s.dups += o.Dups
}

func (s *RunState) recordCapped() {
	s.capped++
}

type Summary struct {
	RunID            string        `json:"runId"`
	Done             int           `json:"done"`
	Skipped          int           `json:"skipped"`
	Failed           int           `json:"failed"`
	Expanded         int           `json:"expanded"`
	NotProcessed     int           `json:"notProcessed"`
	ParentsInserted  int           `json:"parentsInserted"`
	ChildrenInserted int           `json:"childrenInserted"`
	Duplicates       int           `json:"duplicates"`
	TokensUsed       int64         `json:"tokensUsed"`
	Elapsed          time.Duration `json:"elapsed"`
}

func (s *RunState) Summary(now time.Time, tokens int64) Summary {
	return Summary{
		RunID:            s.RunID,
		Done:             s.done,
		Skipped:          s.skipped,
		Failed:           s.failed + s.expandFailed,
		Expanded:         s.expanded,
		NotProcessed:     s.capped,
		ParentsInserted:  s.parents,
		ChildrenInserted: s.children,
		Duplicates:       s.dups,
		TokensUsed:       tokens,
		Elapsed:          now.Sub(s.started),
	}
}
