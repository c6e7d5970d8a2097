package pipeline

import (
	"sync"
	"time"
)

// Stats are the cumulative processing counters of a session.
type Stats struct {
	TotalProcessed        int           `json:"totalProcessed"`
	RuleMatched           int           `json:"ruleMatched"`
	AIProcessed           int           `json:"aiProcessed"`
	TasksCreated          int           `json:"tasksCreated"`
	Skipped               int           `json:"skipped"`
	Failed                int           `json:"failed"`
	TotalProcessingTime   time.Duration `json:"totalProcessingTime"`
	AverageProcessingTime time.Duration `json:"averageProcessingTime"`
}

// StatsTracker accumulates Stats. It is safe for concurrent use.
type StatsTracker struct {
	mu sync.Mutex
	s  Stats
}

// Snapshot returns a copy of the counters with the average filled in.
func (t *StatsTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.s
	if s.TotalProcessed > 0 {
		s.AverageProcessingTime = s.TotalProcessingTime / time.Duration(s.TotalProcessed)
	}
	return s
}

// Reset zeroes all counters.
func (t *StatsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s = Stats{}
}

func (t *StatsTracker) update(fn func(s *Stats)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.s)
}
