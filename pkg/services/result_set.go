package services

import (
	"sort"
	"sync"

	"github.com/offerwell/intent-bench/pkg/models"
)

// ResultSet is the append-only trial collection shared by concurrent trials.
type ResultSet struct {
	mu     sync.Mutex
	trials []models.Trial
}

// NewResultSet creates an empty set with room for capacity trials.
func NewResultSet(capacity int) *ResultSet {
	return &ResultSet{trials: make([]models.Trial, 0, capacity)}
}

// Append adds a trial. Safe for concurrent use.
func (r *ResultSet) Append(trial models.Trial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials = append(r.trials, trial)
}

// Len returns the number of trials appended so far.
func (r *ResultSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trials)
}

// Trials returns a copy ordered model-major, then by query position.
func (r *ResultSet) Trials() []models.Trial {
	r.mu.Lock()
	out := make([]models.Trial, len(r.trials))
	copy(out, r.trials)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModelIndex != out[j].ModelIndex {
			return out[i].ModelIndex < out[j].ModelIndex
		}
		return out[i].QueryIndex < out[j].QueryIndex
	})
	return out
}
