package storage

import (
	"sync"

	"github.com/listingops/curator/internal/pipeline"
)

// RunStore keeps the most recent runs in memory. Once full, the oldest run is
// evicted for each new one.
type RunStore struct {
	runs  map[string]*pipeline.Run
	order []string
	limit int
	mu    sync.RWMutex
}

func New(limit int) *RunStore {
	if limit <= 0 {
		limit = 1
	}
	return &RunStore{
		runs:  make(map[string]*pipeline.Run),
		limit: limit,
	}
}

func (s *RunStore) Get(runID string) (*pipeline.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[runID]
	return run, exists
}

func (s *RunStore) Set(run *pipeline.Run) {
	if run == nil || run.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run

	for len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
}

// List returns stored runs, newest first.
func (s *RunStore) List() []*pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*pipeline.Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, s.runs[s.order[i]])
	}
	return result
}

func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *RunStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; !exists {
		return
	}
	delete(s.runs, runID)
	for i, id := range s.order {
		if id == runID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
