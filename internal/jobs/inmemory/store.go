package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/fx-backoffice/internal/jobs"
)

// Store keeps exports in a map. Contents do not survive a restart.
type Store struct {
	mu      sync.RWMutex
	exports map[string]*jobs.Export
}

func NewStore() *Store {
	return &Store{exports: make(map[string]*jobs.Export)}
}

// Save stores a copy of job, replacing any earlier state.
func (s *Store) Save(ctx context.Context, job *jobs.Export) error {
	if job.JobID == "" {
		return fmt.Errorf("Save: job id is required")
	}
	s.mu.Lock()
	s.exports[job.JobID] = job.Clone()
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, jobID string) (*jobs.Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.exports[jobID]
	if !ok {
		return nil, fmt.Errorf("Get: %w: %s", jobs.ErrNotFound, jobID)
	}
	return job.Clone(), nil
}

func (s *Store) List(ctx context.Context, filter jobs.Filter) ([]*jobs.Export, error) {
	s.mu.RLock()
	matched := make([]*jobs.Export, 0, len(s.exports))
	for _, job := range s.exports {
		if filter.CustomerID != "" && job.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		matched = append(matched, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.JobID < b.JobID
	})

	if filter.Offset >= len(matched) {
		return []*jobs.Export{}, nil
	}
	matched = matched[max(filter.Offset, 0):]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

var _ jobs.Store = (*Store)(nil)
