package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RonStack/leaky-buckets/internal/jobs"
)

// Store keeps job state in memory. State is lost on restart; clients are
// expected to re-upload rather than resume.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ParseDocumentJob
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.ParseDocumentJob)}
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.ParseDocumentJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ParseDocumentJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	cp := *job
	return &cp, nil
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.Filter) ([]*jobs.ParseDocumentJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*jobs.ParseDocumentJob
	for _, job := range s.jobs {
		if filter.UploadID != "" && job.UploadID != filter.UploadID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

var _ jobs.Store = (*Store)(nil)
