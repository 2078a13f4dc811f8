package inmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/byru-rnd/kasbon-analytics/internal/jobs"
)

// Store is a TTL-bound in-memory implementation of JobStore. Finished jobs
// expire after the configured TTL so the store does not grow without bound.
// Data is lost on service restart.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates a job store whose entries expire ttl after their last
// update.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, ttl/2),
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ReportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	// Store a copy to avoid external modifications.
	jobCopy := *job
	s.cache.Set(job.JobID, &jobCopy, gocache.DefaultExpiration)

	return nil
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ReportJob, error) {
	v, found := s.cache.Get(jobID)
	if !found {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *(v.(*jobs.ReportJob))
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface. Results are ordered newest
// first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ReportJob, error) {
	var result []*jobs.ReportJob

	for _, item := range s.cache.Items() {
		job := item.Object.(*jobs.ReportJob)
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ReportJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus implements the JobStore interface.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return s.SaveJob(ctx, job)
}

var _ jobs.JobStore = (*Store)(nil)
