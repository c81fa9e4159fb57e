package store

import (
	"fmt"
	"sort"

	"github.com/gregtusar/predictdesk/pkg/models"
)

func (s *Store) CreateJob(job *models.ResearchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) Job(id string) (*models.ResearchJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Jobs returns every job, newest first.
func (s *Store) Jobs() []models.ResearchJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ResearchJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateJob runs fn on the stored job while holding the write lock, so the
// read-modify-write cannot interleave with another update of the same job.
func (s *Store) UpdateJob(id string, fn func(job *models.ResearchJob)) (*models.ResearchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	fn(job)
	return job.Clone(), true
}
