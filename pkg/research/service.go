package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gregtusar/predictdesk/pkg/models"
)

const (
	MinComputeUnits = 1
	MaxComputeUnits = 10

	submitFailedMessage = "Failed to submit research request"
	expiredMessage      = "Research job expired"
	failedMessage       = "Research failed"
)

var (
	ErrJobNotFound    = errors.New("research job not found")
	ErrInvalidRequest = errors.New("invalid research request")
)

// Provider is the external research backend.
type Provider interface {
	Submit(ctx context.Context, query string, computeUnits int) (string, error)
	Status(ctx context.Context, ref string) (*models.ResearchUpdate, error)
}

// JobStore persists jobs. UpdateJob must apply fn atomically with respect to
// other updates of the same job.
type JobStore interface {
	CreateJob(job *models.ResearchJob) error
	Job(id string) (*models.ResearchJob, bool)
	Jobs() []models.ResearchJob
	UpdateJob(id string, fn func(job *models.ResearchJob)) (*models.ResearchJob, bool)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	Timeline Timeline
	// MaxJobAge force-fails jobs that are still running after this long.
	// Zero disables expiry.
	MaxJobAge     time.Duration
	SubmitTimeout time.Duration
	StatusTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeline:      DefaultTimeline(),
		MaxJobAge:     15 * time.Minute,
		SubmitTimeout: 30 * time.Second,
		StatusTimeout: 10 * time.Second,
	}
}

type SubmitRequest struct {
	Query        string
	ComputeUnits int
	MarketID     string
}

type Service struct {
	store    JobStore
	provider Provider
	cfg      Config
	clock    Clock
	logger   *logrus.Logger
	wg       sync.WaitGroup
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService builds the job state machine. A nil provider runs every job on
// the simulated timeline.
func NewService(store JobStore, provider Provider, cfg Config, logger *logrus.Logger, opts ...Option) *Service {
	defaults := DefaultConfig()
	if cfg.Timeline == (Timeline{}) {
		cfg.Timeline = defaults.Timeline
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaults.SubmitTimeout
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = defaults.StatusTimeout
	}

	s := &Service{
		store:    store,
		provider: provider,
		cfg:      cfg,
		clock:    systemClock{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Live reports whether jobs are sent to a real provider.
func (s *Service) Live() bool {
	return s.provider != nil
}

// Submit records a pending job and returns it straight away. Provider
// failures after this point are reflected in the job, never returned here.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.ResearchJob, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	units := req.ComputeUnits
	if units == 0 {
		units = MinComputeUnits
	}
	if units < MinComputeUnits || units > MaxComputeUnits {
		return nil, fmt.Errorf("%w: computeUnits must be between %d and %d", ErrInvalidRequest, MinComputeUnits, MaxComputeUnits)
	}

	job := &models.ResearchJob{
		ID:           uuid.NewString(),
		Status:       models.JobPending,
		Query:        query,
		ComputeUnits: units,
		MarketID:     req.MarketID,
		CreatedAt:    s.clock.Now().UTC(),
		Simulated:    s.provider == nil,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":        job.ID,
		"compute_units": units,
		"simulated":     job.Simulated,
	}).Info("Research job created")

	if s.provider != nil {
		s.wg.Add(1)
		go s.dispatch(job.ID, query, units)
	}

	return job.Clone(), nil
}

// dispatch hands a job to the provider. It runs detached from the request
// that created the job.
func (s *Service) dispatch(id, query string, units int) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("job_id", id).Errorf("Research submission panicked: %v", r)
			s.fail(id, submitFailedMessage)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SubmitTimeout)
	defer cancel()

	ref, err := s.provider.Submit(ctx, query, units)
	if err != nil {
		s.logger.WithError(err).WithField("job_id", id).Warn("Research provider unavailable, using simulated research")
		s.store.UpdateJob(id, func(job *models.ResearchJob) {
			job.Simulated = true
		})
		return
	}
	if ref == "" {
		s.logger.WithField("job_id", id).Error("Research provider returned no job reference")
		s.fail(id, submitFailedMessage)
		return
	}

	s.store.UpdateJob(id, func(job *models.ResearchJob) {
		job.ProviderRef = ref
	})
	s.logger.WithFields(logrus.Fields{"job_id": id, "provider_ref": ref}).Info("Research job submitted")
}

func (s *Service) fail(id, msg string) {
	s.store.UpdateJob(id, func(job *models.ResearchJob) {
		s.advance(job, models.ResearchUpdate{Status: models.JobFailed, Error: msg})
	})
}

// Poll returns the job after folding in any progress since the last poll.
// Terminal jobs are returned as stored.
func (s *Service) Poll(ctx context.Context, id string) (*models.ResearchJob, error) {
	job, ok := s.store.Job(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return job, nil
	}

	update, ok := s.observe(ctx, job)
	if !ok {
		return job, nil
	}

	updated, ok := s.store.UpdateJob(id, func(stored *models.ResearchJob) {
		s.advance(stored, update)
	})
	if !ok {
		return nil, ErrJobNotFound
	}
	return updated, nil
}

// List returns all jobs, newest first, without polling them.
func (s *Service) List() []models.ResearchJob {
	return s.store.Jobs()
}

// Wait blocks until every in-flight submission has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// observe works out the job's current state without mutating it. ok is false
// when there is nothing new to apply.
func (s *Service) observe(ctx context.Context, job *models.ResearchJob) (models.ResearchUpdate, bool) {
	age := s.clock.Now().Sub(job.CreatedAt)

	var update models.ResearchUpdate
	switch {
	case job.Simulated:
		update = SimulatedUpdate(age, s.cfg.Timeline)
	case job.ProviderRef != "":
		statusCtx, cancel := context.WithTimeout(ctx, s.cfg.StatusTimeout)
		defer cancel()

		reported, err := s.provider.Status(statusCtx, job.ProviderRef)
		if err != nil {
			s.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to fetch research status")
			update = models.ResearchUpdate{Status: job.Status}
		} else {
			update = *reported
		}
	default:
		// still waiting on the provider to accept the submission
		update = models.ResearchUpdate{Status: job.Status}
	}

	if !update.Status.Terminal() && s.cfg.MaxJobAge > 0 && age > s.cfg.MaxJobAge {
		s.logger.WithFields(logrus.Fields{"job_id": job.ID, "age": age.String()}).Warn("Research job expired")
		return models.ResearchUpdate{Status: models.JobFailed, Error: expiredMessage}, true
	}
	if update.Status.Rank() <= job.Status.Rank() {
		return update, false
	}
	return update, true
}

// advance applies update to job if it moves the job forward. It is called
// with the store's lock held, so job is the latest stored state.
func (s *Service) advance(job *models.ResearchJob, update models.ResearchUpdate) {
	if job.Status.Terminal() {
		return
	}
	if update.Status.Rank() <= job.Status.Rank() {
		s.logger.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"stored":   job.Status,
			"reported": update.Status,
		}).Debug("Discarding stale research status")
		return
	}

	job.Status = update.Status
	switch update.Status {
	case models.JobCompleted:
		job.Result = update.Result
		job.Citations = append([]models.Citation(nil), update.Citations...)
	case models.JobFailed:
		job.Error = update.Error
		if job.Error == "" {
			job.Error = failedMessage
		}
	}
	if update.Status.Terminal() {
		now := s.clock.Now().UTC()
		job.CompletedAt = &now
	}

	s.logger.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status}).Info("Research job advanced")
}
