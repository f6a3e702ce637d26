package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// --- stubs ---

type stubJobRepo struct {
	mu       sync.Mutex
	jobs     []*domain.ReportJob // jobs to return from AcquireNextJob (consumed FIFO)
	err      error
	statuses map[uuid.UUID]string
}

func (s *stubJobRepo) Enqueue(ctx context.Context, job *domain.ReportJob) error { return nil }

func (s *stubJobRepo) AcquireNextJob(ctx context.Context) (*domain.ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = make(map[uuid.UUID]string)
	}
	s.statuses[id] = status
	return nil
}

type stubDocumentUsecase struct {
	mu          sync.Mutex
	capturedCtx context.Context
	captured    usecase.GenerateDocumentInput
	returnErr   error
}

func (s *stubDocumentUsecase) Execute(ctx context.Context, input usecase.GenerateDocumentInput) (*usecase.GenerateDocumentOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedCtx = ctx
	s.captured = input
	if s.returnErr != nil {
		return nil, s.returnErr
	}
	return &usecase.GenerateDocumentOutput{Status: domain.SectionFinal}, nil
}

func makeJob() *domain.ReportJob {
	return &domain.ReportJob{
		ID:     uuid.New(),
		JobID:  uuid.New(),
		Topics: []string{"executive_summary", "competitor_analysis"},
		Status: "processing",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- tests ---

func TestProcessNextJob_ContextHasTimeout(t *testing.T) {
	uc := &stubDocumentUsecase{}
	repo := &stubJobRepo{jobs: []*domain.ReportJob{makeJob()}}

	w := NewJobWorker(repo, uc, testLogger())
	w.processNextJob()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	assert.NotNil(t, uc.capturedCtx, "Execute should have been called")
	deadline, ok := uc.capturedCtx.Deadline()
	assert.True(t, ok, "context passed to Execute must have a deadline")
	assert.WithinDuration(t, time.Now().Add(jobTimeout), deadline, 5*time.Second)
}

func TestProcessNextJob_PassesJobFields(t *testing.T) {
	uc := &stubDocumentUsecase{}
	job := makeJob()
	repo := &stubJobRepo{jobs: []*domain.ReportJob{job}}

	w := NewJobWorker(repo, uc, testLogger())
	w.processNextJob()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	assert.Equal(t, job.JobID, uc.captured.JobID)
	assert.Equal(t, job.Topics, uc.captured.Topics)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, "completed", repo.statuses[job.ID])
}

func TestProcessNextJob_MarksJobFailed(t *testing.T) {
	uc := &stubDocumentUsecase{returnErr: domain.ErrNoSectionsGenerated}
	job := makeJob()
	repo := &stubJobRepo{jobs: []*domain.ReportJob{job}}

	w := NewJobWorker(repo, uc, testLogger())
	w.processNextJob()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, "failed", repo.statuses[job.ID])
}

func TestJobWorker_BacksOffOnConsecutiveFailures(t *testing.T) {
	repo := &stubJobRepo{
		jobs: []*domain.ReportJob{makeJob(), makeJob(), makeJob()},
	}
	uc := &stubDocumentUsecase{returnErr: errors.New("generation backend unreachable")}

	w := NewJobWorker(repo, uc, testLogger())

	// First failure: backoff should be initialBackoff (1s)
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	// Second failure: backoff doubles to 2s
	w.processNextJob()
	assert.Equal(t, 2*time.Second, w.backoff)

	// Third failure: backoff doubles to 4s
	w.processNextJob()
	assert.Equal(t, 4*time.Second, w.backoff)
}

func TestJobWorker_BackoffResetsOnSuccess(t *testing.T) {
	repo := &stubJobRepo{
		jobs: []*domain.ReportJob{makeJob(), makeJob()},
	}
	uc := &stubDocumentUsecase{returnErr: errors.New("fail")}

	w := NewJobWorker(repo, uc, testLogger())

	// Failure sets backoff
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	// Now succeed
	uc.mu.Lock()
	uc.returnErr = nil
	uc.mu.Unlock()

	w.processNextJob()
	assert.Equal(t, time.Duration(0), w.backoff, "backoff should reset on success")
}

func TestJobWorker_BackoffCapsAtMax(t *testing.T) {
	w := NewJobWorker(nil, nil, testLogger())

	bo := time.Duration(0)
	for i := 0; i < 20; i++ {
		bo = w.nextBackoff(bo)
	}
	assert.Equal(t, maxBackoff, bo, "backoff must cap at maxBackoff")
	assert.LessOrEqual(t, bo, maxBackoff)
}
