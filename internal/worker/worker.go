package worker

import (
	"context"
	"log/slog"
	"time"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/infra/logger"
	"research-orchestrator/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	jobTimeout          = 10 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

type JobWorker struct {
	jobRepo         domain.ReportJobRepository
	documentUsecase usecase.GenerateDocumentUsecase
	logger          *slog.Logger
	stopChan        chan struct{}
	backoff         time.Duration
}

func NewJobWorker(
	jobRepo domain.ReportJobRepository,
	documentUsecase usecase.GenerateDocumentUsecase,
	log *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:         jobRepo,
		documentUsecase: documentUsecase,
		logger:          log,
		stopChan:        make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	w.logger.Info("Processing report job", "report_job_id", job.ID, "job_id", job.JobID)

	ctx = logger.WithJobID(ctx, job.JobID.String())
	processErr := w.processReportJob(ctx, job)

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("Worker backing off", "report_job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("Report job completed", "report_job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("Failed to update job status", "report_job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processReportJob(ctx context.Context, job *domain.ReportJob) error {
	out, err := w.documentUsecase.Execute(ctx, usecase.GenerateDocumentInput{
		JobID:  job.JobID,
		Topics: job.Topics,
	})
	if err != nil {
		return err
	}

	w.logger.Info("document_run_finished",
		"report_job_id", job.ID,
		"job_id", job.JobID,
		"status", out.Status,
		"sections", len(out.Sections),
		"cost_usd", out.TotalCostUSD,
	)
	return nil
}
