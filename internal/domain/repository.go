package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotRepository reads evidence snapshots and persists readiness
// labels. Snapshots themselves are created by the ingestion pipeline and
// never mutated here.
type SnapshotRepository interface {
	// ListByJob returns snapshots for a job filtered to the given statuses.
	// An empty status list returns all snapshots.
	ListByJob(ctx context.Context, jobID uuid.UUID, statuses []ReadinessStatus) ([]Snapshot, error)

	// UpdateReadiness persists a classifier label for one snapshot.
	UpdateReadiness(ctx context.Context, snapshotID uuid.UUID, status ReadinessStatus) error
}

// ResearchRepository exposes the typed reads the source retrievers need.
// All methods return empty slices (or nil pointers) for missing data
// rather than errors; errors are reserved for datastore failures.
type ResearchRepository interface {
	GetBusinessProfile(ctx context.Context, jobID uuid.UUID) (*BusinessProfile, error)
	ListInsightAnswers(ctx context.Context, jobID uuid.UUID) ([]InsightAnswer, error)
	ListCompetitors(ctx context.Context, jobID uuid.UUID) ([]CompetitorMetrics, error)
	ListPosts(ctx context.Context, jobID uuid.UUID) ([]Post, error)
	ListCommunityComments(ctx context.Context, jobID uuid.UUID) ([]CommunityComment, error)
	ListContentFindings(ctx context.Context, jobID uuid.UUID) ([]ContentFinding, error)
	ListMediaAnalyses(ctx context.Context, jobID uuid.UUID) ([]MediaAnalysis, error)
}

// SectionRepository persists generated sections with their grounding
// reports. PersistSection must delete older rows for the same (job, topic,
// status) before inserting so only one FINAL row exists per topic, and
// must merge the grounding report with any previously stored one.
type SectionRepository interface {
	PersistSection(ctx context.Context, section *Section) error
	DeleteSections(ctx context.Context, jobID uuid.UUID, topics []string, status *SectionStatus) error
	GetLatestGrounding(ctx context.Context, jobID uuid.UUID, topic string) (*GroundingReport, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]Section, error)
}

// ReportJob is one queued document-generation request.
type ReportJob struct {
	ID           uuid.UUID
	JobID        uuid.UUID
	Topics       []string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportJobRepository is the polling queue the worker drains.
type ReportJobRepository interface {
	Enqueue(ctx context.Context, job *ReportJob) error
	AcquireNextJob(ctx context.Context) (*ReportJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager runs a function inside one datastore transaction.
// The pipeline never holds a transaction open across a generation call.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
