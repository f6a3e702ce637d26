package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReadinessStatus classifies a snapshot's fitness for use in generation.
type ReadinessStatus string

const (
	ReadinessUnscored ReadinessStatus = "unscored"
	ReadinessReady    ReadinessStatus = "ready"
	ReadinessDegraded ReadinessStatus = "degraded"
	ReadinessBlocked  ReadinessStatus = "blocked"
)

// SnapshotScope distinguishes client evidence from competitor evidence.
type SnapshotScope string

const (
	ScopeClient     SnapshotScope = "client"
	ScopeCompetitor SnapshotScope = "competitor"
)

// Snapshot is a point-in-time capture of a profile and its post set,
// produced by the scraping pipeline and read-only for this service apart
// from its readiness label.
type Snapshot struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	Scope         SnapshotScope
	Handle        string
	Platform      string
	FollowerCount int64
	PostCount     int
	HasProfile    bool
	ScrapeError   string
	Readiness     ReadinessStatus
	CapturedAt    time.Time
}

// ReadinessScope is the per-request eligibility policy computed before any
// source retrieval runs. Downstream retrievers filter per-snapshot data
// against the handle sets.
type ReadinessScope struct {
	AllowedStatuses   []ReadinessStatus
	ClientHandles     map[string]struct{}
	CompetitorHandles map[string]struct{}
}

// Allows reports whether a status is inside the current policy.
func (s ReadinessScope) Allows(status ReadinessStatus) bool {
	for _, allowed := range s.AllowedStatuses {
		if allowed == status {
			return true
		}
	}
	return false
}

// StatusCounts holds per-status snapshot counts for one scope.
type StatusCounts struct {
	Ready    int `json:"ready"`
	Degraded int `json:"degraded"`
	Blocked  int `json:"blocked"`
	Unscored int `json:"unscored"`
}

// Total returns the scope's snapshot count across all statuses.
func (c StatusCounts) Total() int {
	return c.Ready + c.Degraded + c.Blocked + c.Unscored
}

// ReadinessSummary is the classifier output attached to every research
// context and grounding report.
type ReadinessSummary struct {
	Client             StatusCounts      `json:"client"`
	Competitor         StatusCounts      `json:"competitor"`
	AllowedStatuses    []ReadinessStatus `json:"allowed_statuses"`
	HasClientReady     bool              `json:"has_client_ready"`
	HasCompetitorReady bool              `json:"has_competitor_ready"`
}

// IsZero reports whether the summary carries no information, which is how
// report merging decides to keep previously persisted readiness metadata.
func (s ReadinessSummary) IsZero() bool {
	return s.Client.Total() == 0 && s.Competitor.Total() == 0 && len(s.AllowedStatuses) == 0
}
