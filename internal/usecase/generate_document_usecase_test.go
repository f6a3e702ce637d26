package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestrator/internal/domain"
)

type stubBuildContext struct {
	rc  *domain.ResearchContext
	err error
}

func (s *stubBuildContext) Execute(context.Context, BuildContextInput) (*domain.ResearchContext, error) {
	return s.rc, s.err
}

type stubSectionGen struct {
	mu      sync.Mutex
	results map[string]*domain.GenerationResult
	errs    map[string]error
	calls   []string
}

func (s *stubSectionGen) Execute(_ context.Context, input GenerateSectionInput) (*domain.GenerationResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, input.Topic)
	s.mu.Unlock()

	if err, ok := s.errs[input.Topic]; ok {
		return nil, err
	}
	if result, ok := s.results[input.Topic]; ok {
		return result, nil
	}
	return &domain.GenerationResult{
		Topic:  input.Topic,
		Text:   cleanSections()[0].Text,
		Score:  90,
		Passed: true,
	}, nil
}

type fakeSectionRepo struct {
	mu        sync.Mutex
	persisted []domain.Section
	deletes   int
	prior     map[string]*domain.GroundingReport
}

func (f *fakeSectionRepo) PersistSection(_ context.Context, section *domain.Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, *section)
	return nil
}

func (f *fakeSectionRepo) DeleteSections(context.Context, uuid.UUID, []string, *domain.SectionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeSectionRepo) GetLatestGrounding(_ context.Context, _ uuid.UUID, topic string) (*domain.GroundingReport, error) {
	return f.prior[topic], nil
}

func (f *fakeSectionRepo) ListByJob(context.Context, uuid.UUID) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persisted, nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newDocumentUsecase(
	gen GenerateSectionUsecase,
	repo *fakeSectionRepo,
	verifier FactVerifier,
	readiness ReadinessUsecase,
) GenerateDocumentUsecase {
	return NewGenerateDocumentUsecase(
		&stubBuildContext{rc: minimalContext()},
		gen,
		newGate(verifier, readiness, DefaultGateConfig()),
		repo,
		passthroughTx{},
		&scriptedLLM{},
		testLogger(),
	)
}

func cleanResults() map[string]*domain.GenerationResult {
	results := make(map[string]*domain.GenerationResult, len(cleanSections()))
	for _, section := range cleanSections() {
		section.Passed = true
		results[section.Topic] = &section
	}
	return results
}

func TestGenerateDocument_CleanRunPersistsFinal(t *testing.T) {
	gen := &stubSectionGen{results: cleanResults()}
	repo := &fakeSectionRepo{}
	uc := newDocumentUsecase(gen, repo, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	out, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: []string{"competitive_landscape", "executive_summary"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SectionFinal, out.Status)
	assert.True(t, out.Decision.AllowPersist)
	require.Len(t, out.Sections, 2)

	// Rendering order is stable regardless of requested order.
	assert.Equal(t, "executive_summary", out.Sections[0].Topic)
	assert.Equal(t, "competitive_landscape", out.Sections[1].Topic)

	for _, section := range out.Sections {
		assert.Equal(t, domain.SectionFinal, section.Status)
		assert.Equal(t, "mock", section.Model)
		require.NotNil(t, section.Grounding)
		assert.False(t, section.Grounding.Blocked)
	}
	assert.Equal(t, 1, repo.deletes, "stale drafts cleared on FINAL promote")
}

func TestGenerateDocument_BlockedRunPersistsDraft(t *testing.T) {
	results := cleanResults()
	results["executive_summary"].Text = "Just do what @handle1 does."

	gen := &stubSectionGen{results: results}
	repo := &fakeSectionRepo{}
	uc := newDocumentUsecase(gen, repo, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	out, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: cleanTopics(),
	})
	require.NoError(t, err, "a blocked gate is a policy decision, not an error")

	assert.Equal(t, domain.SectionDraft, out.Status)
	assert.False(t, out.Decision.AllowPersist)
	assert.Contains(t, out.Decision.ReasonCodes, ReasonPlaceholderText)
	require.Len(t, out.Sections, 2)
	for _, section := range out.Sections {
		assert.Equal(t, domain.SectionDraft, section.Status)
		require.NotNil(t, section.Grounding)
		assert.True(t, section.Grounding.Blocked)
	}
	assert.Zero(t, repo.deletes)
}

func TestGenerateDocument_ZeroSectionsIsHardFailure(t *testing.T) {
	gen := &stubSectionGen{errs: map[string]error{
		"executive_summary":     errors.New("upstream down"),
		"competitive_landscape": errors.New("upstream down"),
	}}
	uc := newDocumentUsecase(gen, &fakeSectionRepo{}, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	_, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: cleanTopics(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoSectionsGenerated)
}

func TestGenerateDocument_BudgetErrorAborts(t *testing.T) {
	gen := &stubSectionGen{errs: map[string]error{
		"executive_summary": fmt.Errorf("%w: spent 12.50 of 10.00", domain.ErrBudgetExceeded),
	}}
	uc := newDocumentUsecase(gen, &fakeSectionRepo{}, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	_, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: cleanTopics(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
}

func TestGenerateDocument_PartialFailureKeepsRemainder(t *testing.T) {
	gen := &stubSectionGen{
		results: cleanResults(),
		errs:    map[string]error{"competitive_landscape": errors.New("upstream 503")},
	}
	repo := &fakeSectionRepo{}
	uc := newDocumentUsecase(gen, repo, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	out, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: cleanTopics(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SectionDraft, out.Status)
	assert.Contains(t, out.Decision.ReasonCodes, ReasonMissingRequiredSections)
	require.Len(t, out.Sections, 1)
	assert.Equal(t, "executive_summary", out.Sections[0].Topic)
}

func TestGenerateDocument_MergeKeepsPriorReadiness(t *testing.T) {
	priorReadiness := healthyReadiness()
	repo := &fakeSectionRepo{prior: map[string]*domain.GroundingReport{
		"executive_summary": {Mode: GateModeDocument, Readiness: priorReadiness, Source: "quality_gate"},
	}}

	// The classifier currently reports nothing; the merged report must
	// keep the previously persisted readiness metadata.
	gen := &stubSectionGen{results: cleanResults()}
	uc := newDocumentUsecase(gen, repo, &stubVerifier{}, &stubReadiness{summary: domain.ReadinessSummary{}})

	out, err := uc.Execute(context.Background(), GenerateDocumentInput{
		JobID:  uuid.New(),
		Topics: cleanTopics(),
	})
	require.NoError(t, err)

	var exec *domain.Section
	for i := range out.Sections {
		if out.Sections[i].Topic == "executive_summary" {
			exec = &out.Sections[i]
		}
	}
	require.NotNil(t, exec)
	require.NotNil(t, exec.Grounding)
	assert.Equal(t, priorReadiness, exec.Grounding.Readiness)
}

func TestGenerateDocument_DefaultTopics(t *testing.T) {
	gen := &stubSectionGen{}
	repo := &fakeSectionRepo{}
	uc := newDocumentUsecase(gen, repo, &stubVerifier{}, &stubReadiness{summary: healthyReadiness()})

	out, err := uc.Execute(context.Background(), GenerateDocumentInput{JobID: uuid.New()})
	require.NoError(t, err)

	assert.Len(t, out.Sections, len(DefaultTopics()))
	assert.ElementsMatch(t, DefaultTopics(), gen.calls)
}
