package report_http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"research-orchestrator/internal/adapter/report_http"
	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReadinessUsecase struct {
	result *usecase.ReadinessResult
}

func (s *stubReadinessUsecase) Classify(context.Context, uuid.UUID, bool) (*usecase.ReadinessResult, error) {
	return s.result, nil
}

type recordingJobRepo struct {
	enqueued []*domain.ReportJob
}

func (r *recordingJobRepo) Enqueue(_ context.Context, job *domain.ReportJob) error {
	r.enqueued = append(r.enqueued, job)
	return nil
}

func (r *recordingJobRepo) AcquireNextJob(context.Context) (*domain.ReportJob, error) {
	return nil, nil
}

func (r *recordingJobRepo) UpdateStatus(context.Context, uuid.UUID, string, *string) error {
	return nil
}

type stubSectionRepo struct {
	sections []domain.Section
}

func (s *stubSectionRepo) PersistSection(context.Context, *domain.Section) error { return nil }
func (s *stubSectionRepo) DeleteSections(context.Context, uuid.UUID, []string, *domain.SectionStatus) error {
	return nil
}
func (s *stubSectionRepo) GetLatestGrounding(context.Context, uuid.UUID, string) (*domain.GroundingReport, error) {
	return nil, nil
}
func (s *stubSectionRepo) ListByJob(context.Context, uuid.UUID) ([]domain.Section, error) {
	return s.sections, nil
}

func newTestHandler(jobs *recordingJobRepo, sections *stubSectionRepo) *report_http.Handler {
	readiness := &stubReadinessUsecase{result: &usecase.ReadinessResult{
		Summary: domain.ReadinessSummary{
			Client:         domain.StatusCounts{Ready: 1},
			Competitor:     domain.StatusCounts{Ready: 2},
			HasClientReady: true,
		},
	}}
	return report_http.NewHandler(readiness, jobs, sections)
}

func TestEnqueueReport(t *testing.T) {
	jobs := &recordingJobRepo{}
	handler := newTestHandler(jobs, &stubSectionRepo{})

	e := echo.New()
	body, _ := json.Marshal(map[string]interface{}{"topics": []string{"executive_summary"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/x/report", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	jobID := uuid.New()
	ctx := e.NewContext(req, rec)
	ctx.SetPath("/v1/jobs/:id/report")
	ctx.SetParamNames("id")
	ctx.SetParamValues(jobID.String())

	require.NoError(t, handler.EnqueueReport(ctx))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, jobID, jobs.enqueued[0].JobID)
	assert.Equal(t, "new", jobs.enqueued[0].Status)
	assert.Equal(t, []string{"executive_summary"}, jobs.enqueued[0].Topics)
}

func TestEnqueueReport_InvalidJobID(t *testing.T) {
	handler := newTestHandler(&recordingJobRepo{}, &stubSectionRepo{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/x/report", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("not-a-uuid")

	require.NoError(t, handler.EnqueueReport(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReadiness(t *testing.T) {
	handler := newTestHandler(&recordingJobRepo{}, &stubSectionRepo{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/x/readiness", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues(uuid.New().String())

	require.NoError(t, handler.GetReadiness(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary domain.ReadinessSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Client.Ready)
	assert.True(t, resp.Summary.HasClientReady)
}

func TestListSections(t *testing.T) {
	sections := &stubSectionRepo{sections: []domain.Section{
		{Topic: "executive_summary", Text: "text", Score: 90, Status: domain.SectionFinal, Model: "gpt-4o-mini"},
	}}
	handler := newTestHandler(&recordingJobRepo{}, sections)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/x/sections", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues(uuid.New().String())

	require.NoError(t, handler.ListSections(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "executive_summary")
	assert.Contains(t, rec.Body.String(), `"status":"final"`)
}
