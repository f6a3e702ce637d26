package report_http

import (
	"net/http"
	"time"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	readinessUsecase usecase.ReadinessUsecase
	jobRepo          domain.ReportJobRepository
	sectionRepo      domain.SectionRepository
}

func NewHandler(
	readinessUsecase usecase.ReadinessUsecase,
	jobRepo domain.ReportJobRepository,
	sectionRepo domain.SectionRepository,
) *Handler {
	return &Handler{
		readinessUsecase: readinessUsecase,
		jobRepo:          jobRepo,
		sectionRepo:      sectionRepo,
	}
}

// RegisterRoutes mounts the report surface on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/jobs/:id/report", h.EnqueueReport)
	e.GET("/v1/jobs/:id/readiness", h.GetReadiness)
	e.GET("/v1/jobs/:id/sections", h.ListSections)
}

type enqueueReportRequest struct {
	Topics []string `json:"topics"`
}

type enqueueReportResponse struct {
	ReportJobID string `json:"report_job_id"`
	Status      string `json:"status"`
}

// Enqueue a document-generation job for a research job
// (POST /v1/jobs/:id/report)
func (h *Handler) EnqueueReport(ctx echo.Context) error {
	jobID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	var req enqueueReportRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	now := time.Now()
	job := &domain.ReportJob{
		ID:        uuid.New(),
		JobID:     jobID,
		Topics:    req.Topics,
		Status:    "new",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusAccepted, enqueueReportResponse{
		ReportJobID: job.ID.String(),
		Status:      job.Status,
	})
}

type readinessResponse struct {
	Summary domain.ReadinessSummary `json:"summary"`
}

// Classify and return snapshot readiness for a job
// (GET /v1/jobs/:id/readiness)
func (h *Handler) GetReadiness(ctx echo.Context) error {
	jobID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	includeDegraded := ctx.QueryParam("include_degraded") == "true"

	result, err := h.readinessUsecase.Classify(ctx.Request().Context(), jobID, includeDegraded)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, readinessResponse{Summary: result.Summary})
}

type sectionView struct {
	Topic     string                  `json:"topic"`
	Text      string                  `json:"text"`
	Score     float64                 `json:"score"`
	Status    domain.SectionStatus    `json:"status"`
	Model     string                  `json:"model"`
	Grounding *domain.GroundingReport `json:"grounding,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// List persisted report sections for a job
// (GET /v1/jobs/:id/sections)
func (h *Handler) ListSections(ctx echo.Context) error {
	jobID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	sections, err := h.sectionRepo.ListByJob(ctx.Request().Context(), jobID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	views := make([]sectionView, 0, len(sections))
	for _, section := range sections {
		views = append(views, sectionView{
			Topic:     section.Topic,
			Text:      section.Text,
			Score:     section.Score,
			Status:    section.Status,
			Model:     section.Model,
			Grounding: section.Grounding,
			CreatedAt: section.CreatedAt,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"sections": views})
}
