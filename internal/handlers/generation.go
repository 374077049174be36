package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/services"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type GenerationHandler struct {
	service services.GenerationService
	log     *logger.Logger
}

func NewGenerationHandler(service services.GenerationService, baseLog *logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		log:     baseLog.With("handler", "GenerationHandler"),
	}
}

type generateRequest struct {
	JobTitle string `json:"jobTitle" binding:"required"`
}

// Generate accepts a job title and returns the queued job immediately. The
// pipeline runs in the background; poll the job endpoint for progress.
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "jobTitle is required")
		return
	}
	job, err := h.service.Submit(c.Request.Context(), req.JobTitle)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("Generation job accepted", "job_id", job.ID, "job_title", job.JobTitle)
	RespondOK(c, http.StatusAccepted, job)
}

func (h *GenerationHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := h.service.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, job)
}

type listJobsResponse struct {
	Jobs  []*types.GenerationJob `json:"jobs"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

func (h *GenerationHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	status := c.Query("status")

	jobs, total, err := h.service.List(c.Request.Context(), status, page, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, listJobsResponse{Jobs: jobs, Total: total, Page: page, Limit: limit})
}

type updateCoursesRequest struct {
	Courses      []types.Course           `json:"courses" binding:"required"`
	Dependencies []types.CourseDependency `json:"dependencies"`
}

// UpdateCourses applies curation edits to a completed map. Edits that break
// the dependency graph are rejected and the stored map is kept as-is.
func (h *GenerationHandler) UpdateCourses(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}
	var req updateCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "courses are required")
		return
	}
	job, err := h.service.UpdateCourses(c.Request.Context(), jobID, req.Courses, req.Dependencies)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, job)
}

type publishRequest struct {
	JobGroupID *uuid.UUID `json:"jobGroupId"`
}

func (h *GenerationHandler) Publish(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}
	var req publishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid publish payload")
			return
		}
	}
	job, err := h.service.Publish(c.Request.Context(), jobID, req.JobGroupID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("Generation job published", "job_id", job.ID)
	RespondOK(c, http.StatusOK, job)
}
