package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	apperr "github.com/littlebom/anlp-gmap-sub001/internal/pkg/errors"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type fakeGenerationService struct {
	submitted   string
	job         *types.GenerationJob
	err         error
	publishedTo *uuid.UUID
}

func (f *fakeGenerationService) Submit(ctx context.Context, jobTitle string) (*types.GenerationJob, error) {
	f.submitted = jobTitle
	return f.job, f.err
}

func (f *fakeGenerationService) Run(ctx context.Context, jobID uuid.UUID) error { return f.err }

func (f *fakeGenerationService) GetStatus(ctx context.Context, jobID uuid.UUID) (*types.GenerationJob, error) {
	return f.job, f.err
}

func (f *fakeGenerationService) List(ctx context.Context, status string, page, limit int) ([]*types.GenerationJob, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return []*types.GenerationJob{f.job}, 1, nil
}

func (f *fakeGenerationService) UpdateCourses(ctx context.Context, jobID uuid.UUID, courses []types.Course, dependencies []types.CourseDependency) (*types.GenerationJob, error) {
	return f.job, f.err
}

func (f *fakeGenerationService) Publish(ctx context.Context, jobID uuid.UUID, jobGroupID *uuid.UUID) (*types.GenerationJob, error) {
	f.publishedTo = jobGroupID
	return f.job, f.err
}

func newHandlerFixture(t *testing.T, svc *fakeGenerationService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	h := NewGenerationHandler(svc, log)
	router := gin.New()
	router.POST("/api/maps/generate", h.Generate)
	router.GET("/api/maps/jobs", h.ListJobs)
	router.GET("/api/maps/jobs/:id", h.GetJob)
	router.PATCH("/api/maps/jobs/:id/courses", h.UpdateCourses)
	router.POST("/api/maps/jobs/:id/publish", h.Publish)
	return router
}

func testJob() *types.GenerationJob {
	return &types.GenerationJob{ID: uuid.New(), JobTitle: "Backend Developer", Status: types.JobStatusPending}
}

func TestGenerateAcceptsJob(t *testing.T) {
	svc := &fakeGenerationService{job: testJob()}
	router := newHandlerFixture(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/maps/generate",
		strings.NewReader(`{"jobTitle":"Backend Developer"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status want=%d got=%d body=%s", http.StatusAccepted, w.Code, w.Body.String())
	}
	if svc.submitted != "Backend Developer" {
		t.Fatalf("submitted title want=%q got=%q", "Backend Developer", svc.submitted)
	}
	var envelope struct {
		Success bool                `json:"success"`
		Data    types.GenerationJob `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success || envelope.Data.Status != types.JobStatusPending {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestGenerateRejectsMissingTitle(t *testing.T) {
	router := newHandlerFixture(t, &fakeGenerationService{job: testJob()})

	req := httptest.NewRequest(http.MethodPost, "/api/maps/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestGetJobRejectsBadID(t *testing.T) {
	router := newHandlerFixture(t, &fakeGenerationService{job: testJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/maps/jobs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("job: %w", apperr.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("job: %w", apperr.ErrConflict), http.StatusConflict},
		{"invalid", fmt.Errorf("job: %w", apperr.ErrInvalidArgument), http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newHandlerFixture(t, &fakeGenerationService{err: tc.err})
			req := httptest.NewRequest(http.MethodGet, "/api/maps/jobs/"+uuid.NewString(), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status want=%d got=%d", tc.want, w.Code)
			}
		})
	}
}

func TestPublishForwardsJobGroup(t *testing.T) {
	job := testJob()
	job.Status = types.JobStatusPublished
	svc := &fakeGenerationService{job: job}
	router := newHandlerFixture(t, svc)

	groupID := uuid.New()
	body := fmt.Sprintf(`{"jobGroupId":%q}`, groupID)
	req := httptest.NewRequest(http.MethodPost, "/api/maps/jobs/"+job.ID.String()+"/publish", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.publishedTo == nil || *svc.publishedTo != groupID {
		t.Fatalf("job group want=%s got=%v", groupID, svc.publishedTo)
	}
}

func TestListJobsClampsPagination(t *testing.T) {
	router := newHandlerFixture(t, &fakeGenerationService{job: testJob()})

	req := httptest.NewRequest(http.MethodGet, "/api/maps/jobs?page=-3&limit=9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want=%d got=%d", http.StatusOK, w.Code)
	}
	var envelope struct {
		Data struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Page != 1 || envelope.Data.Limit != 20 {
		t.Fatalf("pagination clamp want page=1 limit=20 got page=%d limit=%d",
			envelope.Data.Page, envelope.Data.Limit)
	}
}
