package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	apperr "github.com/littlebom/anlp-gmap-sub001/internal/pkg/errors"
	"github.com/littlebom/anlp-gmap-sub001/internal/pipeline"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

// GenerationService owns the generation job state machine. Jobs move
// PENDING -> PROCESSING -> COMPLETED | FAILED, with PUBLISHED as an explicit
// follow-up on a COMPLETED job. Every transition is a single guarded row
// update; a terminal job is never rewritten by a late stage.
type GenerationService interface {
	Submit(ctx context.Context, jobTitle string) (*types.GenerationJob, error)
	Run(ctx context.Context, jobID uuid.UUID) error
	GetStatus(ctx context.Context, jobID uuid.UUID) (*types.GenerationJob, error)
	List(ctx context.Context, status string, page, limit int) ([]*types.GenerationJob, int64, error)
	UpdateCourses(ctx context.Context, jobID uuid.UUID, courses []types.Course, dependencies []types.CourseDependency) (*types.GenerationJob, error)
	Publish(ctx context.Context, jobID uuid.UUID, jobGroupID *uuid.UUID) (*types.GenerationJob, error)
}

type generationService struct {
	db         *gorm.DB
	log        *logger.Logger
	jobRepo    repos.GenerationJobRepo
	courseRepo repos.CourseRepo
	depRepo    repos.CourseDependencyRepo
	stages     []pipeline.Stage
}

func NewGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.GenerationJobRepo,
	courseRepo repos.CourseRepo,
	depRepo repos.CourseDependencyRepo,
	taxonomyRepo repos.TaxonomyRepo,
	aiClient pipelineAI,
) GenerationService {
	log := baseLog.With("service", "GenerationService")
	deps := pipeline.Deps{
		Taxonomy: &taxonomyReader{repo: taxonomyRepo},
		AI:       aiClient,
		Log:      log,
	}
	return &generationService{
		db:         db,
		log:        log,
		jobRepo:    jobRepo,
		courseRepo: courseRepo,
		depRepo:    depRepo,
		stages:     pipeline.Stages(deps),
	}
}

// pipelineAI mirrors ai.Client so tests can hand in a fake without the env
// checks of the real constructor.
type pipelineAI interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

// taxonomyReader narrows the taxonomy repo to the read-only view stages get.
type taxonomyReader struct {
	repo repos.TaxonomyRepo
}

func (t *taxonomyReader) FindOccupationByLabel(ctx context.Context, label string) (*types.Occupation, error) {
	if t.repo == nil {
		return nil, nil
	}
	return t.repo.FindOccupationByLabel(ctx, nil, label)
}

func (t *taxonomyReader) SkillsForOccupation(ctx context.Context, occupationID uuid.UUID) ([]repos.OccupationSkill, error) {
	if t.repo == nil {
		return nil, nil
	}
	return t.repo.SkillsForOccupation(ctx, nil, occupationID)
}

// Submit validates the title, creates a PENDING job, and schedules its
// pipeline on a background goroutine. It returns as soon as the row exists.
func (s *generationService) Submit(ctx context.Context, jobTitle string) (*types.GenerationJob, error) {
	title := strings.TrimSpace(jobTitle)
	if title == "" {
		return nil, fmt.Errorf("%w: job title must not be empty", apperr.ErrInvalidArgument)
	}

	job := &types.GenerationJob{
		ID:       uuid.New(),
		JobTitle: title,
		Status:   types.JobStatusPending,
	}
	created, err := s.jobRepo.Create(ctx, nil, []*types.GenerationJob{job})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("failed to create generation job")
	}
	job = created[0]

	go func(jobID uuid.UUID) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Generation pipeline panic", "job_id", jobID, "panic", r)
				s.failJob(context.Background(), jobID, fmt.Sprintf("internal error: %v", r))
			}
		}()
		if err := s.Run(context.Background(), jobID); err != nil {
			s.log.Warn("Generation run returned error", "job_id", jobID, "error", err)
		}
	}(job.ID)

	return job, nil
}

// Run executes the six stages strictly in order for one job. Stage failures
// are captured on the row, not returned; the returned error covers only
// orchestration problems (unknown job, store writes).
func (s *generationService) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job %s", apperr.ErrNotFound, jobID)
	}

	firstStep := types.StepResearch
	claimed, err := s.jobRepo.UpdateFieldsIfStatus(ctx, nil, jobID,
		[]string{types.JobStatusPending},
		map[string]interface{}{
			"status":       types.JobStatusProcessing,
			"current_step": firstStep,
		})
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("%w: job %s is not PENDING", apperr.ErrConflict, jobID)
	}

	payload := pipeline.Payload{JobTitle: job.JobTitle}
	for i, stage := range s.stages {
		if i > 0 {
			ok, err := s.jobRepo.UpdateFieldsIfStatus(ctx, nil, jobID,
				[]string{types.JobStatusProcessing},
				map[string]interface{}{"current_step": stage.Name()})
			if err != nil || !ok {
				s.failJob(ctx, jobID, fmt.Sprintf("persist step %s: %v", stage.Name(), err))
				return err
			}
		}
		s.log.Info("Running stage", "job_id", jobID, "stage", stage.Name())
		next, err := stage.Run(ctx, payload)
		if err != nil {
			s.failJob(ctx, jobID, err.Error())
			return nil
		}
		payload = next
	}

	if payload.Map == nil {
		s.failJob(ctx, jobID, "validate stage produced no map")
		return nil
	}
	raw, err := json.Marshal(payload.Map)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("encode map data: %v", err))
		return nil
	}
	now := time.Now()
	ok, err := s.jobRepo.UpdateFieldsIfStatus(ctx, nil, jobID,
		[]string{types.JobStatusProcessing},
		map[string]interface{}{
			"status":       types.JobStatusCompleted,
			"current_step": nil,
			"map_data":     datatypes.JSON(raw),
			"error":        nil,
			"completed_at": now,
		})
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn("Job left PROCESSING before completion write", "job_id", jobID)
	}
	return nil
}

// failJob records a terminal failure. Guarded by status so an already
// terminal job keeps its original outcome.
func (s *generationService) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	_, err := s.jobRepo.UpdateFieldsIfStatus(ctx, nil, jobID,
		[]string{types.JobStatusPending, types.JobStatusProcessing},
		map[string]interface{}{
			"status":       types.JobStatusFailed,
			"current_step": nil,
			"error":        reason,
		})
	if err != nil {
		s.log.Error("Failed to persist job failure", "job_id", jobID, "error", err)
	}
}

func (s *generationService) GetStatus(ctx context.Context, jobID uuid.UUID) (*types.GenerationJob, error) {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, jobID)
	}
	return job, nil
}

func (s *generationService) List(ctx context.Context, status string, page, limit int) ([]*types.GenerationJob, int64, error) {
	return s.jobRepo.List(ctx, nil, status, page, limit)
}

// UpdateCourses applies curation edits to a COMPLETED job's map. The edited
// edge set is re-validated before anything is stored; a rejected edit leaves
// the stored map untouched.
func (s *generationService) UpdateCourses(ctx context.Context, jobID uuid.UUID, courses []types.Course, dependencies []types.CourseDependency) (*types.GenerationJob, error) {
	job, err := s.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusCompleted {
		return nil, fmt.Errorf("%w: courses editable only while COMPLETED, job is %s", apperr.ErrConflict, job.Status)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: edited course set must not be empty", apperr.ErrInvalidArgument)
	}

	if dependencies == nil {
		var stored types.MapData
		if err := json.Unmarshal(job.MapData, &stored); err != nil {
			return nil, fmt.Errorf("decode stored map: %w", err)
		}
		dependencies = stored.Dependencies
	}

	ids := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	edges := make([]pipeline.Edge, 0, len(dependencies))
	for _, d := range dependencies {
		edges = append(edges, pipeline.Edge{Prerequisite: d.PrerequisiteCourseID, Dependent: d.DependentCourseID})
	}
	order, err := pipeline.TopologicalOrder(ids, edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	position := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	lessonCount := 0
	for i := range courses {
		courses[i].SortOrder = position[courses[i].ID]
		for j := range courses[i].Lessons {
			courses[i].Lessons[j].CourseID = courses[i].ID
			courses[i].Lessons[j].SortOrder = j
		}
		lessonCount += len(courses[i].Lessons)
	}

	edited := types.MapData{
		JobTitle:     job.JobTitle,
		CourseCount:  len(courses),
		LessonCount:  lessonCount,
		Courses:      courses,
		Dependencies: dependencies,
	}
	raw, err := json.Marshal(&edited)
	if err != nil {
		return nil, err
	}
	ok, err := s.jobRepo.UpdateFieldsIfStatus(ctx, nil, jobID,
		[]string{types.JobStatusCompleted},
		map[string]interface{}{"map_data": datatypes.JSON(raw)})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: job %s left COMPLETED during edit", apperr.ErrConflict, jobID)
	}
	return s.GetStatus(ctx, jobID)
}

// Publish promotes a COMPLETED job to PUBLISHED and writes the map out as
// course/lesson/dependency rows, optionally tagged with a job group. Courses
// whose title already exists in another published map get shared accounting.
func (s *generationService) Publish(ctx context.Context, jobID uuid.UUID, jobGroupID *uuid.UUID) (*types.GenerationJob, error) {
	job, err := s.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusCompleted {
		return nil, fmt.Errorf("%w: publish requires COMPLETED, job is %s", apperr.ErrConflict, job.Status)
	}
	var mapData types.MapData
	if err := json.Unmarshal(job.MapData, &mapData); err != nil {
		return nil, fmt.Errorf("decode stored map: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range mapData.Courses {
			course := mapData.Courses[i]
			shared, err := s.courseRepo.CountPublishedByTitle(ctx, tx, course.Title)
			if err != nil {
				return err
			}
			course.JobID = &jobID
			course.JobGroupID = jobGroupID
			course.Status = types.CourseStatusPublished
			course.IsShared = shared > 0
			course.SharedCount = int(shared)
			if _, err := s.courseRepo.Create(ctx, tx, []*types.Course{&course}); err != nil {
				return err
			}
		}
		edges := make([]*types.CourseDependency, 0, len(mapData.Dependencies))
		for i := range mapData.Dependencies {
			e := mapData.Dependencies[i]
			e.JobID = &jobID
			edges = append(edges, &e)
		}
		if _, err := s.depRepo.Create(ctx, tx, edges); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": types.JobStatusPublished}
		if jobGroupID != nil {
			updates["job_group_id"] = *jobGroupID
		}
		ok, err := s.jobRepo.UpdateFieldsIfStatus(ctx, tx, jobID,
			[]string{types.JobStatusCompleted}, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: job %s left COMPLETED during publish", apperr.ErrConflict, jobID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetStatus(ctx, jobID)
}
