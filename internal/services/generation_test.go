package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	apperr "github.com/littlebom/anlp-gmap-sub001/internal/pkg/errors"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.JobGroup{},
		&types.GenerationJob{},
		&types.Course{},
		&types.Lesson{},
		&types.CourseDependency{},
		&types.IscoGroup{},
		&types.Occupation{},
		&types.Skill{},
		&types.OccupationSkillRelation{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

type fixture struct {
	db           *gorm.DB
	jobRepo      repos.GenerationJobRepo
	courseRepo   repos.CourseRepo
	depRepo      repos.CourseDependencyRepo
	taxonomyRepo repos.TaxonomyRepo
	service      GenerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	f := &fixture{
		db:           db,
		jobRepo:      repos.NewGenerationJobRepo(db, log),
		courseRepo:   repos.NewCourseRepo(db, log),
		depRepo:      repos.NewCourseDependencyRepo(db, log),
		taxonomyRepo: repos.NewTaxonomyRepo(db, log),
	}
	f.service = NewGenerationService(db, log, f.jobRepo, f.courseRepo, f.depRepo, f.taxonomyRepo, nil)
	return f
}

// seedOccupation mirrors a crawled occupation with its skills so RESEARCH can
// hit the taxonomy without a generation backend.
func (f *fixture) seedOccupation(t *testing.T, label string, skills map[string]string) {
	t.Helper()
	ctx := context.Background()
	occ, err := f.taxonomyRepo.UpsertOccupation(ctx, nil, &types.Occupation{
		URI:       "http://test/occupation/" + strings.ReplaceAll(strings.ToLower(label), " ", "-"),
		PrefLabel: label,
		GroupID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("seed occupation: %v", err)
	}
	for skillLabel, skillType := range skills {
		skill, err := f.taxonomyRepo.UpsertSkill(ctx, nil, &types.Skill{
			URI:       "http://test/skill/" + strings.ReplaceAll(strings.ToLower(skillLabel), " ", "-"),
			PrefLabel: skillLabel,
			SkillType: skillType,
		})
		if err != nil {
			t.Fatalf("seed skill %s: %v", skillLabel, err)
		}
		err = f.taxonomyRepo.UpsertRelation(ctx, nil, &types.OccupationSkillRelation{
			OccupationID: occ.ID,
			SkillID:      skill.ID,
			RelationType: types.RelationEssential,
		})
		if err != nil {
			t.Fatalf("seed relation %s: %v", skillLabel, err)
		}
	}
}

// submitPending creates the job row without starting the background pipeline
// so tests can drive Run synchronously.
func (f *fixture) submitPending(t *testing.T, title string) uuid.UUID {
	t.Helper()
	job := &types.GenerationJob{ID: uuid.New(), JobTitle: title, Status: types.JobStatusPending}
	if _, err := f.jobRepo.Create(context.Background(), nil, []*types.GenerationJob{job}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job.ID
}

func (f *fixture) completedJob(t *testing.T, title string) uuid.UUID {
	t.Helper()
	jobID := f.submitPending(t, title)
	if err := f.service.Run(context.Background(), jobID); err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	job, err := f.service.GetStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if job.Status != types.JobStatusCompleted {
		t.Fatalf("job status want=%s got=%s (error=%v)", types.JobStatusCompleted, job.Status, job.Error)
	}
	return jobID
}

func decodeMap(t *testing.T, job *types.GenerationJob) types.MapData {
	t.Helper()
	var m types.MapData
	if err := json.Unmarshal(job.MapData, &m); err != nil {
		t.Fatalf("decode map data: %v", err)
	}
	return m
}

func TestSubmitRejectsEmptyTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Submit(context.Background(), "   ")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got %v", err)
	}
}

func TestRunCompletesJobFromTaxonomy(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{
		"Python":                      "skill/competence",
		"Object-Oriented Programming": "skill/competence",
		"Relational Databases":        "skill/competence",
		"Teamwork":                    "transversal skill",
	})

	jobID := f.completedJob(t, "Python Developer")
	job, err := f.service.GetStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if job.CurrentStep != nil {
		t.Fatalf("current step should be cleared, got %v", *job.CurrentStep)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	m := decodeMap(t, job)
	if m.JobTitle != "Python Developer" {
		t.Fatalf("map job title want=%q got=%q", "Python Developer", m.JobTitle)
	}
	// 3 technical skills + 1 soft skill group into 2 fallback courses.
	if m.CourseCount != 2 {
		t.Fatalf("course count want=2 got=%d", m.CourseCount)
	}
	if m.LessonCount != 4 {
		t.Fatalf("lesson count want=4 got=%d", m.LessonCount)
	}
	if len(m.Courses) != m.CourseCount {
		t.Fatalf("courses want=%d got=%d", m.CourseCount, len(m.Courses))
	}
	for _, c := range m.Courses {
		if c.Status != types.CourseStatusDraft {
			t.Fatalf("course %q status want=%s got=%s", c.Title, types.CourseStatusDraft, c.Status)
		}
		if c.SfiaLevel < 1 || c.SfiaLevel > 7 {
			t.Fatalf("course %q sfia level out of range: %d", c.Title, c.SfiaLevel)
		}
	}
}

func TestRunFailsWhenNoSourcesMatch(t *testing.T) {
	f := newFixture(t)
	jobID := f.submitPending(t, "Underwater Basket Weaver")

	if err := f.service.Run(context.Background(), jobID); err != nil {
		t.Fatalf("run returned orchestration error: %v", err)
	}
	job, err := f.service.GetStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if job.Status != types.JobStatusFailed {
		t.Fatalf("job status want=%s got=%s", types.JobStatusFailed, job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "no skill candidates") {
		t.Fatalf("failure reason not captured: %v", job.Error)
	}
}

func TestRunRejectsNonPendingJob(t *testing.T) {
	f := newFixture(t)
	jobID := f.submitPending(t, "Python Developer")
	ok, err := f.jobRepo.UpdateFieldsIfStatus(context.Background(), nil, jobID,
		[]string{types.JobStatusPending},
		map[string]interface{}{"status": types.JobStatusProcessing})
	if err != nil || !ok {
		t.Fatalf("mark processing: ok=%v err=%v", ok, err)
	}

	err = f.service.Run(context.Background(), jobID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("want ErrConflict got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{"Python": "skill/competence"})
	f.completedJob(t, "Python Developer")
	f.submitPending(t, "Data Analyst")

	jobs, total, err := f.service.List(context.Background(), types.JobStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(jobs) != 1 {
		t.Fatalf("pending jobs want=1 got total=%d len=%d", total, len(jobs))
	}
	if jobs[0].JobTitle != "Data Analyst" {
		t.Fatalf("pending job title want=%q got=%q", "Data Analyst", jobs[0].JobTitle)
	}

	_, total, err = f.service.List(context.Background(), "", 1, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 2 {
		t.Fatalf("all jobs want=2 got=%d", total)
	}
}

func TestUpdateCoursesRevalidatesEdges(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{
		"Python":   "skill/competence",
		"Teamwork": "transversal skill",
	})
	jobID := f.completedJob(t, "Python Developer")
	job, _ := f.service.GetStatus(context.Background(), jobID)
	m := decodeMap(t, job)

	// A cyclic edit must be rejected and leave the stored map untouched.
	badDeps := []types.CourseDependency{
		{ID: uuid.New(), PrerequisiteCourseID: m.Courses[0].ID, DependentCourseID: m.Courses[1].ID},
		{ID: uuid.New(), PrerequisiteCourseID: m.Courses[1].ID, DependentCourseID: m.Courses[0].ID},
	}
	_, err := f.service.UpdateCourses(context.Background(), jobID, m.Courses, badDeps)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got %v", err)
	}
	job, _ = f.service.GetStatus(context.Background(), jobID)
	if got := decodeMap(t, job); len(got.Dependencies) != len(m.Dependencies) {
		t.Fatalf("stored map changed after rejected edit")
	}

	// A clean retitle goes through and the counts are recomputed.
	edited := m.Courses
	edited[0].Title = "Renamed Course"
	updated, err := f.service.UpdateCourses(context.Background(), jobID, edited, nil)
	if err != nil {
		t.Fatalf("update courses: %v", err)
	}
	got := decodeMap(t, updated)
	if got.CourseCount != len(edited) {
		t.Fatalf("course count want=%d got=%d", len(edited), got.CourseCount)
	}
	found := false
	for _, c := range got.Courses {
		if c.Title == "Renamed Course" {
			found = true
		}
	}
	if !found {
		t.Fatal("retitled course not stored")
	}
}

func TestUpdateCoursesRejectsNonCompletedJob(t *testing.T) {
	f := newFixture(t)
	jobID := f.submitPending(t, "Python Developer")

	_, err := f.service.UpdateCourses(context.Background(), jobID, []types.Course{{ID: uuid.New()}}, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("want ErrConflict got %v", err)
	}
}

func TestPublishWritesRelationalRows(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{
		"Python":   "skill/competence",
		"Teamwork": "transversal skill",
	})
	jobID := f.completedJob(t, "Python Developer")

	published, err := f.service.Publish(context.Background(), jobID, nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != types.JobStatusPublished {
		t.Fatalf("job status want=%s got=%s", types.JobStatusPublished, published.Status)
	}

	courses, err := f.courseRepo.GetByJobID(context.Background(), nil, jobID)
	if err != nil {
		t.Fatalf("load courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("published courses want=2 got=%d", len(courses))
	}
	lessonCount := 0
	for _, c := range courses {
		if c.Status != types.CourseStatusPublished {
			t.Fatalf("course %q status want=%s got=%s", c.Title, types.CourseStatusPublished, c.Status)
		}
		lessonCount += len(c.Lessons)
	}
	if lessonCount != 2 {
		t.Fatalf("published lessons want=2 got=%d", lessonCount)
	}

	// Publishing is terminal: a second publish conflicts.
	_, err = f.service.Publish(context.Background(), jobID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second publish want ErrConflict got %v", err)
	}
}

func TestPublishRejectsFailedJob(t *testing.T) {
	f := newFixture(t)
	jobID := f.submitPending(t, "Underwater Basket Weaver")
	if err := f.service.Run(context.Background(), jobID); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, err := f.service.Publish(context.Background(), jobID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("want ErrConflict got %v", err)
	}
}

func TestPublishTracksSharedCourses(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{"Python": "skill/competence"})

	first := f.completedJob(t, "Python Developer")
	if _, err := f.service.Publish(context.Background(), first, nil); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second := f.completedJob(t, "Python Developer")
	if _, err := f.service.Publish(context.Background(), second, nil); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	courses, err := f.courseRepo.GetByJobID(context.Background(), nil, second)
	if err != nil {
		t.Fatalf("load courses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("courses want=1 got=%d", len(courses))
	}
	if !courses[0].IsShared || courses[0].SharedCount != 1 {
		t.Fatalf("shared accounting want is_shared=true shared_count=1 got %v/%d",
			courses[0].IsShared, courses[0].SharedCount)
	}
}

func TestPublishAssignsJobGroup(t *testing.T) {
	f := newFixture(t)
	f.seedOccupation(t, "Python Developer", map[string]string{"Python": "skill/competence"})
	jobID := f.completedJob(t, "Python Developer")

	group := &types.JobGroup{ID: uuid.New(), Name: "Engineering"}
	if err := f.db.Create(group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	published, err := f.service.Publish(context.Background(), jobID, &group.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.JobGroupID == nil || *published.JobGroupID != group.ID {
		t.Fatalf("job group want=%s got=%v", group.ID, published.JobGroupID)
	}
	courses, _ := f.courseRepo.GetByJobID(context.Background(), nil, jobID)
	for _, c := range courses {
		if c.JobGroupID == nil || *c.JobGroupID != group.ID {
			t.Fatalf("course %q missing job group", c.Title)
		}
	}
}
