package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type validateStage struct {
	deps Deps
}

func (s *validateStage) Name() string { return types.StepValidate }

// Run is the gate between candidate data and a finished map. It rejects bad
// edge sets through TopologicalOrder and assembles MapData exactly once.
// Courses are ordered by topological position so presentation follows the
// prerequisite structure.
func (s *validateStage) Run(ctx context.Context, p Payload) (Payload, error) {
	if len(p.Courses) == 0 {
		return p, failStage(s.Name(), "no courses to validate", nil)
	}

	ids := make([]uuid.UUID, 0, len(p.Courses))
	for _, c := range p.Courses {
		ids = append(ids, c.ID)
	}
	order, err := TopologicalOrder(ids, p.Edges)
	if err != nil {
		return p, failStage(s.Name(), "dependency validation failed", err)
	}

	position := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	out := p.Clone()
	mapData := &types.MapData{JobTitle: p.JobTitle}

	courses := make([]types.Course, len(p.Courses))
	lessonCount := 0
	for i, draft := range p.Courses {
		course := types.Course{
			ID:             draft.ID,
			Title:          draft.Title,
			TitleTh:        draft.TitleTh,
			Description:    draft.Description,
			Category:       draft.Category,
			SfiaLevel:      draft.SfiaLevel,
			EstimatedHours: draft.EstimatedHours,
			Status:         types.CourseStatusDraft,
			SortOrder:      position[draft.ID],
		}
		for _, lessonDraft := range draft.Lessons {
			course.Lessons = append(course.Lessons, types.Lesson{
				ID:          uuid.New(),
				CourseID:    draft.ID,
				Title:       lessonDraft.Title,
				TitleTh:     lessonDraft.TitleTh,
				Description: lessonDraft.Description,
				Duration:    lessonDraft.Duration,
				ContentType: lessonDraft.ContentType,
				SortOrder:   lessonDraft.SortOrder,
			})
		}
		lessonCount += len(course.Lessons)
		courses[i] = course
	}

	deps := make([]types.CourseDependency, 0, len(p.Edges))
	for _, e := range p.Edges {
		deps = append(deps, types.CourseDependency{
			ID:                   uuid.New(),
			PrerequisiteCourseID: e.Prerequisite,
			DependentCourseID:    e.Dependent,
		})
	}

	mapData.Courses = courses
	mapData.Dependencies = deps
	mapData.CourseCount = len(courses)
	mapData.LessonCount = lessonCount
	out.Map = mapData
	return out, nil
}
