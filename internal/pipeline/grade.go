package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type gradeStage struct {
	deps Deps
}

func (s *gradeStage) Name() string { return types.StepGrade }

const defaultLessonMinutes = 120

// Run annotates each course shell with an SFIA level (1..7) and an estimated
// hour count. Backend grading is preferred; the fallback derives both from
// course size.
func (s *gradeStage) Run(ctx context.Context, p Payload) (Payload, error) {
	if len(p.Courses) == 0 {
		return p, failStage(s.Name(), "no course shells to grade", nil)
	}

	out := p.Clone()

	var graded map[string]grading
	if s.deps.AI != nil {
		g, err := s.gradeBackend(ctx, p)
		if err != nil {
			s.deps.Log.Warn("Grade backend failed, falling back to heuristic grading", "job_title", p.JobTitle, "error", err)
		} else {
			graded = g
		}
	}

	for i := range out.Courses {
		course := &out.Courses[i]
		for j := range course.Lessons {
			if course.Lessons[j].Duration <= 0 {
				course.Lessons[j].Duration = defaultLessonMinutes
			}
		}
		if g, ok := graded[strings.ToLower(course.Title)]; ok {
			course.SfiaLevel = clampSfia(g.SfiaLevel)
			course.EstimatedHours = g.EstimatedHours
		}
		if course.SfiaLevel == 0 {
			course.SfiaLevel = clampSfia(1 + len(course.Lessons)/3)
		}
		if course.EstimatedHours <= 0 {
			minutes := 0
			for _, lesson := range course.Lessons {
				minutes += lesson.Duration
			}
			course.EstimatedHours = (minutes + 59) / 60
		}
	}
	return out, nil
}

type grading struct {
	SfiaLevel      int
	EstimatedHours int
}

func clampSfia(level int) int {
	if level < 1 {
		return 1
	}
	if level > 7 {
		return 7
	}
	return level
}

func (s *gradeStage) gradeBackend(ctx context.Context, p Payload) (map[string]grading, error) {
	titles := make([]string, 0, len(p.Courses))
	for _, c := range p.Courses {
		titles = append(titles, c.Title)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"courses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":           map[string]any{"type": "string"},
						"sfia_level":      map[string]any{"type": "integer"},
						"estimated_hours": map[string]any{"type": "integer"},
					},
					"required":             []string{"title", "sfia_level", "estimated_hours"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"courses"},
		"additionalProperties": false,
	}
	system := "You are a skills assessor. Assign each course an SFIA level (1-7) and estimated hours to complete."
	user := fmt.Sprintf("Occupation: %s\nCourses:\n- %s", p.JobTitle, strings.Join(titles, "\n- "))
	res, err := s.deps.AI.GenerateJSON(ctx, system, user, "course_grading", schema)
	if err != nil {
		return nil, err
	}
	rawList, _ := res["courses"].([]any)
	out := map[string]grading{}
	for _, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		title := strings.ToLower(strings.TrimSpace(fmt.Sprint(m["title"])))
		if title == "" {
			continue
		}
		out[title] = grading{
			SfiaLevel:      asInt(m["sfia_level"]),
			EstimatedHours: asInt(m["estimated_hours"]),
		}
	}
	return out, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
