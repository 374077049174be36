package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type clusterStage struct {
	deps Deps
}

func (s *clusterStage) Name() string { return types.StepCluster }

// Run groups normalized skills into candidate course shells. The backend
// proposes the grouping; without a backend (or when it fails with taxonomy
// data still in hand) skills are grouped by category deterministically.
// Course ids are fixed here; every later stage refers to them.
func (s *clusterStage) Run(ctx context.Context, p Payload) (Payload, error) {
	if len(p.Skills) == 0 {
		return p, failStage(s.Name(), "no normalized skills to cluster", nil)
	}

	out := p.Clone()
	out.Courses = nil

	var drafts []CourseDraft
	if s.deps.AI != nil {
		proposed, err := s.clusterBackend(ctx, p)
		if err != nil {
			s.deps.Log.Warn("Cluster backend failed, falling back to category grouping", "job_title", p.JobTitle, "error", err)
		} else {
			drafts = proposed
		}
	}
	if len(drafts) == 0 {
		drafts = clusterByCategory(p)
	}
	if len(drafts) == 0 {
		return p, failStage(s.Name(), "clustering produced no course shells", nil)
	}

	skillByKey := map[string]NormalizedSkill{}
	for _, sk := range p.Skills {
		skillByKey[strings.ToLower(sk.Label)] = sk
	}

	for i := range drafts {
		drafts[i].ID = uuid.New()
		drafts[i].Lessons = lessonsFromSkills(drafts[i].Skills, skillByKey)
		if drafts[i].Category == "" {
			drafts[i].Category = types.CourseCategoryTechnical
		}
	}
	out.Courses = drafts
	return out, nil
}

// lessonsFromSkills makes one lesson per clustered skill, sort order dense
// and 0-based.
func lessonsFromSkills(skillLabels []string, byKey map[string]NormalizedSkill) []LessonDraft {
	var lessons []LessonDraft
	for _, label := range skillLabels {
		sk, ok := byKey[strings.ToLower(label)]
		if !ok {
			sk = NormalizedSkill{Label: label}
		}
		lessons = append(lessons, LessonDraft{
			Title:       sk.Label,
			Description: sk.Description,
			ContentType: "ARTICLE",
			SortOrder:   len(lessons),
		})
	}
	return lessons
}

func clusterByCategory(p Payload) []CourseDraft {
	byCategory := map[string][]string{}
	for _, sk := range p.Skills {
		byCategory[sk.Category] = append(byCategory[sk.Category], sk.Label)
	}
	var out []CourseDraft
	for _, category := range []string{types.CourseCategoryTechnical, types.CourseCategoryTool, types.CourseCategorySoft} {
		labels := byCategory[category]
		if len(labels) == 0 {
			continue
		}
		out = append(out, CourseDraft{
			Title:       fmt.Sprintf("%s: %s Skills", p.JobTitle, titleCaseCategory(category)),
			Description: fmt.Sprintf("Core %s skills for %s", strings.ToLower(category), p.JobTitle),
			Category:    category,
			Skills:      labels,
		})
	}
	return out
}

func titleCaseCategory(category string) string {
	switch category {
	case types.CourseCategorySoft:
		return "Soft"
	case types.CourseCategoryTool:
		return "Tooling"
	default:
		return "Technical"
	}
}

func (s *clusterStage) clusterBackend(ctx context.Context, p Payload) ([]CourseDraft, error) {
	labels := make([]string, 0, len(p.Skills))
	for _, sk := range p.Skills {
		labels = append(labels, sk.Label)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"courses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       map[string]any{"type": "string"},
						"title_th":    map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"category":    map[string]any{"type": "string", "enum": []string{types.CourseCategoryTechnical, types.CourseCategorySoft, types.CourseCategoryTool}},
						"skills":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required":             []string{"title", "title_th", "description", "category", "skills"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"courses"},
		"additionalProperties": false,
	}
	system := "You are a curriculum designer. Group the given skills into a small set of coherent courses for the occupation. Every skill must appear in exactly one course."
	user := fmt.Sprintf("Occupation: %s\nSkills:\n- %s", p.JobTitle, strings.Join(labels, "\n- "))
	res, err := s.deps.AI.GenerateJSON(ctx, system, user, "course_clusters", schema)
	if err != nil {
		return nil, err
	}
	rawList, _ := res["courses"].([]any)
	var out []CourseDraft
	for _, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		title := strings.TrimSpace(fmt.Sprint(m["title"]))
		if title == "" {
			continue
		}
		draft := CourseDraft{
			Title:       title,
			TitleTh:     strings.TrimSpace(fmt.Sprint(m["title_th"])),
			Description: strings.TrimSpace(fmt.Sprint(m["description"])),
			Category:    strings.ToUpper(strings.TrimSpace(fmt.Sprint(m["category"]))),
		}
		if skillsRaw, ok := m["skills"].([]any); ok {
			for _, sv := range skillsRaw {
				if label := strings.TrimSpace(fmt.Sprint(sv)); label != "" {
					draft.Skills = append(draft.Skills, label)
				}
			}
		}
		out = append(out, draft)
	}
	return out, nil
}
