package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type mapDependenciesStage struct {
	deps Deps
}

func (s *mapDependenciesStage) Name() string { return types.StepMapDependencies }

// Run proposes prerequisite edges between graded courses. The output is a
// candidate list only; it may contain cycles, duplicates or bad references —
// VALIDATE is the gate, not this stage.
func (s *mapDependenciesStage) Run(ctx context.Context, p Payload) (Payload, error) {
	if len(p.Courses) == 0 {
		return p, failStage(s.Name(), "no graded courses to map", nil)
	}

	out := p.Clone()
	out.Edges = nil

	if s.deps.AI != nil {
		edges, err := s.dependencyBackend(ctx, p)
		if err != nil {
			s.deps.Log.Warn("Dependency backend failed, falling back to level chaining", "job_title", p.JobTitle, "error", err)
		} else {
			out.Edges = edges
			return out, nil
		}
	}
	out.Edges = chainByLevel(p.Courses)
	return out, nil
}

// chainByLevel links courses of the same category in ascending SFIA order:
// each course depends on its nearest strictly-lower-level predecessor.
func chainByLevel(courses []CourseDraft) []Edge {
	byCategory := map[string][]CourseDraft{}
	for _, c := range courses {
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}
	var edges []Edge
	for _, group := range byCategory {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].SfiaLevel != group[j].SfiaLevel {
				return group[i].SfiaLevel < group[j].SfiaLevel
			}
			return group[i].Title < group[j].Title
		})
		for i := 1; i < len(group); i++ {
			if group[i].SfiaLevel > group[i-1].SfiaLevel {
				edges = append(edges, Edge{Prerequisite: group[i-1].ID, Dependent: group[i].ID})
			}
		}
	}
	return edges
}

func (s *mapDependenciesStage) dependencyBackend(ctx context.Context, p Payload) ([]Edge, error) {
	titles := make([]string, 0, len(p.Courses))
	idByTitle := map[string]int{}
	for i, c := range p.Courses {
		titles = append(titles, fmt.Sprintf("%s (SFIA %d)", c.Title, c.SfiaLevel))
		idByTitle[strings.ToLower(c.Title)] = i
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dependencies": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prerequisite": map[string]any{"type": "string"},
						"dependent":    map[string]any{"type": "string"},
					},
					"required":             []string{"prerequisite", "dependent"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"dependencies"},
		"additionalProperties": false,
	}
	system := "You are a curriculum designer. Propose prerequisite relationships between courses by exact title. Only include pairs where the prerequisite is genuinely needed first."
	user := fmt.Sprintf("Occupation: %s\nCourses:\n- %s", p.JobTitle, strings.Join(titles, "\n- "))
	res, err := s.deps.AI.GenerateJSON(ctx, system, user, "course_dependencies", schema)
	if err != nil {
		return nil, err
	}
	rawList, _ := res["dependencies"].([]any)
	var edges []Edge
	for _, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		preIdx, okPre := idByTitle[strings.ToLower(strings.TrimSpace(fmt.Sprint(m["prerequisite"])))]
		depIdx, okDep := idByTitle[strings.ToLower(strings.TrimSpace(fmt.Sprint(m["dependent"])))]
		if !okPre || !okDep {
			continue
		}
		edges = append(edges, Edge{Prerequisite: p.Courses[preIdx].ID, Dependent: p.Courses[depIdx].ID})
	}
	return edges, nil
}
