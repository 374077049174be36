package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type researchStage struct {
	deps Deps
}

func (s *researchStage) Name() string { return types.StepResearch }

// Run gathers raw skill candidates for the job title: occupation-matched
// skills from the mirrored taxonomy, supplemented by the generation backend.
// Either source alone is enough; both empty is a stage failure.
func (s *researchStage) Run(ctx context.Context, p Payload) (Payload, error) {
	out := p.Clone()

	title := strings.TrimSpace(p.JobTitle)
	if title == "" {
		return p, failStage(s.Name(), "empty job title", nil)
	}

	var taxonomyErr error
	if s.deps.Taxonomy != nil {
		occ, err := s.deps.Taxonomy.FindOccupationByLabel(ctx, title)
		if err != nil {
			taxonomyErr = err
		} else if occ != nil {
			skills, err := s.deps.Taxonomy.SkillsForOccupation(ctx, occ.ID)
			if err != nil {
				taxonomyErr = err
			} else {
				for _, rel := range skills {
					out.Candidates = append(out.Candidates, SkillCandidate{
						Label:        rel.Skill.PrefLabel,
						Description:  rel.Skill.Description,
						Source:       SourceESCO,
						SkillType:    rel.Skill.SkillType,
						RelationType: rel.RelationType,
					})
				}
			}
		}
	}
	if taxonomyErr != nil {
		s.deps.Log.Warn("Taxonomy lookup failed during research", "job_title", title, "error", taxonomyErr)
	}

	if s.deps.AI != nil {
		extra, err := s.researchBackend(ctx, title)
		if err != nil {
			if len(out.Candidates) == 0 {
				return p, failStage(s.Name(), "external source unavailable", err)
			}
			s.deps.Log.Warn("Research backend failed, continuing with taxonomy candidates", "job_title", title, "error", err)
		} else {
			out.Candidates = append(out.Candidates, extra...)
		}
	}

	if len(out.Candidates) == 0 {
		return p, failStage(s.Name(), fmt.Sprintf("no skill candidates found for %q", title), nil)
	}
	return out, nil
}

func (s *researchStage) researchBackend(ctx context.Context, title string) ([]SkillCandidate, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skills": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":       map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"source":      map[string]any{"type": "string", "enum": []string{SourceONET, SourceLightcast}},
					},
					"required":             []string{"label", "description", "source"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"skills"},
		"additionalProperties": false,
	}
	system := "You are an occupation research assistant. List skills required for a given occupation title, each attributed to ONET or LIGHTCAST."
	user := fmt.Sprintf("Occupation title: %s", title)
	res, err := s.deps.AI.GenerateJSON(ctx, system, user, "skill_research", schema)
	if err != nil {
		return nil, err
	}
	rawList, _ := res["skills"].([]any)
	var out []SkillCandidate
	for _, raw := range rawList {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		label := strings.TrimSpace(fmt.Sprint(m["label"]))
		if label == "" {
			continue
		}
		source := strings.ToUpper(strings.TrimSpace(fmt.Sprint(m["source"])))
		if source != SourceONET && source != SourceLightcast {
			source = SourceLightcast
		}
		out = append(out, SkillCandidate{
			Label:       label,
			Description: strings.TrimSpace(fmt.Sprint(m["description"])),
			Source:      source,
		})
	}
	return out, nil
}
