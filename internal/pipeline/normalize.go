package pipeline

import (
	"context"
	"strings"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type normalizeStage struct {
	deps Deps
}

func (s *normalizeStage) Name() string { return types.StepNormalize }

// Run turns raw candidates into {label, description, category} records,
// deduplicated by normalized label. First occurrence wins; a later duplicate
// may still upgrade an empty description.
func (s *normalizeStage) Run(ctx context.Context, p Payload) (Payload, error) {
	if len(p.Candidates) == 0 {
		return p, failStage(s.Name(), "no candidates to normalize", nil)
	}

	out := p.Clone()
	out.Skills = nil

	seen := map[string]int{}
	for _, cand := range p.Candidates {
		label := normalizeLabel(cand.Label)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if idx, ok := seen[key]; ok {
			if out.Skills[idx].Description == "" && cand.Description != "" {
				out.Skills[idx].Description = strings.TrimSpace(cand.Description)
			}
			continue
		}
		seen[key] = len(out.Skills)
		out.Skills = append(out.Skills, NormalizedSkill{
			Label:       label,
			Description: strings.TrimSpace(cand.Description),
			Category:    categorize(cand),
		})
	}

	if len(out.Skills) == 0 {
		return p, failStage(s.Name(), "ambiguous normalization: all candidate labels were empty", nil)
	}
	return out, nil
}

// normalizeLabel trims and collapses internal whitespace, keeping original
// casing for display.
func normalizeLabel(label string) string {
	fields := strings.Fields(label)
	return strings.Join(fields, " ")
}

var softMarkers = []string{"soft", "transversal", "attitude", "communication", "teamwork", "leadership"}
var toolMarkers = []string{"tool", "software", "platform", "framework", "ide"}

func categorize(cand SkillCandidate) string {
	hay := strings.ToLower(cand.SkillType + " " + cand.Label)
	for _, m := range softMarkers {
		if strings.Contains(hay, m) {
			return types.CourseCategorySoft
		}
	}
	for _, m := range toolMarkers {
		if strings.Contains(hay, m) {
			return types.CourseCategoryTool
		}
	}
	return types.CourseCategoryTechnical
}
