package pipeline

import (
	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

const (
	SourceESCO      = "ESCO"
	SourceONET      = "ONET"
	SourceLightcast = "LIGHTCAST"
)

// SkillCandidate is a raw research hit, tagged by where it came from.
type SkillCandidate struct {
	Label        string `json:"label"`
	Description  string `json:"description"`
	Source       string `json:"source"`
	SkillType    string `json:"skill_type,omitempty"`
	RelationType string `json:"relation_type,omitempty"`
}

// NormalizedSkill is a deduplicated, categorized skill record.
type NormalizedSkill struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LessonDraft struct {
	Title       string `json:"title"`
	TitleTh     string `json:"title_th"`
	Description string `json:"description"`
	ContentType string `json:"content_type"`
	Duration    int    `json:"duration"`
	SortOrder   int    `json:"sort_order"`
}

// CourseDraft is a candidate course as it moves through CLUSTER and GRADE.
// Its id is fixed at CLUSTER time; later stages and edges refer to it.
type CourseDraft struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	TitleTh        string        `json:"title_th"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	SfiaLevel      int           `json:"sfia_level"`
	EstimatedHours int           `json:"estimated_hours"`
	Skills         []string      `json:"skills"`
	Lessons        []LessonDraft `json:"lessons"`
}

// Edge is a candidate prerequisite pair. Unvalidated until VALIDATE.
type Edge struct {
	Prerequisite uuid.UUID `json:"prerequisite"`
	Dependent    uuid.UUID `json:"dependent"`
}

// Payload is the accumulated working data handed from stage to stage. Stages
// never mutate their input; Clone gives each stage its own copy to extend.
type Payload struct {
	JobTitle   string           `json:"job_title"`
	Candidates []SkillCandidate `json:"candidates,omitempty"`
	Skills     []NormalizedSkill `json:"skills,omitempty"`
	Courses    []CourseDraft    `json:"courses,omitempty"`
	Edges      []Edge           `json:"edges,omitempty"`
	Map        *types.MapData   `json:"map,omitempty"`
}

func (p Payload) Clone() Payload {
	out := Payload{JobTitle: p.JobTitle}
	if len(p.Candidates) > 0 {
		out.Candidates = append([]SkillCandidate(nil), p.Candidates...)
	}
	if len(p.Skills) > 0 {
		out.Skills = append([]NormalizedSkill(nil), p.Skills...)
	}
	if len(p.Courses) > 0 {
		out.Courses = make([]CourseDraft, len(p.Courses))
		for i, c := range p.Courses {
			cc := c
			cc.Skills = append([]string(nil), c.Skills...)
			cc.Lessons = append([]LessonDraft(nil), c.Lessons...)
			out.Courses[i] = cc
		}
	}
	if len(p.Edges) > 0 {
		out.Edges = append([]Edge(nil), p.Edges...)
	}
	out.Map = p.Map
	return out
}
