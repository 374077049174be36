package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/littlebom/anlp-gmap-sub001/internal/clients/ai"
	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

// TaxonomyReader is the read-only slice of the taxonomy store stages are
// allowed to touch. Stages never write taxonomy rows.
type TaxonomyReader interface {
	FindOccupationByLabel(ctx context.Context, label string) (*types.Occupation, error)
	SkillsForOccupation(ctx context.Context, occupationID uuid.UUID) ([]repos.OccupationSkill, error)
}

// Stage is one ordered step of the generation pipeline. Run returns a new
// payload; it must not mutate its input. Failures come back as *StageError.
type Stage interface {
	Name() string
	Run(ctx context.Context, p Payload) (Payload, error)
}

// Deps carries the external capabilities stages may use. AI may be nil, in
// which case stages fall back to deterministic behavior where one exists.
type Deps struct {
	Taxonomy TaxonomyReader
	AI       ai.Client
	Log      *logger.Logger
}

// Stages returns the six executors in pipeline order.
func Stages(deps Deps) []Stage {
	return []Stage{
		&researchStage{deps: deps},
		&normalizeStage{deps: deps},
		&clusterStage{deps: deps},
		&gradeStage{deps: deps},
		&mapDependenciesStage{deps: deps},
		&validateStage{deps: deps},
	}
}
