package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

type CourseDependencyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, edges []*types.CourseDependency) ([]*types.CourseDependency, error)
	GetByJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.CourseDependency, error)
}

type courseDependencyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseDependencyRepo(db *gorm.DB, baseLog *logger.Logger) CourseDependencyRepo {
	return &courseDependencyRepo{
		db:  db,
		log: baseLog.With("repo", "CourseDependencyRepo"),
	}
}

func (r *courseDependencyRepo) Create(ctx context.Context, tx *gorm.DB, edges []*types.CourseDependency) ([]*types.CourseDependency, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(edges) == 0 {
		return []*types.CourseDependency{}, nil
	}
	for _, e := range edges {
		if e != nil && e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *courseDependencyRepo) GetByJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.CourseDependency, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CourseDependency
	if jobID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
