package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/types"
)

// OccupationSkill is a skill joined with its relation type for one occupation.
type OccupationSkill struct {
	Skill        types.Skill
	RelationType string
}

// TaxonomyRepo owns the mirrored taxonomy tables. All writes are upserts
// keyed on the remote uri (or the occupation/skill pair for relations), so
// re-crawling an unchanged source is a no-op.
type TaxonomyRepo interface {
	UpsertGroup(ctx context.Context, tx *gorm.DB, group *types.IscoGroup) (*types.IscoGroup, error)
	UpsertOccupation(ctx context.Context, tx *gorm.DB, occ *types.Occupation) (*types.Occupation, error)
	UpsertSkill(ctx context.Context, tx *gorm.DB, skill *types.Skill) (*types.Skill, error)
	UpsertRelation(ctx context.Context, tx *gorm.DB, rel *types.OccupationSkillRelation) error

	GetGroupByURI(ctx context.Context, tx *gorm.DB, uri string) (*types.IscoGroup, error)
	GetSkillByURI(ctx context.Context, tx *gorm.DB, uri string) (*types.Skill, error)
	FindOccupationByLabel(ctx context.Context, tx *gorm.DB, label string) (*types.Occupation, error)
	SkillsForOccupation(ctx context.Context, tx *gorm.DB, occupationID uuid.UUID) ([]OccupationSkill, error)
}

type taxonomyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaxonomyRepo(db *gorm.DB, baseLog *logger.Logger) TaxonomyRepo {
	return &taxonomyRepo{
		db:  db,
		log: baseLog.With("repo", "TaxonomyRepo"),
	}
}

// UpsertGroup inserts the group if its uri is unknown; an existing row keeps
// its fields untouched.
func (r *taxonomyRepo) UpsertGroup(ctx context.Context, tx *gorm.DB, group *types.IscoGroup) (*types.IscoGroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if group == nil || group.URI == "" {
		return nil, nil
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uri"}},
			DoNothing: true,
		}).
		Create(group).Error
	if err != nil {
		return nil, err
	}
	return r.GetGroupByURI(ctx, transaction, group.URI)
}

// UpsertOccupation refreshes pref_label/description on conflict but keeps the
// existing row identity.
func (r *taxonomyRepo) UpsertOccupation(ctx context.Context, tx *gorm.DB, occ *types.Occupation) (*types.Occupation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if occ == nil || occ.URI == "" {
		return nil, nil
	}
	if occ.ID == uuid.Nil {
		occ.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uri"}},
			DoUpdates: clause.AssignmentColumns([]string{"pref_label", "description", "updated_at"}),
		}).
		Create(occ).Error
	if err != nil {
		return nil, err
	}
	var stored types.Occupation
	if err := transaction.WithContext(ctx).Where("uri = ?", occ.URI).Limit(1).Find(&stored).Error; err != nil {
		return nil, err
	}
	if stored.ID == uuid.Nil {
		return nil, nil
	}
	return &stored, nil
}

func (r *taxonomyRepo) UpsertSkill(ctx context.Context, tx *gorm.DB, skill *types.Skill) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if skill == nil || skill.URI == "" {
		return nil, nil
	}
	if skill.ID == uuid.Nil {
		skill.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uri"}},
			DoNothing: true,
		}).
		Create(skill).Error
	if err != nil {
		return nil, err
	}
	return r.GetSkillByURI(ctx, transaction, skill.URI)
}

// UpsertRelation overwrites relation_type when the pair already exists.
// Reprocessing an occupation may legitimately flip a skill between
// ESSENTIAL and OPTIONAL.
func (r *taxonomyRepo) UpsertRelation(ctx context.Context, tx *gorm.DB, rel *types.OccupationSkillRelation) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rel == nil || rel.OccupationID == uuid.Nil || rel.SkillID == uuid.Nil {
		return nil
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "occupation_id"}, {Name: "skill_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"relation_type", "updated_at"}),
		}).
		Create(rel).Error
}

func (r *taxonomyRepo) GetGroupByURI(ctx context.Context, tx *gorm.DB, uri string) (*types.IscoGroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if uri == "" {
		return nil, nil
	}
	var group types.IscoGroup
	if err := transaction.WithContext(ctx).Where("uri = ?", uri).Limit(1).Find(&group).Error; err != nil {
		return nil, err
	}
	if group.ID == uuid.Nil {
		return nil, nil
	}
	return &group, nil
}

func (r *taxonomyRepo) GetSkillByURI(ctx context.Context, tx *gorm.DB, uri string) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if uri == "" {
		return nil, nil
	}
	var skill types.Skill
	if err := transaction.WithContext(ctx).Where("uri = ?", uri).Limit(1).Find(&skill).Error; err != nil {
		return nil, err
	}
	if skill.ID == uuid.Nil {
		return nil, nil
	}
	return &skill, nil
}

// FindOccupationByLabel does a case-insensitive match, preferring an exact
// label before falling back to a contains match.
func (r *taxonomyRepo) FindOccupationByLabel(ctx context.Context, tx *gorm.DB, label string) (*types.Occupation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return nil, nil
	}
	var occ types.Occupation
	if err := transaction.WithContext(ctx).
		Where("lower(pref_label) = ?", needle).
		Limit(1).
		Find(&occ).Error; err != nil {
		return nil, err
	}
	if occ.ID != uuid.Nil {
		return &occ, nil
	}
	if err := transaction.WithContext(ctx).
		Where("lower(pref_label) LIKE ?", "%"+needle+"%").
		Order("pref_label ASC").
		Limit(1).
		Find(&occ).Error; err != nil {
		return nil, err
	}
	if occ.ID == uuid.Nil {
		return nil, nil
	}
	return &occ, nil
}

func (r *taxonomyRepo) SkillsForOccupation(ctx context.Context, tx *gorm.DB, occupationID uuid.UUID) ([]OccupationSkill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []OccupationSkill
	if occupationID == uuid.Nil {
		return out, nil
	}
	var rels []types.OccupationSkillRelation
	if err := transaction.WithContext(ctx).
		Where("occupation_id = ?", occupationID).
		Find(&rels).Error; err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rels))
	relBySkill := make(map[uuid.UUID]string, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.SkillID)
		relBySkill[rel.SkillID] = rel.RelationType
	}
	var skills []types.Skill
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&skills).Error; err != nil {
		return nil, err
	}
	for _, sk := range skills {
		out = append(out, OccupationSkill{Skill: sk, RelationType: relBySkill[sk.ID]})
	}
	return out, nil
}
