package types

import (
	"time"

	"github.com/google/uuid"
)

// Taxonomy rows mirror the remote hierarchical source. The remote uri is the
// stable external identity; ids are local surrogates. Only the crawler writes
// these tables, always via upsert keyed on uri.

type IscoGroup struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	URI         string     `gorm:"column:uri;not null;uniqueIndex" json:"uri"`
	Code        string     `gorm:"column:code;index" json:"code"`
	PrefLabel   string     `gorm:"column:pref_label;not null" json:"pref_label"`
	Description string     `gorm:"column:description" json:"description"`
	ParentID    *uuid.UUID `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (IscoGroup) TableName() string { return "isco_group" }

type Occupation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	URI         string    `gorm:"column:uri;not null;uniqueIndex" json:"uri"`
	PrefLabel   string    `gorm:"column:pref_label;not null;index" json:"pref_label"`
	Description string    `gorm:"column:description" json:"description"`
	GroupID     uuid.UUID `gorm:"type:uuid;column:group_id;not null;index" json:"group_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Occupation) TableName() string { return "occupation" }

type Skill struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	URI         string    `gorm:"column:uri;not null;uniqueIndex" json:"uri"`
	SkillType   string    `gorm:"column:skill_type;index" json:"skill_type"`
	PrefLabel   string    `gorm:"column:pref_label;not null" json:"pref_label"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Skill) TableName() string { return "skill" }

const (
	RelationEssential = "ESSENTIAL"
	RelationOptional  = "OPTIONAL"
)

type OccupationSkillRelation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OccupationID uuid.UUID `gorm:"type:uuid;column:occupation_id;not null;uniqueIndex:idx_occupation_skill_pair" json:"occupation_id"`
	SkillID      uuid.UUID `gorm:"type:uuid;column:skill_id;not null;uniqueIndex:idx_occupation_skill_pair" json:"skill_id"`
	RelationType string    `gorm:"column:relation_type;not null" json:"relation_type"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (OccupationSkillRelation) TableName() string { return "occupation_skill_relation" }
