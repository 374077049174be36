package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CourseCategoryTechnical = "TECHNICAL"
	CourseCategorySoft      = "SOFT"
	CourseCategoryTool      = "TOOL"
)

const (
	CourseStatusDraft     = "DRAFT"
	CourseStatusPublished = "PUBLISHED"
)

type Course struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID          *uuid.UUID     `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	JobGroupID     *uuid.UUID     `gorm:"type:uuid;column:job_group_id;index" json:"job_group_id,omitempty"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	TitleTh        string         `gorm:"column:title_th" json:"title_th"`
	Description    string         `gorm:"column:description" json:"description"`
	Category       string         `gorm:"column:category;not null" json:"category"`
	SfiaLevel      int            `gorm:"column:sfia_level;not null;default:0" json:"sfia_level"`
	EstimatedHours int            `gorm:"column:estimated_hours;not null;default:0" json:"estimated_hours"`
	IsShared       bool           `gorm:"column:is_shared;not null;default:false" json:"is_shared"`
	SharedCount    int            `gorm:"column:shared_count;not null;default:0" json:"shared_count"`
	Status         string         `gorm:"column:status;not null;default:DRAFT" json:"status"`
	SortOrder      int            `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	Lessons        []Lesson       `gorm:"foreignKey:CourseID;references:ID" json:"lessons"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
