package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;column:course_id;not null;index" json:"course_id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	TitleTh     string         `gorm:"column:title_th" json:"title_th"`
	Description string         `gorm:"column:description" json:"description"`
	Duration    int            `gorm:"column:duration;not null;default:0" json:"duration"`
	ContentType string         `gorm:"column:content_type" json:"content_type"`
	// SortOrder is a dense 0-based sequence within the owning course.
	SortOrder   int            `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
