package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobGroup is an occupation-family classification a published map's courses
// can be associated with.
type JobGroup struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobGroup) TableName() string { return "job_group" }
