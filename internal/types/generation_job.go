package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
	JobStatusPublished  = "PUBLISHED"
)

const (
	StepResearch        = "RESEARCH"
	StepNormalize       = "NORMALIZE"
	StepCluster         = "CLUSTER"
	StepGrade           = "GRADE"
	StepMapDependencies = "MAP_DEPENDENCIES"
	StepValidate        = "VALIDATE"
)

// GenerationJob is one request to synthesize a learning map for an occupation
// title. mapData is set in the same write that marks the job COMPLETED, so a
// poller never observes a half-finished terminal state.
type GenerationJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobTitle    string         `gorm:"column:job_title;not null" json:"job_title"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	CurrentStep *string        `gorm:"column:current_step" json:"current_step,omitempty"`
	MapData     datatypes.JSON `gorm:"type:jsonb;column:map_data" json:"map_data,omitempty"`
	Error       *string        `gorm:"column:error" json:"error,omitempty"`
	JobGroupID  *uuid.UUID     `gorm:"type:uuid;column:job_group_id;index" json:"job_group_id,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationJob) TableName() string { return "generation_job" }

func TerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusPublished
}
