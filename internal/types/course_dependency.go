package types

import (
	"time"

	"github.com/google/uuid"
)

// CourseDependency is a prerequisite edge. The (prerequisite, dependent) pair
// is unique; the full edge set of a map must form a DAG.
type CourseDependency struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID                *uuid.UUID `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	PrerequisiteCourseID uuid.UUID  `gorm:"type:uuid;column:prerequisite_course_id;not null;uniqueIndex:idx_course_dependency_pair" json:"prerequisite_course_id"`
	DependentCourseID    uuid.UUID  `gorm:"type:uuid;column:dependent_course_id;not null;uniqueIndex:idx_course_dependency_pair" json:"dependent_course_id"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
}

func (CourseDependency) TableName() string { return "course_dependency" }
