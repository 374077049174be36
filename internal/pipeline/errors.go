package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// StageError is the typed failure a stage returns. The orchestrator captures
// its message verbatim on the job row; stages never retry themselves.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func failStage(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Err: err}
}

// CycleError reports that the candidate edge set contains a cycle, naming at
// least one edge on it.
type CycleError struct {
	Prerequisite uuid.UUID
	Dependent    uuid.UUID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected through edge %s -> %s", e.Prerequisite, e.Dependent)
}

// DanglingEdgeError reports an edge referencing a course id outside the
// course set.
type DanglingEdgeError struct {
	CourseID     uuid.UUID
	Prerequisite uuid.UUID
	Dependent    uuid.UUID
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown course %s", e.Prerequisite, e.Dependent, e.CourseID)
}

// SelfLoopError reports an edge whose prerequisite and dependent are the same
// course.
type SelfLoopError struct {
	CourseID uuid.UUID
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("self-loop edge on course %s", e.CourseID)
}

// DuplicateEdgeError reports a repeated (prerequisite, dependent) pair.
type DuplicateEdgeError struct {
	Prerequisite uuid.UUID
	Dependent    uuid.UUID
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("duplicate edge %s -> %s", e.Prerequisite, e.Dependent)
}
