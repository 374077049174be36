package pipeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestTopologicalOrderVisitsAllNodes(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ids := []uuid.UUID{d, c, b, a}
	edges := []Edge{
		{Prerequisite: a, Dependent: b},
		{Prerequisite: b, Dependent: c},
		{Prerequisite: a, Dependent: d},
	}

	order, err := TopologicalOrder(ids, edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("order length want=4 got=%d", len(order))
	}
	pos := map[uuid.UUID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[a] > pos[b] || pos[b] > pos[c] || pos[a] > pos[d] {
		t.Fatalf("order violates edges: %v", pos)
	}
}

func TestTopologicalOrderStableForIndependentNodes(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ids := []uuid.UUID{c, a, b}

	order, err := TopologicalOrder(ids, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range ids {
		if order[i] != want {
			t.Fatalf("position %d: want=%s got=%s", i, want, order[i])
		}
	}
}

func TestTopologicalOrderRejectsCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ids := []uuid.UUID{a, b, c}
	edges := []Edge{
		{Prerequisite: a, Dependent: b},
		{Prerequisite: b, Dependent: c},
		{Prerequisite: c, Dependent: a},
	}

	_, err := TopologicalOrder(ids, edges)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("want CycleError got %v", err)
	}
}

func TestTopologicalOrderRejectsDanglingEdge(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ghost := uuid.New()
	ids := []uuid.UUID{a, b}
	edges := []Edge{{Prerequisite: a, Dependent: ghost}}

	_, err := TopologicalOrder(ids, edges)
	var danglingErr *DanglingEdgeError
	if !errors.As(err, &danglingErr) {
		t.Fatalf("want DanglingEdgeError got %v", err)
	}
	if danglingErr.CourseID != ghost {
		t.Fatalf("dangling course want=%s got=%s", ghost, danglingErr.CourseID)
	}
}

func TestTopologicalOrderRejectsSelfLoop(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := []uuid.UUID{a, b}
	edges := []Edge{{Prerequisite: a, Dependent: a}}

	_, err := TopologicalOrder(ids, edges)
	var selfErr *SelfLoopError
	if !errors.As(err, &selfErr) {
		t.Fatalf("want SelfLoopError got %v", err)
	}
}

func TestTopologicalOrderRejectsDuplicateEdge(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := []uuid.UUID{a, b}
	edges := []Edge{
		{Prerequisite: a, Dependent: b},
		{Prerequisite: a, Dependent: b},
	}

	_, err := TopologicalOrder(ids, edges)
	var dupErr *DuplicateEdgeError
	if !errors.As(err, &dupErr) {
		t.Fatalf("want DuplicateEdgeError got %v", err)
	}
}

func TestTopologicalOrderPartialCycleStillRejected(t *testing.T) {
	// A valid prefix must not mask a cycle further down the graph.
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ids := []uuid.UUID{a, b, c}
	edges := []Edge{
		{Prerequisite: a, Dependent: b},
		{Prerequisite: b, Dependent: c},
		{Prerequisite: c, Dependent: b},
	}

	_, err := TopologicalOrder(ids, edges)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("want CycleError got %v", err)
	}
}
