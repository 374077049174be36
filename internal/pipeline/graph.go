package pipeline

import (
	"github.com/google/uuid"
)

// TopologicalOrder validates a candidate edge set against a course id set and
// returns one valid topological order. Order among independent courses
// follows input order (Kahn in-degree elimination, stable). A cycle is an
// error naming at least one offending edge; the caller must not drop edges to
// recover.
func TopologicalOrder(courseIDs []uuid.UUID, edges []Edge) ([]uuid.UUID, error) {
	known := make(map[uuid.UUID]bool, len(courseIDs))
	for _, id := range courseIDs {
		known[id] = true
	}

	seenPair := make(map[[2]uuid.UUID]bool, len(edges))
	for _, e := range edges {
		if !known[e.Prerequisite] {
			return nil, &DanglingEdgeError{CourseID: e.Prerequisite, Prerequisite: e.Prerequisite, Dependent: e.Dependent}
		}
		if !known[e.Dependent] {
			return nil, &DanglingEdgeError{CourseID: e.Dependent, Prerequisite: e.Prerequisite, Dependent: e.Dependent}
		}
		if e.Prerequisite == e.Dependent {
			return nil, &SelfLoopError{CourseID: e.Prerequisite}
		}
		pair := [2]uuid.UUID{e.Prerequisite, e.Dependent}
		if seenPair[pair] {
			return nil, &DuplicateEdgeError{Prerequisite: e.Prerequisite, Dependent: e.Dependent}
		}
		seenPair[pair] = true
	}

	deg := make(map[uuid.UUID]int, len(courseIDs))
	out := make(map[uuid.UUID][]uuid.UUID, len(courseIDs))
	for _, id := range courseIDs {
		deg[id] = 0
	}
	for _, e := range edges {
		deg[e.Dependent]++
		out[e.Prerequisite] = append(out[e.Prerequisite], e.Dependent)
	}

	order := make([]uuid.UUID, 0, len(courseIDs))
	added := make(map[uuid.UUID]bool, len(courseIDs))
	for {
		progressed := false
		for _, id := range courseIDs {
			if added[id] {
				continue
			}
			if deg[id] == 0 {
				added[id] = true
				order = append(order, id)
				for _, n := range out[id] {
					deg[n]--
				}
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	if len(order) != len(courseIDs) {
		// Every remaining node sits on or behind a cycle; report an edge
		// between two unplaced nodes as the offender.
		for _, e := range edges {
			if !added[e.Prerequisite] && !added[e.Dependent] {
				return nil, &CycleError{Prerequisite: e.Prerequisite, Dependent: e.Dependent}
			}
		}
		return nil, &CycleError{}
	}
	return order, nil
}
