package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Resource is the allocator's view of a bookable resource.
type Resource struct {
	ID       uuid.UUID
	Name     string
	Capacity int
}

// Candidate is one feasible resource for a requested window, ranked by
// tightness of fit.
type Candidate struct {
	ResourceID uuid.UUID
	Name       string
	Capacity   int
	Used       int
	Leftover   int
}

// BestFit returns the feasible resources for the requested capacity,
// tightest fit first. usage maps resource id to the capacity already
// consumed by bookings overlapping the window.
//
// Ties on leftover capacity break by resource name (lexicographic,
// case-sensitive) so the ranking is deterministic. An empty result
// means no resource has enough free capacity; that is an expected
// outcome, not an error.
func BestFit(window Window, requiredCapacity int, resources []Resource, usage map[uuid.UUID]int) []Candidate {
	if requiredCapacity <= 0 {
		requiredCapacity = 1
	}

	candidates := make([]Candidate, 0, len(resources))
	for _, res := range resources {
		used := usage[res.ID]
		available := res.Capacity - used
		if available < requiredCapacity {
			continue
		}
		candidates = append(candidates, Candidate{
			ResourceID: res.ID,
			Name:       res.Name,
			Capacity:   res.Capacity,
			Used:       used,
			Leftover:   available - requiredCapacity,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Leftover != candidates[j].Leftover {
			return candidates[i].Leftover < candidates[j].Leftover
		}
		return candidates[i].Name < candidates[j].Name
	})

	return candidates
}
