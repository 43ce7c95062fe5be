package battle

import (
	"sort"
	"time"
)

// Partition splits a collection into ongoing (pending, queued, running)
// and past (finished, cancelled, error) battles. The split is exhaustive
// and disjoint, and both halves are sorted most-recent-first by
// creation time. The input slice is not modified.
func Partition(battles []Battle) (ongoing, past []Battle) {
	for _, b := range battles {
		if b.State.Terminal() {
			past = append(past, b)
		} else {
			ongoing = append(ongoing, b)
		}
	}
	SortByCreated(ongoing)
	SortByCreated(past)
	return ongoing, past
}

// SortByCreated orders battles in place, most-recent-first.
func SortByCreated(battles []Battle) {
	sort.SliceStable(battles, func(i, j int) bool {
		return battles[i].CreatedAt.After(battles[j].CreatedAt)
	})
}

// ForAgentSince returns the battles in which the agent fills any role
// and whose creation time is at or after the cutoff. Order is preserved.
func ForAgentSince(battles []Battle, agentID string, cutoff time.Time) []Battle {
	out := make([]Battle, 0, len(battles))
	for _, b := range battles {
		if b.HasParticipant(agentID) && !b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}
