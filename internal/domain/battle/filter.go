package battle

import (
	"slices"
	"strings"
	"time"
)

// Filters narrows a battle collection. Zero-valued fields impose no
// constraint; active fields combine as a conjunction.
type Filters struct {
	States   []State    `json:"states,omitempty"`
	AgentID  string     `json:"agent_id,omitempty"`
	Scenario string     `json:"scenario,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

// Active reports whether any filter field is set.
func (f Filters) Active() bool {
	return len(f.States) > 0 || f.AgentID != "" || f.Scenario != "" ||
		f.From != nil || f.To != nil
}

// Match reports whether the battle satisfies every active filter. The
// scenario term is a case-insensitive substring match; the date range
// is inclusive on both ends.
func (f Filters) Match(b Battle) bool {
	if len(f.States) > 0 && !slices.Contains(f.States, b.State) {
		return false
	}
	if f.AgentID != "" && !b.HasParticipant(f.AgentID) {
		return false
	}
	if f.Scenario != "" &&
		!strings.Contains(strings.ToLower(b.Scenario), strings.ToLower(f.Scenario)) {
		return false
	}
	if f.From != nil && b.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && b.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// Filter returns the battles satisfying the filters, preserving input
// order. With no active filters the input is returned unchanged.
func (f Filters) Filter(battles []Battle) []Battle {
	if !f.Active() {
		return battles
	}
	out := make([]Battle, 0, len(battles))
	for _, b := range battles {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}
