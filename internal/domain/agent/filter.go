package agent

import "strings"

// Filters narrows an agent collection. Zero-valued fields impose no
// constraint; active fields combine as a conjunction.
type Filters struct {
	IsGreen *bool  `json:"is_green,omitempty"`
	IsLive  *bool  `json:"is_live,omitempty"`
	Search  string `json:"search,omitempty"`
}

// Active reports whether any filter field is set.
func (f Filters) Active() bool {
	return f.IsGreen != nil || f.IsLive != nil || f.Search != ""
}

// Match reports whether the agent satisfies every active filter. The
// search term is a case-insensitive substring match over the alias and
// the card's name and description.
func (f Filters) Match(a Agent) bool {
	if f.IsGreen != nil && a.IsGreen != *f.IsGreen {
		return false
	}
	if f.IsLive != nil && a.IsLive() != *f.IsLive {
		return false
	}
	if f.Search != "" && !matchSearch(a, f.Search) {
		return false
	}
	return true
}

// Filter returns the agents satisfying the filters, preserving input
// order. With no active filters the input is returned unchanged.
func (f Filters) Filter(agents []Agent) []Agent {
	if !f.Active() {
		return agents
	}
	return partition(agents, f.Match)
}

func matchSearch(a Agent, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(a.Alias), term) {
		return true
	}
	if a.Card == nil {
		return false
	}
	return strings.Contains(strings.ToLower(a.Card.Name), term) ||
		strings.Contains(strings.ToLower(a.Card.Description), term)
}
