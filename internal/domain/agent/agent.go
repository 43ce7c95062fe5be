// Package agent defines the Agent domain entity and its projections.
package agent

import (
	"errors"
	"time"
)

// Card describes an agent's self-reported metadata. It may arrive later
// than the base record and every field is optional.
type Card struct {
	Name            string         `json:"name,omitempty"`
	Description     string         `json:"description,omitempty"`
	Version         string         `json:"version,omitempty"`
	ProtocolVersion string         `json:"protocolVersion,omitempty"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	Skills          []Skill        `json:"skills,omitempty"`
}

// Skill describes a single capability advertised in an agent card.
type Skill struct {
	Name string `json:"name"`
}

// EloStats holds aggregate match statistics backing an Elo rating.
type EloStats struct {
	WinRate     float64 `json:"win_rate"`
	GamesPlayed int     `json:"games_played"`
}

// Elo is the backend-computed rating summary for an agent.
type Elo struct {
	Rating float64   `json:"rating"`
	Stats  *EloStats `json:"stats,omitempty"`
}

// Agent represents a registered competition agent. AgentID is the sole
// identity key; Alias and card name are display-only and never used for
// matching.
type Agent struct {
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	Alias     string    `json:"alias"`
	IsHosted  bool      `json:"is_hosted"`
	IsGreen   bool      `json:"is_green"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Card      *Card     `json:"agent_card,omitempty"`
	Elo       *Elo      `json:"elo,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Live is the server-probed liveness of the agent's endpoint. It is
	// unset until a listing with the liveness probe has resolved.
	Live *bool `json:"live,omitempty"`

	// LivenessLoading marks a record whose liveness enrichment is still
	// in flight. Client-side only, never sent by the backend.
	LivenessLoading bool `json:"-"`
}

// Rating returns the agent's Elo rating, treating unrated agents as 0
// so they sort below any rated agent.
func (a Agent) Rating() float64 {
	if a.Elo == nil {
		return 0
	}
	return a.Elo.Rating
}

// WinRate returns the agent's win rate, or 0 when no stats exist.
func (a Agent) WinRate() float64 {
	if a.Elo == nil || a.Elo.Stats == nil {
		return 0
	}
	return a.Elo.Stats.WinRate
}

// IsLive reports whether the agent's endpoint answered its last health
// probe. Unset liveness counts as not live.
func (a Agent) IsLive() bool {
	return a.Live != nil && *a.Live
}

// ParticipantRequirement describes one role a green agent expects to be
// filled when a battle is staged against it.
type ParticipantRequirement struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// RegisterRequest holds the fields needed to register a new agent.
type RegisterRequest struct {
	Alias                   string                   `json:"alias"`
	AgentURL                string                   `json:"agent_url,omitempty"`
	LauncherURL             string                   `json:"launcher_url,omitempty"`
	IsGreen                 bool                     `json:"is_green"`
	IsHosted                bool                     `json:"is_hosted"`
	BattleDescription       string                   `json:"battle_description,omitempty"`
	DockerImageLink         string                   `json:"docker_image_link,omitempty"`
	ParticipantRequirements []ParticipantRequirement `json:"participant_requirements,omitempty"`
	BattleTimeout           int                      `json:"battle_timeout,omitempty"`
}

// Validate checks that the request can be submitted.
func (r RegisterRequest) Validate() error {
	if r.Alias == "" {
		return errors.New("alias is required")
	}
	if r.IsHosted {
		if r.DockerImageLink == "" {
			return errors.New("docker_image_link is required for hosted agents")
		}
		return nil
	}
	if r.AgentURL == "" {
		return errors.New("agent_url is required for non-hosted agents")
	}
	return nil
}

// UpdateRequest is a partial patch applied to an existing agent. Nil
// fields are left untouched.
type UpdateRequest struct {
	Alias     *string `json:"alias,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Ready     *bool   `json:"ready,omitempty"`
}

// Apply merges the patch into a copy of the given agent.
func (r UpdateRequest) Apply(a Agent) Agent {
	if r.Alias != nil {
		a.Alias = *r.Alias
	}
	if r.AvatarURL != nil {
		a.AvatarURL = *r.AvatarURL
	}
	return a
}

// Scope selects which agents a listing call returns.
type Scope string

const (
	ScopeAll  Scope = "all"  // every registered agent
	ScopeMine Scope = "mine" // only the caller's own agents
)
