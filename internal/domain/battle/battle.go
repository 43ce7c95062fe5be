// Package battle defines the Battle domain entity and its projections.
package battle

import (
	"errors"
	"time"
)

// State represents the current stage of a battle. Exactly one state
// holds at a time.
type State string

const (
	StatePending   State = "pending"
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
	StateError     State = "error"
)

// Terminal reports whether no further state transition is expected. A
// battle observed in a terminal state must never be overwritten by a
// stale non-terminal snapshot.
func (s State) Terminal() bool {
	switch s {
	case StateFinished, StateCancelled, StateError:
		return true
	}
	return false
}

// Winner identifies the winning side of a finished battle.
type Winner string

const (
	WinnerRed  Winner = "red"
	WinnerBlue Winner = "blue"
	WinnerDraw Winner = "draw"
)

// Outcome is the result of a battle, present only in terminal states.
type Outcome struct {
	Winner Winner `json:"winner"`
	Reason string `json:"reason"`
}

// Battle represents one staged competition between agents. BattleID is
// the sole identity key. Agent role references are optional; not all
// roles are filled at creation.
type Battle struct {
	BattleID     string     `json:"battle_id"`
	GreenAgentID string     `json:"green_agent_id,omitempty"`
	RedAgentID   string     `json:"red_agent_id,omitempty"`
	BlueAgentID  string     `json:"blue_agent_id,omitempty"`
	State        State      `json:"state"`
	Scenario     string     `json:"scenario,omitempty"`
	Result       *Outcome   `json:"result,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// HasParticipant reports whether the agent fills any role in the battle.
func (b Battle) HasParticipant(agentID string) bool {
	return agentID != "" &&
		(b.GreenAgentID == agentID || b.RedAgentID == agentID || b.BlueAgentID == agentID)
}

// Opponent names one participant slot when staging a battle.
type Opponent struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
}

// CreateRequest holds the fields needed to stage a new battle.
type CreateRequest struct {
	GreenAgentID string         `json:"green_agent_id"`
	Opponents    []Opponent     `json:"opponents"`
	Config       map[string]any `json:"config,omitempty"`
	CreatedBy    string         `json:"created_by,omitempty"`
}

// Validate checks that the request can be submitted.
func (r CreateRequest) Validate() error {
	if r.GreenAgentID == "" {
		return errors.New("green_agent_id is required")
	}
	if len(r.Opponents) == 0 {
		return errors.New("at least one opponent is required")
	}
	for _, o := range r.Opponents {
		if o.AgentID == "" {
			return errors.New("opponent agent_id is required")
		}
	}
	return nil
}

// UpdateRequest is a partial patch applied to an existing battle.
// The backend accepts it via POST on the battle resource.
type UpdateRequest struct {
	State      State      `json:"state,omitempty"`
	Result     *Outcome   `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
