// Package arena defines the ports (interfaces) between the entity
// stores and their external collaborators: the arena backend HTTP API,
// the battle live feed, and the bearer-token source. Stores receive
// implementations through their constructors so tests can substitute
// fakes.
package arena

import (
	"context"

	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/result"
)

// TokenProvider supplies the bearer token attached to backend calls.
// An empty token is not an error; the call degrades to an
// unauthenticated request.
type TokenProvider interface {
	AccessToken(ctx context.Context) string
}

// TokenFunc adapts a function to the TokenProvider interface.
type TokenFunc func(ctx context.Context) string

// AccessToken implements TokenProvider.
func (f TokenFunc) AccessToken(ctx context.Context) string { return f(ctx) }

// StaticToken is a TokenProvider returning a fixed token. The empty
// string yields unauthenticated requests.
type StaticToken string

// AccessToken implements TokenProvider.
func (t StaticToken) AccessToken(context.Context) string { return string(t) }

// ListAgentsOptions narrows an agent listing call.
type ListAgentsOptions struct {
	Scope         agent.Scope
	CheckLiveness bool
	IsGreen       *bool
}

// AgentsAPI is the port for the backend's agent endpoints. Every call
// returns the uniform envelope; implementations never surface expected
// failures as Go errors.
type AgentsAPI interface {
	List(ctx context.Context, opts ListAgentsOptions) result.Result[[]agent.Agent]
	Get(ctx context.Context, agentID string) result.Result[agent.Agent]
	Register(ctx context.Context, req agent.RegisterRequest) result.Result[agent.Agent]
	Update(ctx context.Context, agentID string, patch agent.UpdateRequest) result.Result[agent.Agent]
	Delete(ctx context.Context, agentID string) result.Result[bool]
}

// BattlesAPI is the port for the backend's battle endpoints.
type BattlesAPI interface {
	List(ctx context.Context, userID string) result.Result[[]battle.Battle]
	Get(ctx context.Context, battleID string) result.Result[battle.Battle]
	Create(ctx context.Context, req battle.CreateRequest) result.Result[battle.Battle]
	Update(ctx context.Context, battleID string, patch battle.UpdateRequest) result.Result[battle.Battle]
}

// Feed message types carried on the battle live channel.
const (
	FeedBattlesUpdate = "battles_update" // full-roster replace
	FeedBattleUpdate  = "battle_update"  // single-battle delta
)

// FeedMessage is one inbound message from the battle live channel. The
// channel is receive-only; the client never sends.
type FeedMessage struct {
	Type    string          `json:"type"`
	Battles []battle.Battle `json:"battles,omitempty"`
	Battle  *battle.Battle  `json:"battle,omitempty"`
}

// FeedState is the connection state of the live channel.
type FeedState string

const (
	FeedDisconnected FeedState = "disconnected"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
)

// BattleFeed is the port for the battle live channel. Connect is
// idempotent while a connection is alive; there is no automatic
// reconnect — after a drop the owner calls Connect again.
type BattleFeed interface {
	// Connect opens the channel and delivers inbound messages to
	// onMessage and state transitions to onState. Both callbacks are
	// invoked from the feed's read loop.
	Connect(ctx context.Context, onMessage func(FeedMessage), onState func(FeedState)) error

	// Disconnect closes the channel. Safe to call when not connected.
	Disconnect()

	// State returns the current connection state.
	State() FeedState
}
