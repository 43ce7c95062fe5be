package arena

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/result"
)

// BattlesService implements the battles port over the backend HTTP API.
type BattlesService struct {
	client *Client
}

// NewBattlesService creates the battles service adapter.
func NewBattlesService(client *Client) *BattlesService {
	return &BattlesService{client: client}
}

// List returns all battles, optionally restricted to those created by
// the given user.
func (s *BattlesService) List(ctx context.Context, userID string) result.Result[[]battle.Battle] {
	var query url.Values
	if userID != "" {
		query = url.Values{"user_id": {userID}}
	}

	body, status, err := s.client.doRequest(ctx, http.MethodGet, "/battles", query, nil)
	if err != nil {
		return result.Fail[[]battle.Battle](err.Error())
	}
	if !is2xx(status) {
		return result.Fail[[]battle.Battle](failureMessage(body, status))
	}

	battles, err := decodeBattleList(body)
	if err != nil {
		return result.Fail[[]battle.Battle]("failed to parse response")
	}
	return result.Ok(battles)
}

// decodeBattleList accepts the two response shapes the backend has
// shipped: a bare array, and the legacy `{"battles": [...]}` wrapper.
// The wrapper is an API versioning wart kept for compatibility, not a
// shape to extend.
func decodeBattleList(body []byte) ([]battle.Battle, error) {
	var battles []battle.Battle
	if err := json.Unmarshal(body, &battles); err == nil {
		return battles, nil
	}

	var legacy struct {
		Battles []battle.Battle `json:"battles"`
	}
	if err := json.Unmarshal(body, &legacy); err != nil {
		return nil, err
	}
	return legacy.Battles, nil
}

// Get returns a single battle by id.
func (s *BattlesService) Get(ctx context.Context, battleID string) result.Result[battle.Battle] {
	return exchange[battle.Battle](ctx, s.client, http.MethodGet, "/battles/"+url.PathEscape(battleID), nil, nil)
}

// Create stages a new battle.
func (s *BattlesService) Create(ctx context.Context, req battle.CreateRequest) result.Result[battle.Battle] {
	if err := req.Validate(); err != nil {
		return result.Fail[battle.Battle](err.Error())
	}
	return exchange[battle.Battle](ctx, s.client, http.MethodPost, "/battles", nil, req)
}

// Update applies a partial patch to a battle. The backend accepts
// updates via POST on the battle resource, not PUT or PATCH.
func (s *BattlesService) Update(ctx context.Context, battleID string, patch battle.UpdateRequest) result.Result[battle.Battle] {
	return exchange[battle.Battle](ctx, s.client, http.MethodPost, "/battles/"+url.PathEscape(battleID), nil, patch)
}
