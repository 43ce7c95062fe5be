package arena

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/port/arena"
	"github.com/agentarena/arenasync/internal/result"
)

// AgentsService implements the agents port over the backend HTTP API.
type AgentsService struct {
	client *Client
}

// NewAgentsService creates the agents service adapter.
func NewAgentsService(client *Client) *AgentsService {
	return &AgentsService{client: client}
}

// List returns agents matching the options. The liveness probe is only
// requested when opts.CheckLiveness is set; a plain listing is fast and
// carries no liveness information.
func (s *AgentsService) List(ctx context.Context, opts arena.ListAgentsOptions) result.Result[[]agent.Agent] {
	scope := opts.Scope
	if scope == "" {
		scope = agent.ScopeAll
	}

	query := url.Values{"scope": {string(scope)}}
	if opts.CheckLiveness {
		query.Set("check_liveness", "true")
	}
	if opts.IsGreen != nil {
		query.Set("is_green", strconv.FormatBool(*opts.IsGreen))
	}

	return exchange[[]agent.Agent](ctx, s.client, http.MethodGet, "/agents", query, nil)
}

// Get returns a single agent by id.
func (s *AgentsService) Get(ctx context.Context, agentID string) result.Result[agent.Agent] {
	return exchange[agent.Agent](ctx, s.client, http.MethodGet, "/agents/"+url.PathEscape(agentID), nil, nil)
}

// Register creates a new agent from the given registration payload.
func (s *AgentsService) Register(ctx context.Context, req agent.RegisterRequest) result.Result[agent.Agent] {
	if err := req.Validate(); err != nil {
		return result.Fail[agent.Agent](err.Error())
	}
	return exchange[agent.Agent](ctx, s.client, http.MethodPost, "/agents", nil, req)
}

// Update applies a partial patch to an agent.
func (s *AgentsService) Update(ctx context.Context, agentID string, patch agent.UpdateRequest) result.Result[agent.Agent] {
	return exchange[agent.Agent](ctx, s.client, http.MethodPut, "/agents/"+url.PathEscape(agentID), nil, patch)
}

// Delete removes an agent. The backend body is not decoded; any 2xx
// status is a confirmed deletion.
func (s *AgentsService) Delete(ctx context.Context, agentID string) result.Result[bool] {
	body, status, err := s.client.doRequest(ctx, http.MethodDelete, "/agents/"+url.PathEscape(agentID), nil, nil)
	if err != nil {
		return result.Fail[bool](err.Error())
	}
	if !is2xx(status) {
		return result.Fail[bool](failureMessage(body, status))
	}
	return result.Ok(true)
}
