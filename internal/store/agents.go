package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	adapterotel "github.com/agentarena/arenasync/internal/adapter/otel"
	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/port/arena"
)

// AgentsSnapshot is the consistent view published to subscribers after
// every mutation of the agents store. Consumers read it; they never
// mutate it or the slices it shares.
type AgentsSnapshot struct {
	Agents      []agent.Agent
	Green       []agent.Agent
	Opponents   []agent.Agent
	Top         []agent.Agent
	Live        []agent.Agent
	Filtered    []agent.Agent
	Filters     agent.Filters
	IsLoading   bool
	Error       string
	LastUpdated time.Time
}

// Agents is the entity store for agents: the single source of truth
// for the in-memory agent collection. One instance per application
// session, with its service injected at construction.
type Agents struct {
	svc arena.AgentsAPI
	log *slog.Logger

	mu         sync.Mutex
	state      AgentsSnapshot
	seq        sequencer
	loadTicket uint64
	closed     bool

	subs            subscribers[AgentsSnapshot]
	metrics         *adapterotel.Metrics
	leaderboardSize int
	now             func() time.Time
}

// NewAgents creates an agents store backed by the given service.
func NewAgents(svc arena.AgentsAPI, log *slog.Logger) *Agents {
	if log == nil {
		log = slog.Default()
	}
	return &Agents{
		svc:             svc,
		log:             log,
		leaderboardSize: agent.DefaultLeaderboardSize,
		now:             time.Now,
	}
}

// SetMetrics wires metric instruments into the store.
func (s *Agents) SetMetrics(m *adapterotel.Metrics) {
	s.metrics = m
}

// SetLeaderboardSize overrides the top-agents projection size.
func (s *Agents) SetLeaderboardSize(n int) {
	if n > 0 {
		s.mu.Lock()
		s.leaderboardSize = n
		s.mu.Unlock()
	}
}

// Subscribe registers a callback invoked with the current snapshot
// after every mutation. It returns the unsubscribe function.
// Notifications are synchronous and delivered in subscription order;
// each mutation notifies exactly once, with no batching.
func (s *Agents) Subscribe(fn func(AgentsSnapshot)) func() {
	return s.subs.add(fn)
}

// Snapshot returns the current view without subscribing.
func (s *Agents) Snapshot() AgentsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadAll fetches the collection and replaces it wholesale on success.
// On failure the previous collection is retained and only the snapshot
// error is set (fail-soft). The loading flag covers the call's
// duration.
func (s *Agents) LoadAll(ctx context.Context, opts arena.ListAgentsOptions) {
	ticket := s.beginLoad()

	r := s.svc.List(ctx, opts)

	s.mu.Lock()
	if !s.seq.commit(ticket) {
		// A later-issued mutation already applied; this response is stale.
		s.resolveStaleLoadLocked(ticket)
		if s.metrics != nil {
			count(s.metrics.DeltasDiscarded)
		}
		return
	}
	s.state.IsLoading = false
	if r.Success {
		s.state.Agents = r.Data
		s.state.Error = ""
		s.state.LastUpdated = s.now()
		if s.metrics != nil {
			count(s.metrics.Reloads)
		}
	} else {
		s.state.Error = r.Error
		s.log.Warn("agents reload failed", "error", r.Error)
		if s.metrics != nil {
			count(s.metrics.ReloadFailures)
		}
	}
	s.publishLocked()
}

// LoadWithLiveness performs the two-phase layered load. Phase 1 fetches
// the collection without the liveness probe and commits it immediately
// with every record marked livenessLoading. Phase 2 runs on its own
// goroutine — strictly after phase 1's commit is observable — and
// replaces the collection with probed liveness; if the probe listing
// fails the store clears the loading marks and forces live=false,
// signaling degraded rather than stale data. onUpdate, when non-nil, is
// invoked once per committed phase.
func (s *Agents) LoadWithLiveness(ctx context.Context, scope agent.Scope, onUpdate func([]agent.Agent)) {
	ticket := s.beginLoad()
	opts := arena.ListAgentsOptions{Scope: scope}

	r := s.svc.List(ctx, opts)
	if !r.Success {
		s.mu.Lock()
		if s.seq.commit(ticket) {
			s.state.IsLoading = false
			s.state.Error = r.Error
			s.publishLocked()
		} else {
			s.resolveStaleLoadLocked(ticket)
		}
		return
	}

	base := make([]agent.Agent, len(r.Data))
	copy(base, r.Data)
	for i := range base {
		base[i].LivenessLoading = true
	}

	s.mu.Lock()
	if !s.seq.commit(ticket) {
		s.resolveStaleLoadLocked(ticket)
		return
	}
	s.state.Agents = base
	s.state.IsLoading = false
	s.state.Error = ""
	s.state.LastUpdated = s.now()
	s.publishLocked()

	if onUpdate != nil {
		onUpdate(base)
	}

	go s.enrichLiveness(ctx, opts, base, onUpdate)
}

// enrichLiveness is phase 2 of the layered load.
func (s *Agents) enrichLiveness(ctx context.Context, opts arena.ListAgentsOptions, base []agent.Agent, onUpdate func([]agent.Agent)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ticket := s.seq.ticket()
	s.mu.Unlock()

	opts.CheckLiveness = true
	r := s.svc.List(ctx, opts)

	var enriched []agent.Agent
	if r.Success {
		enriched = make([]agent.Agent, len(r.Data))
		copy(enriched, r.Data)
		for i := range enriched {
			enriched[i].LivenessLoading = false
		}
	} else {
		// Degraded, not wrong: drop the loading marks and report every
		// endpoint as down rather than retaining unknown liveness.
		down := false
		enriched = make([]agent.Agent, len(base))
		copy(enriched, base)
		for i := range enriched {
			enriched[i].LivenessLoading = false
			enriched[i].Live = &down
		}
		s.log.Warn("liveness enrichment failed", "error", r.Error)
	}

	s.mu.Lock()
	if s.closed || !s.seq.commit(ticket) {
		s.mu.Unlock()
		return
	}
	s.state.Agents = enriched
	s.state.LastUpdated = s.now()
	s.publishLocked()

	if onUpdate != nil {
		onUpdate(enriched)
	}
}

// Get fetches one agent and merges it into the collection, carrying
// over client-side liveness state for a known id and appending an
// unknown one.
func (s *Agents) Get(ctx context.Context, agentID string) (agent.Agent, error) {
	r := s.svc.Get(ctx, agentID)
	if !r.Success {
		s.setError(r.Error)
		return agent.Agent{}, &OpError{Op: "agents.get", Message: r.Error}
	}

	got := r.Data
	merged := false
	s.UpdateOne(agentID, func(existing agent.Agent) agent.Agent {
		merged = true
		next := got
		next.Live = existing.Live
		next.LivenessLoading = existing.LivenessLoading
		return next
	})
	if !merged {
		s.AddOne(got)
	}
	return got, nil
}

// Register submits a registration and, on success, appends the created
// agent to the collection. The failure is returned as an *OpError so
// the caller can roll back optimistic UI state.
func (s *Agents) Register(ctx context.Context, req agent.RegisterRequest) (agent.Agent, error) {
	r := s.svc.Register(ctx, req)
	if !r.Success {
		s.setError(r.Error)
		return agent.Agent{}, &OpError{Op: "agents.register", Message: r.Error}
	}
	s.AddOne(r.Data)
	return r.Data, nil
}

// Update patches an agent and merges the backend's response into the
// collection, carrying over client-side liveness state.
func (s *Agents) Update(ctx context.Context, agentID string, patch agent.UpdateRequest) (agent.Agent, error) {
	r := s.svc.Update(ctx, agentID, patch)
	if !r.Success {
		s.setError(r.Error)
		return agent.Agent{}, &OpError{Op: "agents.update", Message: r.Error}
	}

	updated := r.Data
	s.UpdateOne(agentID, func(existing agent.Agent) agent.Agent {
		next := updated
		next.Live = existing.Live
		next.LivenessLoading = existing.LivenessLoading
		return next
	})
	return updated, nil
}

// Delete removes an agent on the backend and, on success, from the
// collection.
func (s *Agents) Delete(ctx context.Context, agentID string) error {
	r := s.svc.Delete(ctx, agentID)
	if !r.Success {
		s.setError(r.Error)
		return &OpError{Op: "agents.delete", Message: r.Error}
	}
	s.RemoveOne(agentID)
	return nil
}

// AddOne appends an agent to the collection. Local and synchronous;
// used after a successful register to avoid a redundant reload.
func (s *Agents) AddOne(a agent.Agent) {
	s.mu.Lock()
	s.seq.commit(s.seq.ticket())
	agents := make([]agent.Agent, 0, len(s.state.Agents)+1)
	agents = append(agents, s.state.Agents...)
	agents = append(agents, a)
	s.state.Agents = agents
	s.state.LastUpdated = s.now()
	s.publishLocked()
}

// UpdateOne rewrites the agent with the given id through fn. Matching
// is by agent_id only. A miss is a no-op without notification.
func (s *Agents) UpdateOne(agentID string, fn func(agent.Agent) agent.Agent) {
	s.mu.Lock()
	idx := -1
	for i, a := range s.state.Agents {
		if a.AgentID == agentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	s.seq.commit(s.seq.ticket())
	agents := make([]agent.Agent, len(s.state.Agents))
	copy(agents, s.state.Agents)
	agents[idx] = fn(agents[idx])
	s.state.Agents = agents
	s.state.LastUpdated = s.now()
	s.publishLocked()
}

// RemoveOne deletes the agent with the given id from the collection.
// A miss is a no-op without notification.
func (s *Agents) RemoveOne(agentID string) {
	s.mu.Lock()
	agents := make([]agent.Agent, 0, len(s.state.Agents))
	removed := false
	for _, a := range s.state.Agents {
		if a.AgentID == agentID {
			removed = true
			continue
		}
		agents = append(agents, a)
	}
	if !removed {
		s.mu.Unlock()
		return
	}

	s.seq.commit(s.seq.ticket())
	s.state.Agents = agents
	s.state.LastUpdated = s.now()
	s.publishLocked()
}

// SetFilters replaces the active filters and republishes the filtered
// projection.
func (s *Agents) SetFilters(f agent.Filters) {
	s.mu.Lock()
	s.state.Filters = f
	s.publishLocked()
}

// Reset returns the store to its initial empty state.
func (s *Agents) Reset() {
	s.mu.Lock()
	s.seq.commit(s.seq.ticket())
	s.state = AgentsSnapshot{}
	s.publishLocked()
}

// Close marks the store torn down: a pending liveness enrichment will
// not commit afterwards. The instance is not reusable.
func (s *Agents) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// beginLoad stamps a reload ticket and publishes the loading state.
func (s *Agents) beginLoad() uint64 {
	s.mu.Lock()
	ticket := s.seq.ticket()
	s.loadTicket = ticket
	s.state.IsLoading = true
	s.state.Error = ""
	s.publishLocked()
	return ticket
}

// resolveStaleLoadLocked finishes a reload whose response was discarded
// by the sequence guard. The collection stays as-is, but the loading
// flag still belongs to this reload unless a newer one has since been
// issued, so clear it and publish. Callers hold s.mu; it is released
// either way.
func (s *Agents) resolveStaleLoadLocked(ticket uint64) {
	if ticket != s.loadTicket || !s.state.IsLoading {
		s.mu.Unlock()
		return
	}
	s.state.IsLoading = false
	s.publishLocked()
}

// setError records a failed write action in the snapshot.
func (s *Agents) setError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	s.publishLocked()
}

// publishLocked recomputes derived projections, releases the lock, and
// notifies subscribers. Callers must hold s.mu; it is released here.
func (s *Agents) publishLocked() {
	s.state.Green = agent.Green(s.state.Agents)
	s.state.Opponents = agent.Opponents(s.state.Agents)
	s.state.Top = agent.Top(s.state.Agents, s.leaderboardSize)
	s.state.Live = agent.Live(s.state.Agents)
	s.state.Filtered = s.state.Filters.Filter(s.state.Agents)
	snap := s.state
	s.mu.Unlock()

	if s.metrics != nil {
		count(s.metrics.Notifications)
	}
	s.subs.notify(snap)
}
