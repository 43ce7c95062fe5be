// Package arenatest provides an in-memory arena backend for local
// development and tests. It serves the agent and battle endpoints, the
// battle live channel, and deterministic helpers for driving battle
// state from test code.
package arenatest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agentarena/arenasync/internal/adapter/ristretto"
	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/domain/battle"
)

// CurrentUserID is the user the mock backend attributes all writes to;
// scope=mine listings return this user's agents.
const CurrentUserID = "mock-user"

// Options tunes the mock backend.
type Options struct {
	// LegacyBattleShape wraps the battle listing in {"battles": [...]}
	// instead of a bare array, exercising the client's dual decode.
	LegacyBattleShape bool

	// LivenessTTL bounds how long a probe verdict is reused.
	LivenessTTL time.Duration

	// LivenessCacheSize caps the number of memoized verdicts.
	LivenessCacheSize int64
}

// Server is the in-memory backend. All state lives behind one mutex;
// the ws hub and the liveness cache synchronize separately.
type Server struct {
	log *slog.Logger
	hub *Hub

	mu       sync.RWMutex
	agents   []agent.Agent
	battles  []battle.Battle
	owners   map[string]string // battle id -> created_by
	liveness map[string]bool   // desired probe verdict per agent
	probes   int               // probe invocations, cache misses only
	legacy   bool

	cache *ristretto.LivenessCache
}

// NewServer creates a mock backend.
func NewServer(log *slog.Logger, opts Options) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.LivenessTTL <= 0 {
		opts.LivenessTTL = 30 * time.Second
	}
	if opts.LivenessCacheSize <= 0 {
		opts.LivenessCacheSize = 4096
	}

	cache, err := ristretto.NewLivenessCache(opts.LivenessCacheSize, opts.LivenessTTL)
	if err != nil {
		return nil, err
	}

	return &Server{
		log:      log,
		hub:      NewHub(log),
		owners:   make(map[string]string),
		liveness: make(map[string]bool),
		legacy:   opts.LegacyBattleShape,
		cache:    cache,
	}, nil
}

// Handler returns the full routing surface: the REST API under /api
// and the live channel at /ws/battles.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", s.listAgents)
		r.Post("/agents", s.registerAgent)
		r.Get("/agents/{id}", s.getAgent)
		r.Put("/agents/{id}", s.updateAgent)
		r.Delete("/agents/{id}", s.deleteAgent)

		r.Get("/battles", s.listBattles)
		r.Post("/battles", s.createBattle)
		r.Get("/battles/{id}", s.getBattle)
		r.Post("/battles/{id}", s.updateBattle)
	})

	r.Get("/ws/battles", s.hub.HandleWS)

	return r
}

// Hub exposes the live channel hub for direct broadcasting from tests.
func (s *Server) Hub() *Hub { return s.hub }

// Close drops feed subscribers and releases the liveness cache.
func (s *Server) Close() {
	s.hub.CloseAll()
	s.cache.Close()
}

// ---------------------------------------------------------------------------
// Fixtures and test helpers
// ---------------------------------------------------------------------------

// SeedAgent inserts an agent, filling in identity fields when empty.
func (s *Server) SeedAgent(a agent.Agent) agent.Agent {
	if a.AgentID == "" {
		a.AgentID = uuid.NewString()
	}
	if a.UserID == "" {
		a.UserID = CurrentUserID
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()
	return a
}

// SeedBattle inserts a battle, filling in identity fields when empty.
func (s *Server) SeedBattle(b battle.Battle) battle.Battle {
	if b.BattleID == "" {
		b.BattleID = uuid.NewString()
	}
	if b.State == "" {
		b.State = battle.StatePending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt

	s.mu.Lock()
	s.battles = append([]battle.Battle{b}, s.battles...)
	s.owners[b.BattleID] = CurrentUserID
	s.mu.Unlock()
	return b
}

// SetLive fixes the probe verdict for an agent and invalidates any
// memoized one.
func (s *Server) SetLive(agentID string, live bool) {
	s.mu.Lock()
	s.liveness[agentID] = live
	s.mu.Unlock()
	s.cache.Invalidate(agentID)
}

// ProbeCount reports how many probes ran, i.e. liveness lookups that
// missed the cache.
func (s *Server) ProbeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probes
}

// AdvanceBattle steps a battle one state forward along
// pending → queued → running → finished and broadcasts the delta. A
// battle reaching finished gets a red win. Terminal battles stay put.
// It returns the battle after the step.
func (s *Server) AdvanceBattle(ctx context.Context, battleID string) (battle.Battle, bool) {
	s.mu.Lock()
	idx := s.battleIndexLocked(battleID)
	if idx < 0 {
		s.mu.Unlock()
		return battle.Battle{}, false
	}

	b := s.battles[idx]
	now := time.Now().UTC()
	switch b.State {
	case battle.StatePending:
		b.State = battle.StateQueued
	case battle.StateQueued:
		b.State = battle.StateRunning
		b.StartedAt = &now
	case battle.StateRunning:
		b.State = battle.StateFinished
		b.Result = &battle.Outcome{Winner: battle.WinnerRed, Reason: "all objectives reached"}
		b.FinishedAt = &now
	default:
		s.mu.Unlock()
		return b, true
	}
	b.UpdatedAt = now
	s.battles[idx] = b
	s.mu.Unlock()

	s.hub.BroadcastDelta(ctx, b)
	return b, true
}

// BroadcastRoster pushes the full battle list to every feed subscriber.
func (s *Server) BroadcastRoster(ctx context.Context) {
	s.mu.RLock()
	battles := make([]battle.Battle, len(s.battles))
	copy(battles, s.battles)
	s.mu.RUnlock()

	s.hub.BroadcastRoster(ctx, battles)
}

// ---------------------------------------------------------------------------
// Agent handlers
// ---------------------------------------------------------------------------

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := q.Get("scope")
	checkLiveness := q.Get("check_liveness") == "true"
	var isGreen *bool
	if v := q.Get("is_green"); v != "" {
		b := v == "true"
		isGreen = &b
	}

	s.mu.RLock()
	agents := make([]agent.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if scope == string(agent.ScopeMine) && a.UserID != CurrentUserID {
			continue
		}
		if isGreen != nil && a.IsGreen != *isGreen {
			continue
		}
		agents = append(agents, a)
	}
	s.mu.RUnlock()

	if checkLiveness {
		for i := range agents {
			live := s.probeLiveness(agents[i].AgentID)
			agents[i].Live = &live
		}
	}

	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) registerAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.RegisterRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	a := agent.Agent{
		AgentID:   uuid.NewString(),
		UserID:    CurrentUserID,
		Alias:     req.Alias,
		IsHosted:  req.IsHosted,
		IsGreen:   req.IsGreen,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.AgentID == id {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "agent not found")
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	patch, ok := readJSON[agent.UpdateRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.agents {
		if a.AgentID == id {
			s.agents[i] = patch.Apply(a)
			writeJSON(w, http.StatusOK, s.agents[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "agent not found")
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.agents {
		if a.AgentID == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "agent not found")
}

// probeLiveness resolves an agent's verdict, memoizing it in the cache.
func (s *Server) probeLiveness(agentID string) bool {
	if live, ok := s.cache.Get(agentID); ok {
		return live
	}

	s.mu.Lock()
	live, configured := s.liveness[agentID]
	s.probes++
	s.mu.Unlock()

	if !configured {
		live = false
	}
	s.cache.Set(agentID, live)
	return live
}

// ---------------------------------------------------------------------------
// Battle handlers
// ---------------------------------------------------------------------------

func (s *Server) listBattles(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	s.mu.RLock()
	battles := make([]battle.Battle, 0, len(s.battles))
	for _, b := range s.battles {
		if userID != "" && s.owners[b.BattleID] != userID {
			continue
		}
		battles = append(battles, b)
	}
	legacy := s.legacy
	s.mu.RUnlock()

	if legacy {
		writeJSON(w, http.StatusOK, map[string][]battle.Battle{"battles": battles})
		return
	}
	writeJSON(w, http.StatusOK, battles)
}

func (s *Server) createBattle(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[battle.CreateRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	b := battle.Battle{
		BattleID:     uuid.NewString(),
		GreenAgentID: req.GreenAgentID,
		State:        battle.StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, o := range req.Opponents {
		switch o.Name {
		case "red":
			b.RedAgentID = o.AgentID
		case "blue":
			b.BlueAgentID = o.AgentID
		}
	}

	owner := req.CreatedBy
	if owner == "" {
		owner = CurrentUserID
	}

	s.mu.Lock()
	s.battles = append([]battle.Battle{b}, s.battles...)
	s.owners[b.BattleID] = owner
	s.mu.Unlock()

	s.hub.BroadcastDelta(r.Context(), b)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) getBattle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.battleIndexLocked(id); idx >= 0 {
		writeJSON(w, http.StatusOK, s.battles[idx])
		return
	}
	writeDetail(w, http.StatusNotFound, "battle not found")
}

func (s *Server) updateBattle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	patch, ok := readJSON[battle.UpdateRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.battleIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "battle not found")
		return
	}

	b := s.battles[idx]
	if patch.State != "" {
		b.State = patch.State
	}
	if patch.Result != nil {
		b.Result = patch.Result
	}
	if patch.FinishedAt != nil {
		b.FinishedAt = patch.FinishedAt
	}
	b.UpdatedAt = time.Now().UTC()
	s.battles[idx] = b
	s.mu.Unlock()

	s.hub.BroadcastDelta(r.Context(), b)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) battleIndexLocked(id string) int {
	for i, b := range s.battles {
		if b.BattleID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type detailResponse struct {
	Detail string `json:"detail"`
}

func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, detailResponse{Detail: message})
}
