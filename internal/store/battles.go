package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	adapterotel "github.com/agentarena/arenasync/internal/adapter/otel"
	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/port/arena"
)

// BattlesSnapshot is the consistent view published to subscribers after
// every mutation of the battles store.
type BattlesSnapshot struct {
	Battles     []battle.Battle
	Ongoing     []battle.Battle
	Past        []battle.Battle
	Filtered    []battle.Battle
	Filters     battle.Filters
	IsLoading   bool
	Error       string
	FeedState   arena.FeedState
	LastUpdated time.Time
}

// Battles is the entity store for battles. It reconciles two inputs
// into one collection: full HTTP snapshots and single-battle deltas
// from the live feed, which it owns.
type Battles struct {
	svc  arena.BattlesAPI
	feed arena.BattleFeed
	log  *slog.Logger

	mu         sync.Mutex
	state      BattlesSnapshot
	seq        sequencer
	loadTicket uint64

	subs    subscribers[BattlesSnapshot]
	metrics *adapterotel.Metrics
	now     func() time.Time
}

// NewBattles creates a battles store backed by the given service. The
// feed may be nil for callers that never go live.
func NewBattles(svc arena.BattlesAPI, feed arena.BattleFeed, log *slog.Logger) *Battles {
	if log == nil {
		log = slog.Default()
	}
	return &Battles{
		svc:  svc,
		feed: feed,
		log:  log,
		now:  time.Now,
	}
}

// SetMetrics wires metric instruments into the store.
func (s *Battles) SetMetrics(m *adapterotel.Metrics) {
	s.metrics = m
}

// Subscribe registers a callback invoked with the current snapshot
// after every mutation. It returns the unsubscribe function.
func (s *Battles) Subscribe(fn func(BattlesSnapshot)) func() {
	return s.subs.add(fn)
}

// Snapshot returns the current view without subscribing.
func (s *Battles) Snapshot() BattlesSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadAll fetches the collection and replaces it wholesale on success.
// On failure the previous collection is retained and only the snapshot
// error is set.
func (s *Battles) LoadAll(ctx context.Context, userID string) {
	s.mu.Lock()
	ticket := s.seq.ticket()
	s.loadTicket = ticket
	s.state.IsLoading = true
	s.state.Error = ""
	s.publishLocked()

	r := s.svc.List(ctx, userID)

	s.mu.Lock()
	if !s.seq.commit(ticket) {
		// A later-issued mutation already applied; this response is stale.
		// The loading flag still belongs to this reload unless a newer
		// one has since been issued, so clear it and publish.
		if ticket == s.loadTicket && s.state.IsLoading {
			s.state.IsLoading = false
			s.publishLocked()
		} else {
			s.mu.Unlock()
		}
		if s.metrics != nil {
			count(s.metrics.DeltasDiscarded)
		}
		return
	}
	s.state.IsLoading = false
	if r.Success {
		s.state.Battles = r.Data
		s.state.Error = ""
		s.state.LastUpdated = s.now()
		if s.metrics != nil {
			count(s.metrics.Reloads)
		}
	} else {
		s.state.Error = r.Error
		s.log.Warn("battles reload failed", "error", r.Error)
		if s.metrics != nil {
			count(s.metrics.ReloadFailures)
		}
	}
	s.publishLocked()
}

// Get fetches one battle and reconciles it through the same guard as
// feed deltas.
func (s *Battles) Get(ctx context.Context, battleID string) (battle.Battle, error) {
	r := s.svc.Get(ctx, battleID)
	if !r.Success {
		s.setError(r.Error)
		return battle.Battle{}, &OpError{Op: "battles.get", Message: r.Error}
	}
	s.MergeDelta(r.Data)
	return r.Data, nil
}

// Create submits a battle request and, on success, prepends the created
// battle so it shows up at the head of the ongoing list immediately.
func (s *Battles) Create(ctx context.Context, req battle.CreateRequest) (battle.Battle, error) {
	r := s.svc.Create(ctx, req)
	if !r.Success {
		s.setError(r.Error)
		return battle.Battle{}, &OpError{Op: "battles.create", Message: r.Error}
	}
	s.AddOne(r.Data)
	return r.Data, nil
}

// Update patches a battle and merges the backend's response through the
// same guard as feed deltas.
func (s *Battles) Update(ctx context.Context, battleID string, patch battle.UpdateRequest) (battle.Battle, error) {
	r := s.svc.Update(ctx, battleID, patch)
	if !r.Success {
		s.setError(r.Error)
		return battle.Battle{}, &OpError{Op: "battles.update", Message: r.Error}
	}
	s.MergeDelta(r.Data)
	return r.Data, nil
}

// AddOne prepends a battle to the collection.
func (s *Battles) AddOne(b battle.Battle) {
	s.mu.Lock()
	s.seq.commit(s.seq.ticket())
	s.state.Battles = prepend(s.state.Battles, b)
	s.state.LastUpdated = s.now()
	s.publishLocked()
}

// MergeDelta reconciles a single-battle update into the collection. A
// known id is replaced in place unless the stored battle is terminal
// and the incoming one is not: a terminal state is never overwritten by
// a non-terminal one, whatever order the network delivered them in. An
// unknown id is prepended.
func (s *Battles) MergeDelta(b battle.Battle) {
	s.mu.Lock()
	idx := -1
	for i, cur := range s.state.Battles {
		if cur.BattleID == b.BattleID {
			idx = i
			break
		}
	}

	if idx >= 0 && s.state.Battles[idx].State.Terminal() && !b.State.Terminal() {
		stored := s.state.Battles[idx].State
		s.mu.Unlock()
		s.log.Debug("discarding out-of-order battle delta",
			"battle_id", b.BattleID,
			"stored_state", stored,
			"delta_state", b.State)
		if s.metrics != nil {
			count(s.metrics.DeltasDiscarded)
		}
		return
	}

	s.seq.commit(s.seq.ticket())
	if idx >= 0 {
		battles := make([]battle.Battle, len(s.state.Battles))
		copy(battles, s.state.Battles)
		battles[idx] = b
		s.state.Battles = battles
	} else {
		s.state.Battles = prepend(s.state.Battles, b)
	}
	s.state.LastUpdated = s.now()
	if s.metrics != nil {
		count(s.metrics.DeltasApplied)
	}
	s.publishLocked()
}

// ReplaceAll applies a full-collection feed message. Unlike LoadAll it
// carries no ticket of its own: the feed is the authoritative source
// once connected, so the push always wins over in-flight HTTP reads.
func (s *Battles) ReplaceAll(battles []battle.Battle) {
	s.mu.Lock()
	s.seq.commit(s.seq.ticket())
	s.state.Battles = battles
	s.state.Error = ""
	s.state.LastUpdated = s.now()
	if s.metrics != nil {
		count(s.metrics.Reloads)
	}
	s.publishLocked()
}

// SetFilters replaces the active filters and republishes the filtered
// projection.
func (s *Battles) SetFilters(f battle.Filters) {
	s.mu.Lock()
	s.state.Filters = f
	s.publishLocked()
}

// ConnectLive attaches the store to the live battle feed. Feed messages
// flow through the same merge paths as HTTP responses; feed state
// changes are published in the snapshot. Connecting without a feed
// configured is an error surfaced in the snapshot.
func (s *Battles) ConnectLive(ctx context.Context) error {
	if s.feed == nil {
		s.setError("live feed not configured")
		return &OpError{Op: "battles.connect", Message: "live feed not configured"}
	}

	err := s.feed.Connect(ctx, s.onFeedMessage, s.onFeedState)
	if err != nil {
		s.setError(err.Error())
		return &OpError{Op: "battles.connect", Message: err.Error()}
	}
	return nil
}

// DisconnectLive detaches the store from the feed. Safe without a prior
// connect.
func (s *Battles) DisconnectLive() {
	if s.feed != nil {
		s.feed.Disconnect()
	}
}

func (s *Battles) onFeedMessage(msg arena.FeedMessage) {
	switch msg.Type {
	case arena.FeedBattlesUpdate:
		s.ReplaceAll(msg.Battles)
	case arena.FeedBattleUpdate:
		if msg.Battle != nil {
			s.MergeDelta(*msg.Battle)
		}
	}
}

func (s *Battles) onFeedState(st arena.FeedState) {
	s.mu.Lock()
	s.state.FeedState = st
	s.publishLocked()
}

// Reset returns the store to its initial empty state and detaches the
// feed.
func (s *Battles) Reset() {
	s.DisconnectLive()
	s.mu.Lock()
	s.seq.commit(s.seq.ticket())
	fs := s.state.FeedState
	s.state = BattlesSnapshot{FeedState: fs}
	s.publishLocked()
}

// Close tears the store down.
func (s *Battles) Close() {
	s.DisconnectLive()
}

// setError records a failed write action in the snapshot.
func (s *Battles) setError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	s.publishLocked()
}

// publishLocked recomputes derived projections, releases the lock, and
// notifies subscribers. Callers must hold s.mu; it is released here.
func (s *Battles) publishLocked() {
	s.state.Ongoing, s.state.Past = battle.Partition(s.state.Battles)
	s.state.Filtered = s.state.Filters.Filter(s.state.Battles)
	snap := s.state
	s.mu.Unlock()

	if s.metrics != nil {
		count(s.metrics.Notifications)
	}
	s.subs.notify(snap)
}

func prepend(battles []battle.Battle, b battle.Battle) []battle.Battle {
	out := make([]battle.Battle, 0, len(battles)+1)
	out = append(out, b)
	out = append(out, battles...)
	return out
}
