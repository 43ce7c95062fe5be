package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/port/arena"
	"github.com/agentarena/arenasync/internal/result"
)

type fakeBattlesAPI struct {
	list   func(string) result.Result[[]battle.Battle]
	get    func(string) result.Result[battle.Battle]
	create func(battle.CreateRequest) result.Result[battle.Battle]
	update func(string, battle.UpdateRequest) result.Result[battle.Battle]
}

func (f *fakeBattlesAPI) List(_ context.Context, userID string) result.Result[[]battle.Battle] {
	return f.list(userID)
}

func (f *fakeBattlesAPI) Get(_ context.Context, battleID string) result.Result[battle.Battle] {
	return f.get(battleID)
}

func (f *fakeBattlesAPI) Create(_ context.Context, req battle.CreateRequest) result.Result[battle.Battle] {
	return f.create(req)
}

func (f *fakeBattlesAPI) Update(_ context.Context, battleID string, patch battle.UpdateRequest) result.Result[battle.Battle] {
	return f.update(battleID, patch)
}

// fakeFeed captures the callbacks handed to Connect so tests can push
// messages and state transitions by hand.
type fakeFeed struct {
	onMessage    func(arena.FeedMessage)
	onState      func(arena.FeedState)
	connectErr   error
	connected    bool
	disconnected int
}

func (f *fakeFeed) Connect(_ context.Context, onMessage func(arena.FeedMessage), onState func(arena.FeedState)) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.onMessage = onMessage
	f.onState = onState
	f.connected = true
	return nil
}

func (f *fakeFeed) Disconnect() { f.disconnected++ }

func (f *fakeFeed) State() arena.FeedState {
	if f.connected {
		return arena.FeedConnected
	}
	return arena.FeedDisconnected
}

func testBattle(id string, state battle.State, created time.Time) battle.Battle {
	return battle.Battle{
		BattleID:     id,
		GreenAgentID: "green",
		RedAgentID:   "red",
		State:        state,
		CreatedAt:    created,
	}
}

func TestBattlesLoadAllFailSoft(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{testBattle("b1", battle.StateRunning, now)})
	}}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	svc.list = func(string) result.Result[[]battle.Battle] {
		return result.Fail[[]battle.Battle]("backend down")
	}
	s.LoadAll(context.Background(), "")

	snap := s.Snapshot()
	if len(snap.Battles) != 1 || snap.Battles[0].BattleID != "b1" {
		t.Fatalf("failed reload must keep previous collection, got %+v", snap.Battles)
	}
	if snap.Error != "backend down" {
		t.Fatalf("expected surfaced error, got %q", snap.Error)
	}
}

func TestBattlesMergeDeltaReplacesKnown(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{testBattle("b1", battle.StateRunning, now)})
	}}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	done := testBattle("b1", battle.StateFinished, now)
	done.Result = &battle.Outcome{Winner: battle.WinnerRed, Reason: "flag captured"}
	s.MergeDelta(done)

	snap := s.Snapshot()
	if snap.Battles[0].State != battle.StateFinished {
		t.Fatalf("delta not applied, state = %s", snap.Battles[0].State)
	}
	if snap.Battles[0].Result == nil || snap.Battles[0].Result.Winner != battle.WinnerRed {
		t.Fatalf("delta result not applied: %+v", snap.Battles[0].Result)
	}
}

func TestBattlesMergeDeltaTerminalGuard(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{testBattle("b1", battle.StateFinished, now)})
	}}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	notified := 0
	s.Subscribe(func(BattlesSnapshot) { notified++ })

	// A late "running" delta must never resurrect a finished battle.
	s.MergeDelta(testBattle("b1", battle.StateRunning, now))

	snap := s.Snapshot()
	if snap.Battles[0].State != battle.StateFinished {
		t.Fatalf("terminal state overwritten by stale delta: %s", snap.Battles[0].State)
	}
	if notified != 0 {
		t.Fatalf("discarded delta must not notify, got %d notifications", notified)
	}

	// The other direction applies: terminal over terminal is a replace.
	s.MergeDelta(testBattle("b1", battle.StateCancelled, now))
	if got := s.Snapshot().Battles[0].State; got != battle.StateCancelled {
		t.Fatalf("terminal-to-terminal replace skipped, state = %s", got)
	}
}

func TestBattlesMergeDeltaUnknownPrepends(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{testBattle("b1", battle.StateRunning, now)})
	}}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	s.MergeDelta(testBattle("b2", battle.StateQueued, now.Add(time.Second)))

	snap := s.Snapshot()
	if len(snap.Battles) != 2 || snap.Battles[0].BattleID != "b2" {
		t.Fatalf("unknown delta must be prepended, got %+v", snap.Battles)
	}
}

func TestBattlesGetRespectsTerminalGuard(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{testBattle("b1", battle.StateFinished, now)})
	}}
	svc.get = func(id string) result.Result[battle.Battle] {
		return result.Ok(testBattle(id, battle.StateRunning, now))
	}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	// The fetch succeeds for the caller, but a stale non-terminal
	// record must not rewind the stored battle.
	got, err := s.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != battle.StateRunning {
		t.Fatalf("fetched state = %s", got.State)
	}
	if stored := s.Snapshot().Battles[0].State; stored != battle.StateFinished {
		t.Fatalf("stored state rewound to %s", stored)
	}

	if _, err := s.Get(context.Background(), "b7"); err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if snap := s.Snapshot(); snap.Battles[0].BattleID != "b7" {
		t.Fatalf("unknown fetch not prepended: %+v", snap.Battles)
	}
}

func TestBattlesCreatePrepends(t *testing.T) {
	now := time.Now()
	created := testBattle("b9", battle.StatePending, now)
	svc := &fakeBattlesAPI{
		list: func(string) result.Result[[]battle.Battle] {
			return result.Ok([]battle.Battle{testBattle("b1", battle.StateFinished, now.Add(-time.Hour))})
		},
		create: func(battle.CreateRequest) result.Result[battle.Battle] { return result.Ok(created) },
	}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	got, err := s.Create(context.Background(), battle.CreateRequest{
		GreenAgentID: "green",
		Opponents:    []battle.Opponent{{Name: "red", AgentID: "red"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.BattleID != "b9" {
		t.Fatalf("unexpected created battle %+v", got)
	}
	snap := s.Snapshot()
	if snap.Battles[0].BattleID != "b9" {
		t.Fatalf("created battle must be at the head, got %+v", snap.Battles)
	}
	if len(snap.Ongoing) != 1 || snap.Ongoing[0].BattleID != "b9" {
		t.Fatalf("ongoing projection not recomputed: %+v", snap.Ongoing)
	}
}

func TestBattlesUpdateFailureReturnsOpError(t *testing.T) {
	svc := &fakeBattlesAPI{
		update: func(string, battle.UpdateRequest) result.Result[battle.Battle] {
			return result.Fail[battle.Battle]("battle not found")
		},
	}
	s := NewBattles(svc, nil, nil)

	_, err := s.Update(context.Background(), "nope", battle.UpdateRequest{})
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OpError, got %T", err)
	}
	if opErr.Op != "battles.update" {
		t.Fatalf("unexpected op %q", opErr.Op)
	}
}

func TestBattlesFeedMessagesFlowThroughStore(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{}
	s := NewBattles(&fakeBattlesAPI{}, feed, nil)

	var states []arena.FeedState
	s.Subscribe(func(snap BattlesSnapshot) { states = append(states, snap.FeedState) })

	if err := s.ConnectLive(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	feed.onState(arena.FeedConnecting)
	feed.onState(arena.FeedConnected)
	feed.onMessage(arena.FeedMessage{
		Type:    arena.FeedBattlesUpdate,
		Battles: []battle.Battle{testBattle("b1", battle.StateRunning, now)},
	})
	delta := testBattle("b1", battle.StateFinished, now)
	feed.onMessage(arena.FeedMessage{Type: arena.FeedBattleUpdate, Battle: &delta})

	snap := s.Snapshot()
	if snap.FeedState != arena.FeedConnected {
		t.Fatalf("feed state not published, got %s", snap.FeedState)
	}
	if len(snap.Battles) != 1 || snap.Battles[0].State != battle.StateFinished {
		t.Fatalf("feed messages not merged: %+v", snap.Battles)
	}
	if len(states) < 4 {
		t.Fatalf("expected a notification per feed event, got %d", len(states))
	}
}

func TestBattlesFeedRosterOverridesPendingRead(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{}
	s := NewBattles(nil, feed, nil)
	if err := s.ConnectLive(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// An HTTP reload resolving after a feed roster push must lose.
	svc := &fakeBattlesAPI{}
	svc.list = func(string) result.Result[[]battle.Battle] {
		feed.onMessage(arena.FeedMessage{
			Type:    arena.FeedBattlesUpdate,
			Battles: []battle.Battle{testBattle("fresh", battle.StateRunning, now)},
		})
		return result.Ok([]battle.Battle{testBattle("stale", battle.StateRunning, now)})
	}
	s.svc = svc
	s.LoadAll(context.Background(), "")

	snap := s.Snapshot()
	if len(snap.Battles) != 1 || snap.Battles[0].BattleID != "fresh" {
		t.Fatalf("stale HTTP read overwrote feed roster: %+v", snap.Battles)
	}
	if snap.IsLoading {
		t.Fatal("loading flag must clear once the discarded reload resolves")
	}
}

func TestBattlesDiscardedReloadClearsLoading(t *testing.T) {
	now := time.Now()
	s := NewBattles(nil, nil, nil)
	svc := &fakeBattlesAPI{}
	svc.list = func(string) result.Result[[]battle.Battle] {
		s.AddOne(testBattle("newer", battle.StatePending, now))
		return result.Ok([]battle.Battle{testBattle("stale", battle.StatePending, now)})
	}
	s.svc = svc

	s.LoadAll(context.Background(), "")

	snap := s.Snapshot()
	if len(snap.Battles) != 1 || snap.Battles[0].BattleID != "newer" {
		t.Fatalf("stale reload must not overwrite later mutation, got %+v", snap.Battles)
	}
	if snap.IsLoading {
		t.Fatal("loading flag must clear once the discarded reload resolves")
	}
}

func TestBattlesConnectWithoutFeed(t *testing.T) {
	s := NewBattles(&fakeBattlesAPI{}, nil, nil)

	err := s.ConnectLive(context.Background())
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OpError, got %T", err)
	}
	s.DisconnectLive() // must not panic
}

func TestBattlesFiltersProjection(t *testing.T) {
	now := time.Now()
	svc := &fakeBattlesAPI{list: func(string) result.Result[[]battle.Battle] {
		return result.Ok([]battle.Battle{
			testBattle("b1", battle.StateRunning, now),
			testBattle("b2", battle.StateFinished, now),
		})
	}}
	s := NewBattles(svc, nil, nil)
	s.LoadAll(context.Background(), "")

	s.SetFilters(battle.Filters{States: []battle.State{battle.StateFinished}})

	snap := s.Snapshot()
	if len(snap.Filtered) != 1 || snap.Filtered[0].BattleID != "b2" {
		t.Fatalf("filtered projection: %+v", snap.Filtered)
	}
}

func TestBattlesResetKeepsFeedState(t *testing.T) {
	feed := &fakeFeed{}
	s := NewBattles(&fakeBattlesAPI{}, feed, nil)
	if err := s.ConnectLive(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	feed.onState(arena.FeedConnected)
	s.AddOne(testBattle("b1", battle.StateRunning, time.Now()))

	s.Reset()

	snap := s.Snapshot()
	if len(snap.Battles) != 0 {
		t.Fatalf("reset must clear the collection, got %+v", snap.Battles)
	}
	if feed.disconnected == 0 {
		t.Fatal("reset must disconnect the feed")
	}
}
