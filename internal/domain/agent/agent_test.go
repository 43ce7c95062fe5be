package agent_test

import (
	"testing"
	"time"

	"github.com/agentarena/arenasync/internal/domain/agent"
)

func boolPtr(b bool) *bool { return &b }

func rated(id string, rating, winRate float64, created time.Time) agent.Agent {
	return agent.Agent{
		AgentID:   id,
		Alias:     id,
		CreatedAt: created,
		Elo: &agent.Elo{
			Rating: rating,
			Stats:  &agent.EloStats{WinRate: winRate},
		},
	}
}

func TestTopRatingDominatesWinRate(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	agents := []agent.Agent{
		rated("a", 1200, 0.5, base),
		rated("b", 1200, 0.7, base),
		rated("c", 900, 0.9, base),
	}

	top := agent.Top(agents, 6)

	if len(top) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(top))
	}
	// b outranks a on win rate at equal rating; c ranks last despite the
	// highest win rate because rating dominates.
	if top[0].AgentID != "b" || top[1].AgentID != "a" || top[2].AgentID != "c" {
		t.Fatalf("unexpected order: %s, %s, %s", top[0].AgentID, top[1].AgentID, top[2].AgentID)
	}
}

func TestTopNewestWinsFinalTieBreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	agents := []agent.Agent{
		rated("old", 1000, 0.5, base),
		rated("new", 1000, 0.5, base.Add(time.Hour)),
	}

	top := agent.Top(agents, 2)
	if top[0].AgentID != "new" {
		t.Fatalf("expected newest first, got %s", top[0].AgentID)
	}
}

func TestTopUnratedSortsLast(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	agents := []agent.Agent{
		{AgentID: "unrated", CreatedAt: base.Add(time.Hour)},
		rated("rated", 1, 0, base),
	}

	top := agent.Top(agents, 2)
	if top[0].AgentID != "rated" {
		t.Fatalf("expected rated agent first, got %s", top[0].AgentID)
	}
}

func TestTopTruncatesAndPreservesInput(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var agents []agent.Agent
	for i := 0; i < 10; i++ {
		agents = append(agents, rated(string(rune('a'+i)), float64(i), 0, base))
	}

	top := agent.Top(agents, 6)
	if len(top) != 6 {
		t.Fatalf("expected 6 agents, got %d", len(top))
	}
	if agents[0].AgentID != "a" {
		t.Fatal("input slice was reordered")
	}
}

func TestGreenOpponentPartition(t *testing.T) {
	agents := []agent.Agent{
		{AgentID: "g1", IsGreen: true},
		{AgentID: "o1"},
		{AgentID: "g2", IsGreen: true},
	}

	green := agent.Green(agents)
	opponents := agent.Opponents(agents)

	if len(green) != 2 || len(opponents) != 1 {
		t.Fatalf("expected 2 green / 1 opponent, got %d / %d", len(green), len(opponents))
	}
	if opponents[0].AgentID != "o1" {
		t.Fatalf("unexpected opponent %s", opponents[0].AgentID)
	}
}

func TestLiveTreatsUnsetAsNotLive(t *testing.T) {
	agents := []agent.Agent{
		{AgentID: "up", Live: boolPtr(true)},
		{AgentID: "down", Live: boolPtr(false)},
		{AgentID: "unknown"},
	}

	live := agent.Live(agents)
	if len(live) != 1 || live[0].AgentID != "up" {
		t.Fatalf("expected only the probed-live agent, got %v", live)
	}
}

func TestFiltersInactiveReturnsInputUnchanged(t *testing.T) {
	agents := []agent.Agent{{AgentID: "b"}, {AgentID: "a"}, {AgentID: "c"}}

	got := agent.Filters{}.Filter(agents)

	if len(got) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(got))
	}
	for i, a := range agents {
		if got[i].AgentID != a.AgentID {
			t.Fatalf("order changed at %d: %s", i, got[i].AgentID)
		}
	}
}

func TestFiltersConjunction(t *testing.T) {
	agents := []agent.Agent{
		{AgentID: "1", IsGreen: true, Live: boolPtr(true), Alias: "Alpha"},
		{AgentID: "2", IsGreen: true, Alias: "alphabet"},
		{AgentID: "3", Live: boolPtr(true), Alias: "Alpha"},
	}

	f := agent.Filters{IsGreen: boolPtr(true), IsLive: boolPtr(true), Search: "alpha"}
	got := f.Filter(agents)

	if len(got) != 1 || got[0].AgentID != "1" {
		t.Fatalf("expected only agent 1, got %v", got)
	}
}

func TestFiltersSearchMatchesCardFields(t *testing.T) {
	agents := []agent.Agent{
		{AgentID: "1", Alias: "x", Card: &agent.Card{Description: "Plays Chess badly"}},
		{AgentID: "2", Alias: "y"},
	}

	got := agent.Filters{Search: "chess"}.Filter(agents)
	if len(got) != 1 || got[0].AgentID != "1" {
		t.Fatalf("expected card description match, got %v", got)
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     agent.RegisterRequest
		wantErr bool
	}{
		{"valid remote", agent.RegisterRequest{Alias: "a", AgentURL: "http://a"}, false},
		{"valid hosted", agent.RegisterRequest{Alias: "a", IsHosted: true, DockerImageLink: "img"}, false},
		{"missing alias", agent.RegisterRequest{AgentURL: "http://a"}, true},
		{"remote without url", agent.RegisterRequest{Alias: "a"}, true},
		{"hosted without image", agent.RegisterRequest{Alias: "a", IsHosted: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestUpdateRequestApply(t *testing.T) {
	alias := "renamed"
	a := agent.Agent{AgentID: "1", Alias: "orig", AvatarURL: "pic"}

	got := agent.UpdateRequest{Alias: &alias}.Apply(a)

	if got.Alias != "renamed" {
		t.Fatalf("alias not applied: %s", got.Alias)
	}
	if got.AvatarURL != "pic" {
		t.Fatal("nil patch field must leave value untouched")
	}
}
