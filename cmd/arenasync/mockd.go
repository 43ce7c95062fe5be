package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentarena/arenasync/internal/arenatest"
	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/domain/battle"
)

// runMockd serves the in-memory mock backend. With --seed it loads demo
// agents and battles and advances the battles on a timer so the live
// feed has something to say.
func runMockd(args []string) error {
	fs := flag.NewFlagSet("mockd", flag.ExitOnError)
	seed := fs.Bool("seed", false, "load demo agents and battles")
	legacy := fs.Bool("legacy-battles", false, "serve the battle list in the legacy wrapped shape")
	advanceEvery := fs.Duration("advance", 10*time.Second, "interval between seeded battle state steps (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog.Close()

	srv, err := arenatest.NewServer(slog.Default(), arenatest.Options{
		LegacyBattleShape: *legacy,
		LivenessTTL:       cfg.Mock.LivenessTTL,
		LivenessCacheSize: cfg.Mock.LivenessCacheSize,
	})
	if err != nil {
		return fmt.Errorf("mock server: %w", err)
	}
	defer srv.Close()

	var seeded []battle.Battle
	if *seed {
		seeded = seedDemo(srv)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Mock.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("mock backend listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if *seed && *advanceEvery > 0 {
		g.Go(func() error {
			advanceSeeded(ctx, srv, seeded, *advanceEvery)
			return nil
		})
	}
	return g.Wait()
}

// seedDemo loads a recognizable fixture set.
func seedDemo(srv *arenatest.Server) []battle.Battle {
	rate := func(rating, winRate float64, games int) *agent.Elo {
		return &agent.Elo{Rating: rating, Stats: &agent.EloStats{WinRate: winRate, GamesPlayed: games}}
	}

	green := srv.SeedAgent(agent.Agent{Alias: "gatekeeper", IsGreen: true, Elo: rate(1450, 0.62, 40)})
	red := srv.SeedAgent(agent.Agent{Alias: "crimson", Elo: rate(1390, 0.55, 31)})
	blue := srv.SeedAgent(agent.Agent{Alias: "cobalt", Elo: rate(1210, 0.41, 22)})
	srv.SeedAgent(agent.Agent{Alias: "drifter"})

	srv.SetLive(green.AgentID, true)
	srv.SetLive(red.AgentID, true)
	srv.SetLive(blue.AgentID, false)

	var battles []battle.Battle
	battles = append(battles, srv.SeedBattle(battle.Battle{
		GreenAgentID: green.AgentID,
		RedAgentID:   red.AgentID,
		State:        battle.StatePending,
		Scenario:     "capture-the-flag",
	}))
	battles = append(battles, srv.SeedBattle(battle.Battle{
		GreenAgentID: green.AgentID,
		RedAgentID:   red.AgentID,
		BlueAgentID:  blue.AgentID,
		State:        battle.StateQueued,
		Scenario:     "king-of-the-hill",
	}))
	return battles
}

// advanceSeeded walks every seeded battle to a terminal state, one step
// per tick, broadcasting each delta on the feed.
func advanceSeeded(ctx context.Context, srv *arenatest.Server, battles []battle.Battle, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		advanced := false
		for _, b := range battles {
			stepped, ok := srv.AdvanceBattle(ctx, b.BattleID)
			if ok && !stepped.State.Terminal() {
				advanced = true
			}
		}
		if !advanced {
			srv.BroadcastRoster(ctx)
			return
		}
	}
}
