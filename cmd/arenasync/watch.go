package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	adapter "github.com/agentarena/arenasync/internal/adapter/arena"
	"github.com/agentarena/arenasync/internal/store"
)

// runWatch follows the live battle feed, printing one line per change
// until interrupted. The HTTP listing primes the store; afterwards the
// feed drives it.
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	userID := fs.String("user", "", "only battles created by this user")
	promptToken := fs.Bool("prompt-token", false, "prompt for the API token")
	reconnect := fs.Duration("reconnect", 5*time.Second, "delay before redialing a dropped feed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog.Close()

	client, err := newClient(cfg, *promptToken)
	if err != nil {
		return err
	}
	feed, err := newFeed(cfg)
	if err != nil {
		return err
	}

	battles := store.NewBattles(adapter.NewBattlesService(client), feed, nil)
	defer battles.Close()

	printWatchEvents(battles)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	battles.LoadAll(ctx, *userID)
	if snap := battles.Snapshot(); snap.Error != "" {
		return fmt.Errorf("prime battles: %s", snap.Error)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The feed has no automatic reconnect; the watcher redials.
		for {
			if err := battles.ConnectLive(ctx); err != nil {
				fmt.Println("feed connect failed:", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(*reconnect):
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		battles.DisconnectLive()
		return nil
	})
	return g.Wait()
}

// printWatchEvents subscribes a line printer to the store.
func printWatchEvents(battles *store.Battles) {
	lastStates := make(map[string]string)
	battles.Subscribe(func(snap store.BattlesSnapshot) {
		for _, b := range snap.Battles {
			key := string(b.State)
			if b.Result != nil {
				key += "/" + string(b.Result.Winner)
			}
			if lastStates[b.BattleID] == key {
				continue
			}
			lastStates[b.BattleID] = key

			line := fmt.Sprintf("%s  battle %s  %s", time.Now().Format("15:04:05"), b.BattleID, b.State)
			if b.Result != nil {
				line += fmt.Sprintf("  winner=%s (%s)", b.Result.Winner, b.Result.Reason)
			}
			fmt.Println(line)
		}
		fmt.Printf("         ongoing=%d past=%d feed=%s\n", len(snap.Ongoing), len(snap.Past), snap.FeedState)
	})
}
