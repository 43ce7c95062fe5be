package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	adapter "github.com/agentarena/arenasync/internal/adapter/arena"
	"github.com/agentarena/arenasync/internal/domain/agent"
	"github.com/agentarena/arenasync/internal/logger"
	port "github.com/agentarena/arenasync/internal/port/arena"
	"github.com/agentarena/arenasync/internal/store"
)

// runAgents lists agents through the store, optionally with the
// two-phase liveness load, and prints the result as a table.
func runAgents(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	mine := fs.Bool("mine", false, "only my agents")
	green := fs.Bool("green", false, "only green agents")
	liveOnly := fs.Bool("live", false, "only agents whose endpoint is up (implies --liveness)")
	liveness := fs.Bool("liveness", false, "probe endpoint liveness (two-phase load)")
	top := fs.Bool("top", false, "print the leaderboard instead of the full roster")
	search := fs.String("search", "", "filter by alias or card text")
	promptToken := fs.Bool("prompt-token", false, "prompt for the API token")
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

	agents := store.NewAgents(adapter.NewAgentsService(client), nil)
	defer agents.Close()
	agents.SetLeaderboardSize(cfg.Leaderboard.Size)

	scope := agent.ScopeAll
	if *mine {
		scope = agent.ScopeMine
	}

	ctx := logger.WithRequestID(context.Background(), uuid.NewString())
	if *liveness || *liveOnly {
		// Wait for both phases so the table carries real verdicts.
		phases := make(chan []agent.Agent, 2)
		agents.LoadWithLiveness(ctx, scope, func(got []agent.Agent) { phases <- got })
		<-phases
		<-phases
	} else {
		var isGreen *bool
		if *green {
			g := true
			isGreen = &g
		}
		agents.LoadAll(ctx, port.ListAgentsOptions{Scope: scope, IsGreen: isGreen})
	}

	if *search != "" || *green || *liveOnly {
		var isGreen, isLive *bool
		if *green {
			g := true
			isGreen = &g
		}
		if *liveOnly {
			l := true
			isLive = &l
		}
		agents.SetFilters(agent.Filters{IsGreen: isGreen, IsLive: isLive, Search: *search})
	}

	snap := agents.Snapshot()
	if snap.Error != "" {
		return fmt.Errorf("list agents: %s", snap.Error)
	}

	rows := snap.Filtered
	if *top {
		rows = snap.Top
	}
	printAgents(rows, *liveness || *liveOnly)
	return nil
}

func printAgents(agents []agent.Agent, withLiveness bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	header := "ALIAS\tID\tGREEN\tRATING\tWIN RATE"
	if withLiveness {
		header += "\tLIVE"
	}
	fmt.Fprintln(w, header)

	for _, a := range agents {
		row := fmt.Sprintf("%s\t%s\t%t\t%.0f\t%.1f%%", a.Alias, a.AgentID, a.IsGreen, a.Rating(), a.WinRate()*100)
		if withLiveness {
			switch {
			case a.LivenessLoading:
				row += "\t..."
			case a.Live == nil:
				row += "\t?"
			default:
				row += fmt.Sprintf("\t%t", *a.Live)
			}
		}
		fmt.Fprintln(w, row)
	}
}
