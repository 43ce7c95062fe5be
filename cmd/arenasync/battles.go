package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	adapter "github.com/agentarena/arenasync/internal/adapter/arena"
	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/logger"
	"github.com/agentarena/arenasync/internal/store"
)

// runBattles lists battles through the store and prints the ongoing and
// past partitions.
func runBattles(args []string) error {
	fs := flag.NewFlagSet("battles", flag.ExitOnError)
	userID := fs.String("user", "", "only battles created by this user")
	agentID := fs.String("agent", "", "only battles this agent participates in")
	ongoing := fs.Bool("ongoing", false, "only the ongoing partition")
	past := fs.Bool("past", false, "only the past partition")
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

	battles := store.NewBattles(adapter.NewBattlesService(client), nil, nil)
	defer battles.Close()

	battles.LoadAll(logger.WithRequestID(context.Background(), uuid.NewString()), *userID)
	if *agentID != "" {
		battles.SetFilters(battle.Filters{AgentID: *agentID})
	}

	snap := battles.Snapshot()
	if snap.Error != "" {
		return fmt.Errorf("list battles: %s", snap.Error)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tSTATE\tGREEN\tRED\tBLUE\tWINNER\tCREATED")

	rows := snap.Filtered
	switch {
	case *ongoing && !*past:
		rows = snap.Ongoing
	case *past && !*ongoing:
		rows = snap.Past
	}
	for _, b := range rows {
		printBattle(w, b)
	}
	return nil
}

func printBattle(w *tabwriter.Writer, b battle.Battle) {
	winner := "-"
	if b.Result != nil {
		winner = string(b.Result.Winner)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		b.BattleID, b.State, orDash(b.GreenAgentID), orDash(b.RedAgentID), orDash(b.BlueAgentID),
		winner, b.CreatedAt.Format("2006-01-02 15:04:05"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
