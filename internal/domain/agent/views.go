package agent

import "sort"

// DefaultLeaderboardSize is the number of agents shown on the dashboard
// leaderboard.
const DefaultLeaderboardSize = 6

// Green returns the agents that initiate battles.
func Green(agents []Agent) []Agent {
	return partition(agents, func(a Agent) bool { return a.IsGreen })
}

// Opponents returns the agents that participate in battles staged by a
// green agent.
func Opponents(agents []Agent) []Agent {
	return partition(agents, func(a Agent) bool { return !a.IsGreen })
}

// Live returns the agents whose endpoint answered its last health probe.
func Live(agents []Agent) []Agent {
	return partition(agents, Agent.IsLive)
}

// Top returns the n highest-ranked agents. Ordering is total: Elo
// rating descending, then win rate descending, then creation time
// descending (newest first). Unrated agents rank below any rated agent.
// The input slice is not modified.
func Top(agents []Agent, n int) []Agent {
	ranked := make([]Agent, len(agents))
	copy(ranked, agents)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ri, rj := ranked[i].Rating(), ranked[j].Rating(); ri != rj {
			return ri > rj
		}
		if wi, wj := ranked[i].WinRate(), ranked[j].WinRate(); wi != wj {
			return wi > wj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func partition(agents []Agent, keep func(Agent) bool) []Agent {
	out := make([]Agent, 0, len(agents))
	for _, a := range agents {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
