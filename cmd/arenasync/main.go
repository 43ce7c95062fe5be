// Command arenasync is the CLI for the arena synchronization layer:
// one-shot listings of agents and battles, a live battle watcher, and
// a bundled mock backend for local development.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/agentarena/arenasync/internal/adapter/arena"
	"github.com/agentarena/arenasync/internal/adapter/livefeed"
	"github.com/agentarena/arenasync/internal/config"
	"github.com/agentarena/arenasync/internal/logger"
	"github.com/agentarena/arenasync/internal/resilience"
	port "github.com/agentarena/arenasync/internal/port/arena"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "--help" {
		printHelp()
		return
	}

	var err error
	switch os.Args[1] {
	case "watch":
		err = runWatch(os.Args[2:])
	case "agents":
		err = runAgents(os.Args[2:])
	case "battles":
		err = runBattles(os.Args[2:])
	case "mockd":
		err = runMockd(os.Args[2:])
	default:
		printHelp()
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: arenasync <command> [options]

Commands:
  agents    List agents (leaderboard, liveness, filters)
  battles   List battles (ongoing and past)
  watch     Follow the live battle feed
  mockd     Run the bundled mock arena backend
  help      Show this help message

Examples:
  arenasync agents --liveness
  arenasync battles --ongoing
  arenasync watch
  arenasync mockd --seed
`)
}

// setup loads configuration and installs the logger. The returned
// closer flushes async log workers.
func setup() (*config.Config, logger.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	return cfg, closer, nil
}

// newClient builds the backend client from config. It prompts for a
// token when asked, or when none is configured and stdin is a
// terminal; an empty answer proceeds unauthenticated.
func newClient(cfg *config.Config, promptToken bool) (*arena.Client, error) {
	token := cfg.API.Token
	if promptToken || (token == "" && term.IsTerminal(int(syscall.Stdin))) {
		t, err := readToken()
		if err != nil {
			return nil, err
		}
		token = t
	}

	c := arena.NewClient(cfg.API.BaseURL, port.StaticToken(token))
	if cfg.API.RequestTimeout > 0 {
		c.SetTimeout(cfg.API.RequestTimeout)
	}
	if cfg.Breaker.Enabled {
		c.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	}
	return c, nil
}

// newFeed builds the live channel client, deriving the endpoint from
// the API base URL unless overridden.
func newFeed(cfg *config.Config) (*livefeed.Feed, error) {
	wsURL := cfg.Feed.URL
	if wsURL == "" {
		derived, err := livefeed.DeriveURL(cfg.API.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("derive feed url: %w", err)
		}
		wsURL = derived
	}
	return livefeed.New(wsURL, slog.Default()), nil
}

// readToken reads a bearer token from the terminal without echo.
func readToken() (string, error) {
	fmt.Fprint(os.Stderr, "API token: ")
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(b), nil
}
