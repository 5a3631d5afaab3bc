// Command tournament plays every ordered pairing of strategies on every board,
// records each outcome in the results database and prints the standings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/game/config"
	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/store"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
	"github.com/wricardo/mcp-training/tankbattle/logging"
)

var defaultStrategies = []string{"random", "sniper", "evasive", "hunter"}

// Pairing is one match to play
type Pairing struct {
	Board   *engine.Board
	Player1 string
	Player2 string
	Round   int
	Seed    int64
}

// Schedule lists every ordered pair of distinct strategies on every board,
// rounds times over. Seeds differ per match and derive from seed.
func Schedule(boards []*engine.Board, strategies []string, rounds int, seed int64) []Pairing {
	var pairings []Pairing
	for round := 1; round <= rounds; round++ {
		for _, board := range boards {
			for _, p1 := range strategies {
				for _, p2 := range strategies {
					if p1 == p2 {
						continue
					}
					pairings = append(pairings, Pairing{
						Board:   board,
						Player1: p1,
						Player2: p2,
						Round:   round,
						Seed:    seed + int64(len(pairings))*2,
					})
				}
			}
		}
	}
	return pairings
}

// Play runs one pairing to completion
func Play(ctx context.Context, p Pairing, rules engine.Rules) (service.MatchResult, error) {
	c1, err := service.NewController(service.PlayerSpec{Strategy: p.Player1, Options: strategy.Options{Seed: p.Seed}})
	if err != nil {
		return service.MatchResult{}, err
	}
	c2, err := service.NewController(service.PlayerSpec{Strategy: p.Player2, Options: strategy.Options{Seed: p.Seed + 1}})
	if err != nil {
		return service.MatchResult{}, err
	}

	eng, err := engine.NewEngine(p.Board, c1, c2, engine.WithRules(rules))
	if err != nil {
		return service.MatchResult{}, err
	}
	out, err := eng.Run(ctx)
	if err != nil {
		return service.MatchResult{}, err
	}

	return service.MatchResult{
		MatchID:    fmt.Sprintf("r%d-%s-%s-%s", p.Round, p.Board.Name, p.Player1, p.Player2),
		Board:      p.Board.Name,
		Player1:    p.Player1,
		Player2:    p.Player2,
		Result:     out.Result,
		Reason:     out.Reason,
		Winner:     out.Winner,
		Turns:      out.Turn,
		FinishedAt: time.Now(),
	}, nil
}

// Run plays the pairings on parallel workers and records every result.
// It stops scheduling new matches once ctx is done.
func Run(ctx context.Context, pairings []Pairing, rules engine.Rules, results service.ResultStore, parallel int, logger *log.Logger) (int, error) {
	if parallel < 1 {
		parallel = 1
	}

	jobs := make(chan Pairing)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		played   int
		firstErr error
	)

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				res, err := Play(ctx, p, rules)
				if err == nil {
					err = results.Record(ctx, res)
				}

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					played++
				}
				mu.Unlock()

				if err != nil {
					logger.Error("match failed", "board", p.Board.Name, "p1", p.Player1, "p2", p.Player2, "error", err)
					continue
				}
				logger.Debug("match finished", "match", res.MatchID, "result", res.Result, "reason", res.Reason, "turns", res.Turns)
			}
		}()
	}

feed:
	for _, p := range pairings {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil && firstErr == nil {
		firstErr = err
	}
	return played, firstErr
}

// PrintStandings writes the standings as an aligned table
func PrintStandings(w io.Writer, standings []service.Standing) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tPLAYED\tWINS\tLOSSES\tTIES\tWIN RATE")
	for _, s := range standings {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.1f%%\n", s.Strategy, s.Played, s.Wins, s.Losses, s.Ties, s.WinRate()*100)
	}
	tw.Flush()
}

func loadBoards(dir string, ids []string) ([]*engine.Board, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		infos, err := manager.ListBoards()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			ids = append(ids, info.Filename)
		}
	}
	if len(ids) == 0 {
		return []*engine.Board{manager.GetDefault()}, nil
	}

	boards := make([]*engine.Board, 0, len(ids))
	for _, id := range ids {
		board, err := manager.LoadBoard(id)
		if err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}
	return boards, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := logging.New(os.Stderr, cmd.String("log-level"))

	strategies := cmd.StringSlice("strategies")
	if len(strategies) < 2 {
		return fmt.Errorf("need at least two strategies, got %d", len(strategies))
	}
	for i, name := range strategies {
		strategies[i] = strings.ToLower(strings.TrimSpace(name))
		if !strategy.Exists(strategies[i]) {
			return fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, name)
		}
	}

	boards, err := loadBoards(cmd.String("boards-dir"), cmd.StringSlice("boards"))
	if err != nil {
		return err
	}

	results, err := store.Open(cmd.String("results-db"))
	if err != nil {
		return err
	}
	defer results.Close()

	rules := engine.DefaultRules()
	if cmd.IsSet("max-turns") {
		rules.MaxTurns = int(cmd.Int("max-turns"))
	}

	seed := cmd.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pairings := Schedule(boards, strategies, int(cmd.Int("rounds")), seed)
	logger.Info("starting tournament", "boards", len(boards), "strategies", len(strategies), "matches", len(pairings), "seed", seed)

	played, err := Run(ctx, pairings, rules, results, int(cmd.Int("parallel")), logger)
	logger.Info("tournament finished", "played", played, "of", len(pairings))

	standings, serr := results.Standings(context.Background())
	if serr != nil {
		return serr
	}
	PrintStandings(cmd.Root().Writer, standings)
	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "tournament",
		Usage: "round-robin of strategies over boards",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "boards-dir", Aliases: []string{"d"}, Value: "boards", Sources: cli.EnvVars("BOARDS_DIR")},
			&cli.StringSliceFlag{Name: "boards", Aliases: []string{"b"}, Usage: "board ids (default: every board in the directory)"},
			&cli.StringSliceFlag{Name: "strategies", Aliases: []string{"s"}, Value: defaultStrategies},
			&cli.IntFlag{Name: "rounds", Aliases: []string{"r"}, Value: 1},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Value: 4},
			&cli.IntFlag{Name: "max-turns", Usage: "override the turn limit"},
			&cli.Int64Flag{Name: "seed", Usage: "base seed for random strategies (0 picks one from the clock)"},
			&cli.StringFlag{Name: "results-db", Usage: "SQLite file to record results in; standings include earlier results there (empty keeps them in memory)"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
