package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/game/config"
	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/store"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
	"github.com/wricardo/mcp-training/tankbattle/logging"
	"github.com/wricardo/mcp-training/tankbattle/render"
	"github.com/wricardo/mcp-training/tankbattle/settings"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "run one match locally and draw it in the terminal",
		ArgsUsage: "[board id or file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "p1", Value: "hunter", Usage: "strategy of tank 1"},
			&cli.StringFlag{Name: "p2", Value: "sniper", Usage: "strategy of tank 2"},
			&cli.Int64Flag{Name: "seed", Usage: "seed for random strategies (0 picks one from the clock)"},
			&cli.IntFlag{Name: "max-turns", Usage: "override the turn limit"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between turns (defaults to rules.turn_delay)"},
			&cli.BoolFlag{Name: "ascii", Usage: "print plain frames instead of the full-screen view"},
			&cli.BoolFlag{Name: "actions", Usage: "print the action log with ascii frames"},
			&cli.BoolFlag{Name: "record", Usage: "record the outcome in the results database"},
		},
		Action: runPlay,
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ascii := cmd.Bool("ascii")
	logLevel := cfg.LogLevel
	if !ascii && !cmd.IsSet("log-level") {
		// the full-screen view owns the terminal
		logLevel = "error"
	}
	logger := logging.New(os.Stderr, logLevel)

	board, err := loadPlayBoard(cfg, cmd.Args().First())
	if err != nil {
		return err
	}

	seed := cmd.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p1 := service.PlayerSpec{Strategy: cmd.String("p1"), Options: strategyOptions(seed)}
	p2 := service.PlayerSpec{Strategy: cmd.String("p2"), Options: strategyOptions(seed + 1)}
	c1, err := service.NewController(p1)
	if err != nil {
		return fmt.Errorf("player 1: %w", err)
	}
	c2, err := service.NewController(p2)
	if err != nil {
		return fmt.Errorf("player 2: %w", err)
	}

	rules := cfg.Rules.Rules()
	if cmd.IsSet("max-turns") {
		rules.MaxTurns = int(cmd.Int("max-turns"))
	}
	delay := cfg.Rules.TurnDelay
	if cmd.IsSet("delay") {
		delay = cmd.Duration("delay")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	matchID := fmt.Sprintf("local-%d", time.Now().Unix())
	observers := engine.Observers{logging.NewActionLogger(logger, matchID)}
	var term *render.Terminal
	if ascii {
		observers = append(observers, render.NewWriter(cmd.Root().Writer, cmd.Bool("actions")))
	} else {
		term, err = render.OpenTerminal()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		defer term.Close()
		observers = append(observers, term)

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-term.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	eng, err := engine.NewEngine(board, c1, c2,
		engine.WithRules(rules),
		engine.WithObserver(observers),
		engine.WithTurnDelay(delay),
	)
	if err != nil {
		return err
	}
	observers.OnTurn(eng.Snapshot())

	outcome, err := eng.Run(ctx)
	if err != nil {
		if term != nil {
			term.Close()
		}
		logger.Info("match interrupted", "turn", eng.State().Turn)
		return nil
	}

	if term != nil {
		// keep the final frame until the player quits
		select {
		case <-term.Done():
		case <-ctx.Done():
		}
		term.Close()
	}
	fmt.Fprintf(cmd.Root().Writer, "%s: %s vs %s on %s\n", outcome, p1.Strategy, p2.Strategy, board.Name)

	if cmd.Bool("record") {
		return recordOutcome(context.Background(), cfg, matchID, board.Name, p1, p2, outcome)
	}
	return nil
}

func strategyOptions(seed int64) strategy.Options {
	return strategy.Options{Seed: seed}
}

// loadPlayBoard reads name as a board file when one exists at that path and
// otherwise looks it up in the boards directory. An empty name picks the
// default board.
func loadPlayBoard(cfg *settings.Settings, name string) (*engine.Board, error) {
	if name != "" {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			data, err := os.ReadFile(name)
			if err != nil {
				return nil, err
			}
			format, ok := engine.FormatFromExt(filepath.Ext(name))
			if !ok {
				format = engine.FormatText
			}
			id := filepath.Base(name)
			return engine.ParseBoard(id[:len(id)-len(filepath.Ext(id))], format, data)
		}
	}

	if _, err := os.Stat(cfg.BoardsDir); os.IsNotExist(err) {
		if name != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrBoardNotFound, name)
		}
		return config.MinimalBoard(), nil
	}
	boards, err := config.NewManager(cfg.BoardsDir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return boards.GetDefault(), nil
	}
	return boards.LoadBoard(name)
}

func recordOutcome(ctx context.Context, cfg *settings.Settings, matchID, board string, p1, p2 service.PlayerSpec, outcome *engine.Outcome) error {
	results, err := store.Open(cfg.ResultsDB)
	if err != nil {
		return err
	}
	defer results.Close()

	return results.Record(ctx, service.MatchResult{
		MatchID:    matchID,
		Board:      board,
		Player1:    p1.Strategy,
		Player2:    p2.Strategy,
		Result:     outcome.Result,
		Reason:     outcome.Reason,
		Winner:     outcome.Winner,
		Turns:      outcome.Turn,
		FinishedAt: time.Now(),
	})
}
