// Command spectate follows a match running on a tankbattle server over its
// WebSocket and draws every turn in the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/render"
	"github.com/wricardo/mcp-training/tankbattle/transport/websocket"
)

// ErrMatchDeleted is returned when the server deletes the followed match
var ErrMatchDeleted = errors.New("match deleted")

// FetchSnapshot loads the current state of matchID so a late spectator starts
// from the live board
func FetchSnapshot(ctx context.Context, serverURL, matchID string) (engine.Snapshot, error) {
	endpoint := strings.TrimRight(serverURL, "/") + "/api/matches/" + url.PathEscape(matchID) + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return engine.Snapshot{}, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.Snapshot{}, fmt.Errorf("match %s: %s", matchID, resp.Status)
	}

	var state engine.GameState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to parse state: %w", err)
	}
	return engine.NewSnapshot(&state), nil
}

// Watch feeds every turn received on sub to obs. It returns the outcome when
// the match ends, unless follow is set, in which case it keeps watching
// through resets until ctx is done or the match is deleted.
func Watch(ctx context.Context, sub *websocket.Subscription, obs engine.Observer, follow bool) (*engine.Outcome, error) {
	stop := context.AfterFunc(ctx, func() { sub.Close() })
	defer stop()

	var last *engine.Outcome
	for {
		msg, err := sub.Next()
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}

		switch msg.Event {
		case websocket.EventDeleted:
			return last, ErrMatchDeleted
		case websocket.EventTurn, websocket.EventMatchOver:
			if msg.Snapshot == nil {
				continue
			}
			for _, entry := range msg.Snapshot.Entries {
				obs.OnAction(entry)
			}
			obs.OnTurn(*msg.Snapshot)
			if msg.Event == websocket.EventMatchOver {
				last = msg.Snapshot.Outcome
				if !follow {
					return last, nil
				}
			}
		case websocket.EventReset:
			last = nil
		}
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	matchID := cmd.Args().First()
	if matchID == "" {
		return errors.New("usage: spectate [--server URL] <match id>")
	}
	serverURL := cmd.String("server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	initial, err := FetchSnapshot(ctx, serverURL, matchID)
	if err != nil {
		return err
	}

	sub, err := websocket.Subscribe(ctx, serverURL, matchID)
	if err != nil {
		return err
	}
	defer sub.Close()

	var obs engine.Observer
	var term *render.Terminal
	if cmd.Bool("ascii") {
		obs = render.NewWriter(cmd.Root().Writer, cmd.Bool("actions"))
	} else {
		term, err = render.OpenTerminal()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		defer term.Close()
		obs = term

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

	obs.OnTurn(initial)
	outcome := initial.Outcome
	if outcome == nil || cmd.Bool("follow") {
		outcome, err = Watch(ctx, sub, obs, cmd.Bool("follow"))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if term != nil {
		select {
		case <-term.Done():
		case <-ctx.Done():
		}
		term.Close()
	}
	if outcome != nil {
		fmt.Fprintf(cmd.Root().Writer, "match %s: %s\n", matchID, outcome)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "spectate",
		Usage:     "watch a match running on a tankbattle server",
		ArgsUsage: "<match id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Value: "http://localhost:8080", Sources: cli.EnvVars("TANKBATTLE_SERVER")},
			&cli.BoolFlag{Name: "ascii", Usage: "print plain frames instead of the full-screen view"},
			&cli.BoolFlag{Name: "actions", Usage: "print the action log with ascii frames"},
			&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "keep watching after the match ends"},
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
