// Package logging builds the structured loggers used across the module and
// an engine observer that writes the per-turn action log.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// New returns a logger writing to w at the given level. Unknown levels fall
// back to info; a nil writer means stderr.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "tankbattle",
		Level:           lvl,
	})
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ActionLogger writes one line per tank action and one per finished turn
type ActionLogger struct {
	logger *log.Logger
}

// NewActionLogger wraps logger as an engine observer. The match id, when set,
// is attached to every line.
func NewActionLogger(logger *log.Logger, matchID string) *ActionLogger {
	if matchID != "" {
		logger = logger.With("match", matchID)
	}
	return &ActionLogger{logger: logger}
}

func (a *ActionLogger) OnAction(entry engine.ActionLogEntry) {
	kv := []interface{}{
		"turn", entry.Turn,
		"tank", entry.TankID,
		"action", string(entry.Action),
		"applied", entry.Applied,
		"from", entry.From.String(),
		"to", entry.To.String(),
	}
	if entry.Note != "" {
		kv = append(kv, "note", entry.Note)
	}
	if entry.Destroyed {
		a.logger.Warn("tank destroyed", kv...)
		return
	}
	a.logger.Debug("action", kv...)
}

func (a *ActionLogger) OnTurn(snap engine.Snapshot) {
	if snap.Outcome == nil {
		return
	}
	a.logger.Info("match over",
		"turn", snap.Turn,
		"result", string(snap.Outcome.Result),
		"reason", string(snap.Outcome.Reason),
	)
}
