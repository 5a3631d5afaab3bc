package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/wricardo/mcp-training/tankbattle/game/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type serviceMetrics struct {
	turns    metric.Int64Counter
	finished metric.Int64Counter
	created  metric.Int64Counter
}

func newServiceMetrics() (*serviceMetrics, error) {
	m := meter()
	sm := &serviceMetrics{}

	var err error
	sm.turns, err = m.Int64Counter(
		"tankbattle.turns.played",
		metric.WithDescription("Number of turns resolved across all matches"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}

	sm.finished, err = m.Int64Counter(
		"tankbattle.matches.finished",
		metric.WithDescription("Number of matches that reached an outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}

	sm.created, err = m.Int64Counter(
		"tankbattle.matches.created",
		metric.WithDescription("Number of matches created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}
	return sm, nil
}

func (sm *serviceMetrics) turnsPlayed(ctx context.Context, board string, n int) {
	if sm == nil || n == 0 {
		return
	}
	sm.turns.Add(ctx, int64(n), metric.WithAttributes(attribute.String("board", board)))
}

func (sm *serviceMetrics) matchFinished(ctx context.Context, result MatchResult) {
	if sm == nil {
		return
	}
	sm.finished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("board", result.Board),
		attribute.String("result", string(result.Result)),
		attribute.String("reason", string(result.Reason)),
	))
}

func (sm *serviceMetrics) matchCreated(ctx context.Context, board string) {
	if sm == nil {
		return
	}
	sm.created.Add(ctx, 1, metric.WithAttributes(attribute.String("board", board)))
}
