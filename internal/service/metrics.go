package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds the auth flow counters
type Metrics struct {
	logins        metric.Int64Counter
	refreshes     metric.Int64Counter
	sessionsSwept metric.Int64Counter
}

// NewMetrics registers the auth counters on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	logins, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by provider and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Refresh attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refreshes counter: %w", err)
	}

	sessionsSwept, err := meter.Int64Counter("auth.sessions.swept",
		metric.WithDescription("Expired sessions removed by the background sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions swept counter: %w", err)
	}

	return &Metrics{
		logins:        logins,
		refreshes:     refreshes,
		sessionsSwept: sessionsSwept,
	}, nil
}

func (m *Metrics) recordLogin(ctx context.Context, provider string, err error) {
	m.logins.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome(err)),
	))
}

func (m *Metrics) recordRefresh(ctx context.Context, err error) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

func (m *Metrics) recordSwept(ctx context.Context, n int64) {
	m.sessionsSwept.Add(ctx, n)
}

func outcome(err error) string {
	if err != nil {
		return outcomeFailure
	}
	return outcomeSuccess
}
