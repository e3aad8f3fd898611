package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics counts session authority transitions. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	signIns     metric.Int64Counter
	refreshes   metric.Int64Counter
	signOuts    metric.Int64Counter
	revocations metric.Int64Counter
	rejections  metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on mp.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &AuthMetrics{}
	var err error
	if m.signIns, err = meter.Int64Counter("auth.sign_ins",
		metric.WithDescription("Sign-in attempts by outcome and error code.")); err != nil {
		return nil, err
	}
	if m.refreshes, err = meter.Int64Counter("auth.refreshes",
		metric.WithDescription("Session refresh attempts by outcome and error code.")); err != nil {
		return nil, err
	}
	if m.signOuts, err = meter.Int64Counter("auth.sign_outs"); err != nil {
		return nil, err
	}
	if m.revocations, err = meter.Int64Counter("auth.sessions_revoked",
		metric.WithDescription("Sessions deactivated by explicit revocation.")); err != nil {
		return nil, err
	}
	if m.rejections, err = meter.Int64Counter("auth.guard_rejections",
		metric.WithDescription("Requests rejected by the access guard, by error code.")); err != nil {
		return nil, err
	}
	return m, nil
}

// SignIn records a sign-in attempt. code is the error code on failure, empty on success.
func (m *AuthMetrics) SignIn(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.signIns.Add(ctx, 1, outcome(code))
}

// Refresh records a refresh attempt. code is the error code on failure, empty on success.
func (m *AuthMetrics) Refresh(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, outcome(code))
}

// SignOut records one sign-out.
func (m *AuthMetrics) SignOut(ctx context.Context) {
	if m == nil {
		return
	}
	m.signOuts.Add(ctx, 1)
}

// Revoked records n sessions deactivated; scope is "one" or "all".
func (m *AuthMetrics) Revoked(ctx context.Context, scope string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.Add(ctx, n, metric.WithAttributes(attribute.String("scope", scope)))
}

// GuardRejected records one request rejected by the access guard.
func (m *AuthMetrics) GuardRejected(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func outcome(code string) metric.AddOption {
	if code == "" {
		return metric.WithAttributes(attribute.String("outcome", OutcomeSuccess))
	}
	return metric.WithAttributes(
		attribute.String("outcome", OutcomeFailure),
		attribute.String("code", code),
	)
}
