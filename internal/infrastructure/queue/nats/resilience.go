package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/resilience"
)

// classifyPublishError decides retry and breaker accounting for one publish attempt.
// An attempt that ran out of its own deadline is retried; a cancelled caller is not.
func classifyPublishError(err error) resilience.Verdict {
	switch {
	case err == nil:
		return resilience.Verdict{}
	case errors.Is(err, context.Canceled):
		return resilience.Verdict{}
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Verdict{Retry: true, Trip: true}
	default:
		// Bad subjects and oversized payloads will not improve on retry and say nothing about the server.
		return resilience.Verdict{}
	}
}

// asTemporary marks errors a later publish may get past, including an open breaker.
func asTemporary(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsOpen(err) || classifyPublishError(err).Retry {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
