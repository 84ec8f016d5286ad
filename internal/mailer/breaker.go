package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"formexport/pkg/circuitbreaker"
)

// BreakerMailer stops calling the transport while it keeps failing. A send
// rejected by the open breaker is a delivery failure like any other.
type BreakerMailer struct {
	next    Mailer
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewBreakerMailer(next Mailer, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *BreakerMailer {
	return &BreakerMailer{next: next, breaker: breaker, logger: logger}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) error {
	err := m.breaker.Execute(func() error {
		return m.next.Send(ctx, msg)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		m.logger.Warn("Mail transport circuit open, email not sent",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
		)
	}
	return err
}
