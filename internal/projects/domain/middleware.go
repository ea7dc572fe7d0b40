package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) List(ctx context.Context) ([]ProjectSummary, error) {
	start := time.Now()
	result, err := m.next.List(ctx)
	m.log(ctx, err, "List",
		"count", len(result),
		"duration", time.Since(start),
	)
	return result, err
}

func (m *loggingMiddleware) Get(ctx context.Context, address string) (*ProjectDetail, error) {
	start := time.Now()
	result, err := m.next.Get(ctx, address)
	m.log(ctx, err, "Get",
		"address", address,
		"duration", time.Since(start),
	)
	return result, err
}

func (m *loggingMiddleware) CreatedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	start := time.Now()
	result, err := m.next.CreatedBy(ctx, user)
	m.log(ctx, err, "CreatedBy",
		"user", user,
		"count", len(result),
		"duration", time.Since(start),
	)
	return result, err
}

func (m *loggingMiddleware) ContributedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	start := time.Now()
	result, err := m.next.ContributedBy(ctx, user)
	m.log(ctx, err, "ContributedBy",
		"user", user,
		"count", len(result),
		"duration", time.Since(start),
	)
	return result, err
}

// log writes successful reads at debug level and failures at warn level.
func (m *loggingMiddleware) log(ctx context.Context, err error, op string, args ...any) {
	if err != nil {
		m.logger.WarnContext(ctx, op, append(args, "error", err)...)
		return
	}
	m.logger.DebugContext(ctx, op, args...)
}

// TimeoutMiddleware returns a service middleware that bounds each operation,
// including its whole RPC fan-out, by d. An operation cut short by the bound
// fails with ErrTimeout.
func TimeoutMiddleware(d time.Duration) func(Service) Service {
	return func(next Service) Service {
		return &timeoutMiddleware{next: next, d: d}
	}
}

type timeoutMiddleware struct {
	next Service
	d    time.Duration
}

func (m *timeoutMiddleware) List(ctx context.Context) ([]ProjectSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, m.d)
	defer cancel()
	result, err := m.next.List(ctx)
	return result, timeoutErr(ctx, err)
}

func (m *timeoutMiddleware) Get(ctx context.Context, address string) (*ProjectDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, m.d)
	defer cancel()
	result, err := m.next.Get(ctx, address)
	return result, timeoutErr(ctx, err)
}

func (m *timeoutMiddleware) CreatedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, m.d)
	defer cancel()
	result, err := m.next.CreatedBy(ctx, user)
	return result, timeoutErr(ctx, err)
}

func (m *timeoutMiddleware) ContributedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, m.d)
	defer cancel()
	result, err := m.next.ContributedBy(ctx, user)
	return result, timeoutErr(ctx, err)
}

func timeoutErr(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
