// Package poller waits for asynchronous provider transformations to
// materialise by repeatedly checking the derived asset URL.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"lumina/internal/metrics"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60

	// StartProgress is reported when polling begins.
	StartProgress = 10.0
	// CeilingProgress caps the estimate while the provider is still working.
	CeilingProgress = 90.0
	progressStep    = 1.5
)

// State is the outcome of a single existence check.
type State int

const (
	// Pending means not ready yet; transient failures also land here.
	Pending State = iota
	// Ready means the provider serves the derived asset.
	Ready
	// Terminal means polling cannot succeed and must stop.
	Terminal
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Terminal:
		return "terminal"
	default:
		return "pending"
	}
}

// Result is returned by a Checker. Err explains Pending and Terminal results.
type Result struct {
	State State
	Err   error
}

// Checker performs one existence check against url.
type Checker interface {
	Check(ctx context.Context, url string) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, url string) Result

func (f CheckerFunc) Check(ctx context.Context, url string) Result { return f(ctx, url) }

// Outcome describes how polling finished.
type Outcome struct {
	URL      string
	Attempts int
	// TimedOut is set when the attempt budget ran out before the provider
	// reported ready. Callers force-complete with URL in that case.
	TimedOut bool
}

// ProgressFunc receives the attempt count and the new estimate.
type ProgressFunc func(attempts int, progress float64)

// ErrTerminal wraps the cause reported by a Terminal check.
var ErrTerminal = errors.New("poller: terminal check result")

// Options configures a Poller.
type Options struct {
	Checker     Checker
	Interval    time.Duration
	MaxAttempts int
	Logger      *zerolog.Logger
	Metrics     *metrics.Metrics
	// Wait blocks for d or until ctx is done. Defaults to a timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// Poller polls a single URL at a fixed interval.
type Poller struct {
	checker     Checker
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	wait        func(ctx context.Context, d time.Duration) error
}

// New builds a Poller, applying defaults for unset options.
func New(opts Options) (*Poller, error) {
	if opts.Checker == nil {
		return nil, errors.New("poller: checker is required")
	}
	p := &Poller{
		checker:     opts.Checker,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		logger:      zerolog.New(io.Discard),
		metrics:     opts.Metrics,
		wait:        opts.Wait,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if opts.Logger != nil {
		p.logger = opts.Logger.With().Str("component", "poller").Logger()
	}
	if p.wait == nil {
		p.wait = sleep
	}
	return p, nil
}

// MaxAttempts returns the attempt budget.
func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// EstimateProgress returns the pending progress after attempts failed checks.
func EstimateProgress(attempts int) float64 {
	return math.Min(StartProgress+float64(attempts)*progressStep, CeilingProgress)
}

// Poll checks url until it is ready, the attempt budget is spent, a check
// reports Terminal, or ctx is cancelled. Each attempt is scheduled only after
// the previous one returned, so one check at most is in flight.
func (p *Poller) Poll(ctx context.Context, url string, onProgress ProgressFunc) (Outcome, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{URL: url, Attempts: attempt - 1}, err
		}
		res := p.checker.Check(ctx, url)
		p.metrics.PollCheck(res.State.String())
		switch res.State {
		case Ready:
			if onProgress != nil {
				onProgress(attempt, 100)
			}
			return Outcome{URL: url, Attempts: attempt}, nil
		case Terminal:
			return Outcome{URL: url, Attempts: attempt}, fmt.Errorf("%w: %v", ErrTerminal, res.Err)
		}
		if err := ctx.Err(); err != nil {
			return Outcome{URL: url, Attempts: attempt}, err
		}
		p.logger.Debug().Err(res.Err).Int("attempt", attempt).Str("url", url).Msg("transformation still processing")
		if onProgress != nil {
			onProgress(attempt, EstimateProgress(attempt))
		}
		if attempt >= p.maxAttempts {
			p.logger.Warn().Int("attempts", attempt).Str("url", url).Msg("poll budget exhausted, completing with requested url")
			return Outcome{URL: url, Attempts: attempt, TimedOut: true}, nil
		}
		if err := p.wait(ctx, p.interval); err != nil {
			return Outcome{URL: url, Attempts: attempt}, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
