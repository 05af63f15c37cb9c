package flow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// IterationEvent describes one completed loop iteration.
type IterationEvent struct {
	Iteration  int
	Energy     float64
	BestEnergy float64
	Improved   bool
	Duration   time.Duration
}

// Observer is called synchronously after every loop iteration.
type Observer func(ctx context.Context, ev IterationEvent)

// Loop repeatedly applies its body to its own output and keeps the best
// state seen.
type Loop struct {
	base        Base
	body        Runnable
	maxIter     int
	convergence int
	timeout     time.Duration
	key         KeyFunc
	observer    Observer
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxIter stops the loop after n iterations. Zero means unbounded.
func WithMaxIter(n int) LoopOption {
	return func(l *Loop) { l.maxIter = n }
}

// WithConvergence stops the loop after n consecutive iterations without
// improvement over the incumbent. Zero disables the check.
func WithConvergence(n int) LoopOption {
	return func(l *Loop) { l.convergence = n }
}

// WithTimeout bounds the loop's wall-clock time. Zero means no bound.
func WithTimeout(d time.Duration) LoopOption {
	return func(l *Loop) { l.timeout = d }
}

// WithObserver registers a per-iteration callback. It runs in addition to
// any observer claimed from the context.
func WithObserver(fn Observer) LoopOption {
	return func(l *Loop) { l.observer = fn }
}

// WithLoopKey replaces the energy key used to rank iterations.
func WithLoopKey(key KeyFunc) LoopOption {
	return func(l *Loop) { l.key = key }
}

// NewLoop wraps body in an iterative loop.
func NewLoop(body Runnable, opts ...LoopOption) *Loop {
	l := &Loop{body: body, key: EnergyKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Name() string         { return "Loop(" + l.body.Name() + ")" }
func (l *Loop) Children() []Runnable { return []Runnable{l.body} }
func (l *Loop) Stop()                { l.base.Stop() }

// Run iterates until the iteration limit, the convergence limit, the
// timeout, or a stop signal. It returns the best state seen; each returned
// state carries the iteration that produced it. A body failure is fatal
// unless the loop was already stopping.
func (l *Loop) Run(ctx context.Context, s State) (out State, err error) {
	ctx, done := l.base.Begin(ctx)
	defer done()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	ctx, span := startSpan(ctx, "flow.Loop", l,
		attribute.Int("flow.max_iter", l.maxIter),
		attribute.Int("flow.convergence", l.convergence),
	)
	iterations := 0
	defer func() {
		span.SetAttributes(attribute.Int("flow.iterations", iterations))
		endSpan(span, err)
	}()

	bestEnergy, err := l.key(s)
	if err != nil {
		return State{}, fmt.Errorf("loop: initial state: %w", err)
	}
	claimed := claimObserver(ctx)
	logger := Logger(ctx)
	best, cur := s, s
	stale := 0
	for it := 1; l.maxIter <= 0 || it <= l.maxIter; it++ {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		next, err := l.body.Run(ctx, cur)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return State{}, fmt.Errorf("loop: iteration %d: %w", it, err)
		}
		energy, err := l.key(next)
		if err != nil {
			return State{}, fmt.Errorf("loop: iteration %d: %w", it, err)
		}
		next.Iteration = it
		iterations = it
		loopIterationsTotal.Inc()

		improved := energy < bestEnergy
		if improved {
			best, bestEnergy, stale = next, energy, 0
		} else {
			stale++
		}
		ev := IterationEvent{
			Iteration:  it,
			Energy:     energy,
			BestEnergy: bestEnergy,
			Improved:   improved,
			Duration:   time.Since(start),
		}
		logger.Debug("loop iteration", "iteration", it, "energy", energy, "best_energy", bestEnergy, "improved", improved)
		if l.observer != nil {
			l.observer(ctx, ev)
		}
		if claimed != nil {
			claimed(ctx, ev)
		}

		cur = next
		if l.convergence > 0 && stale >= l.convergence {
			break
		}
	}
	return best, nil
}
