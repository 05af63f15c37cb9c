package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/model"
	"github.com/seantiz/hades/internal/sample"
	"github.com/seantiz/hades/internal/solver"
	"github.com/seantiz/hades/internal/store"
	"github.com/seantiz/hades/internal/workflow"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMaxConcurrent = 4
	DefaultTimeoutS      = 60
)

var (
	// ErrInvalidRequest is returned when a request carries no usable problem
	// or an initial sample that does not fit it.
	ErrInvalidRequest = errors.New("engine: invalid request")
	// ErrNotActive is returned when cancelling a run that is not queued or running.
	ErrNotActive = errors.New("engine: run not active")
)

// Options tunes an Engine.
type Options struct {
	// MaxConcurrent bounds how many runs solve at once. Further runs queue.
	MaxConcurrent int
	// DefaultTimeout applies to requests that carry no timeout.
	DefaultTimeout time.Duration
	// DefaultWorkflow is used for requests that carry no workflow. Nil means
	// workflow.Default().
	DefaultWorkflow *workflow.Spec
}

// Request describes a problem to solve.
type Request struct {
	Problem *bqm.Model
	// Initial optionally seeds the starting sample. Variables it leaves out
	// start at random values.
	Initial  sample.Assignment
	Workflow *workflow.Spec
	TimeoutS *int
}

// ProgressEvent is published for every loop iteration of a run.
type ProgressEvent struct {
	RunID      string  `json:"run_id"`
	Iteration  int     `json:"iteration"`
	Energy     float64 `json:"energy"`
	BestEnergy float64 `json:"best_energy"`
	Improved   bool    `json:"improved"`
	DurationMS int     `json:"duration_ms"`
}

// Engine orchestrates asynchronous run execution.
type Engine struct {
	store    store.Store
	registry *solver.Registry
	logger   *slog.Logger
	opts     Options
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	broker   *Broker[ProgressEvent]

	mu     sync.Mutex
	active map[string]*activeRun
}

// job is everything execute needs; it is owned by the run goroutine.
type job struct {
	run      model.Run
	problem  *bqm.Model
	initial  sample.Assignment
	runnable flow.Runnable
	timeout  time.Duration
}

type activeRun struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, reg *solver.Registry, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeoutS * time.Second
	}
	if opts.DefaultWorkflow == nil {
		opts.DefaultWorkflow = workflow.Default()
	}
	return &Engine{
		store:    s,
		registry: reg,
		logger:   logger,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		broker:   NewBroker[ProgressEvent](),
		active:   make(map[string]*activeRun),
	}
}

// Broker returns the engine's progress broker for SSE subscription.
func (e *Engine) Broker() *Broker[ProgressEvent] {
	return e.broker
}

// Registry returns the strategy registry workflows are built against.
func (e *Engine) Registry() *solver.Registry {
	return e.registry
}

// Submit validates the request, builds its workflow, stores a pending run
// and launches execution in a goroutine. It returns once the run is stored.
func (e *Engine) Submit(ctx context.Context, req Request) (*model.Run, error) {
	r, _, err := e.submit(ctx, req)
	return r, err
}

// Solve submits the request and blocks until the run finishes. If ctx ends
// first the run is cancelled and Solve returns its cancelled record.
func (e *Engine) Solve(ctx context.Context, req Request) (*model.Run, error) {
	r, a, err := e.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	select {
	case <-a.done:
	case <-ctx.Done():
		e.cancel(a)
		<-a.done
	}
	finished, err := e.store.GetRun(context.WithoutCancel(ctx), r.ID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return finished, nil
}

// Cancel sends the stop signal to a queued or running run. The run keeps
// the best sample found so far and finishes as cancelled.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	a, ok := e.active[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, id)
	}
	e.cancel(a)
	return nil
}

// CancelAll cancels every queued or running run.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.active {
		e.cancel(a)
	}
}

func (e *Engine) cancel(a *activeRun) {
	a.cancelled.Store(true)
	a.cancel()
}

// Active returns the number of queued or running runs.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Wait blocks until all in-flight run goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) submit(ctx context.Context, req Request) (*model.Run, *activeRun, error) {
	j, err := e.prepare(req)
	if err != nil {
		return nil, nil, err
	}
	if err := e.store.CreateRun(ctx, &j.run); err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &activeRun{cancel: cancel, done: make(chan struct{})}
	e.mu.Lock()
	e.active[j.run.ID] = a
	e.mu.Unlock()

	e.logger.Info("run submitted", "run_id", j.run.ID, "workflow", j.run.Workflow,
		"num_variables", j.run.NumVariables, "initial_energy", *j.run.InitialEnergy)

	out := j.run
	e.wg.Go(func() {
		e.execute(runCtx, a, j)
	})
	return &out, a, nil
}

// prepare turns a request into a pending run and its built workflow.
func (e *Engine) prepare(req Request) (*job, error) {
	if req.Problem == nil || req.Problem.Len() == 0 {
		return nil, fmt.Errorf("%w: problem has no variables", ErrInvalidRequest)
	}
	if req.TimeoutS != nil && *req.TimeoutS < 0 {
		return nil, fmt.Errorf("%w: negative timeout", ErrInvalidRequest)
	}

	spec := req.Workflow
	if spec == nil {
		spec = e.opts.DefaultWorkflow
	}
	runnable, err := workflow.Build(spec, e.registry)
	if err != nil {
		return nil, fmt.Errorf("build workflow: %w", err)
	}

	for v := range req.Initial {
		if !req.Problem.HasVariable(v) {
			return nil, fmt.Errorf("%w: initial sample: %w: %d", ErrInvalidRequest, bqm.ErrUnknownVariable, v)
		}
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	initial := sample.Merge(sample.Random(req.Problem, rng), req.Initial)
	energy, err := req.Problem.Energy(initial)
	if err != nil {
		return nil, fmt.Errorf("%w: initial sample: %w", ErrInvalidRequest, err)
	}

	problemJSON, err := json.Marshal(req.Problem)
	if err != nil {
		return nil, fmt.Errorf("encode problem: %w", err)
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}

	timeout := e.opts.DefaultTimeout
	if req.TimeoutS != nil && *req.TimeoutS > 0 {
		timeout = time.Duration(*req.TimeoutS) * time.Second
	}

	return &job{
		run: model.Run{
			ID:              model.NewID(),
			Status:          model.StatusPending,
			Workflow:        spec.Name,
			Vartype:         req.Problem.Vartype().String(),
			NumVariables:    req.Problem.Len(),
			NumInteractions: req.Problem.NumInteractions(),
			Problem:         problemJSON,
			WorkflowSpec:    specJSON,
			Sample:          initial,
			InitialEnergy:   &energy,
			TimeoutS:        req.TimeoutS,
			CreatedAt:       time.Now().UTC(),
		},
		problem:  req.Problem,
		initial:  initial,
		runnable: runnable,
		timeout:  timeout,
	}, nil
}

// execute runs the lifecycle of one run: pending→running→completed/failed/cancelled.
func (e *Engine) execute(ctx context.Context, a *activeRun, j *job) {
	id := j.run.ID
	logger := e.logger.With("run_id", id)
	defer close(a.done)
	defer func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
		a.cancel()
	}()
	// Close the progress stream when execution finishes, regardless of outcome.
	defer e.broker.Close(id)

	queuedRuns.Inc()
	err := e.sem.Acquire(ctx, 1)
	queuedRuns.Dec()
	if err != nil {
		// Cancelled while queued.
		e.finish(logger, &model.Run{
			ID:            id,
			Status:        model.StatusCancelled,
			Sample:        j.initial,
			InitialEnergy: j.run.InitialEnergy,
			Energy:        j.run.InitialEnergy,
			Error:         "cancelled before start",
		}, nil)
		return
	}
	defer e.sem.Release(1)
	activeRuns.Inc()
	defer activeRuns.Dec()

	if err := e.store.UpdateRunStatus(context.Background(), id, model.StatusRunning); err != nil {
		logger.Error("failed to transition to running", "error", err)
		e.finish(logger, &model.Run{
			ID:            id,
			Status:        model.StatusFailed,
			Sample:        j.initial,
			InitialEnergy: j.run.InitialEnergy,
			Error:         fmt.Sprintf("failed to start: %v", err),
		}, nil)
		return
	}

	// Capture start time immediately after the running transition so that
	// durations are consistent across every outcome.
	start := time.Now()
	logger.Info("run started", "workflow", j.run.Workflow, "timeout", j.timeout)

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	ctx = flow.WithLogger(ctx, logger)

	// The first loop in the workflow reports progress, wherever it is nested.
	iterations := 0
	ctx = flow.WithIterationObserver(ctx, func(ctx context.Context, ev flow.IterationEvent) {
		iterations = ev.Iteration
		e.record(ctx, logger, id, ev)
	})

	out, err := j.runnable.Run(ctx, flow.NewState(j.problem, j.initial))

	// Failed and cancelled runs report the starting sample.
	result := &model.Run{ID: id, Iterations: iterations, Sample: j.initial, InitialEnergy: j.run.InitialEnergy}
	switch {
	case err != nil && a.cancelled.Load():
		result.Status = model.StatusCancelled
		result.Energy = j.run.InitialEnergy
		result.Error = err.Error()
	case err != nil:
		result.Status = model.StatusFailed
		result.Error = err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Sprintf("run timed out after %s: %v", j.timeout, err)
		}
	default:
		result.Status = model.StatusCompleted
		if a.cancelled.Load() {
			result.Status = model.StatusCancelled
		}
		energy, eerr := out.Energy()
		if eerr != nil {
			result.Status = model.StatusFailed
			result.Error = fmt.Sprintf("score result: %v", eerr)
			break
		}
		result.Sample = out.Sample
		result.Energy = &energy
	}
	e.finish(logger, result, &start)
}

// record persists an iteration and publishes it to progress subscribers.
func (e *Engine) record(ctx context.Context, logger *slog.Logger, id string, ev flow.IterationEvent) {
	it := &model.Iteration{
		RunID:      id,
		Seq:        ev.Iteration,
		Energy:     ev.Energy,
		BestEnergy: ev.BestEnergy,
		Improved:   ev.Improved,
		DurationMS: int(ev.Duration.Milliseconds()),
	}
	// The iteration already happened; persist it even if the run is stopping.
	if err := e.store.InsertIteration(context.WithoutCancel(ctx), it); err != nil {
		logger.Error("failed to persist iteration", "iteration", ev.Iteration, "error", err)
	}
	e.broker.Publish(id, ProgressEvent{
		RunID:      id,
		Iteration:  ev.Iteration,
		Energy:     ev.Energy,
		BestEnergy: ev.BestEnergy,
		Improved:   ev.Improved,
		DurationMS: it.DurationMS,
	})
}

// finish stores the final state of a run. startedAt is nil when the run
// never started.
func (e *Engine) finish(logger *slog.Logger, r *model.Run, startedAt *time.Time) {
	now := time.Now().UTC()
	var durationMS int
	if startedAt != nil {
		d := time.Since(*startedAt)
		durationMS = int(d.Milliseconds())
		runDuration.WithLabelValues(r.Status).Observe(d.Seconds())
	}
	r.DurationMS = &durationMS
	r.StartedAt = startedAt
	r.FinishedAt = &now
	runsTotal.WithLabelValues(r.Status).Inc()

	if err := e.store.UpdateRun(context.Background(), r); err != nil {
		logger.Error("failed to update finished run", "status", r.Status, "error", err)
		return
	}
	attrs := []any{"status", r.Status, "duration_ms", durationMS, "iterations", r.Iterations}
	if r.Energy != nil {
		attrs = append(attrs, "energy", *r.Energy)
	}
	if r.Error != "" {
		attrs = append(attrs, "error", r.Error)
	}
	logger.Info("run finished", attrs...)
}
