package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/sample"
	"github.com/seantiz/hades/internal/solver"
	"github.com/seantiz/hades/internal/workflow"
)

type solveOptions struct {
	problemPath  string
	workflowPath string
	samplePath   string
	start        string
	timeout      time.Duration
	seed         uint64
}

type solveResult struct {
	Workflow      string      `json:"workflow"`
	Vartype       string      `json:"vartype"`
	NumVariables  int         `json:"num_variables"`
	InitialEnergy float64     `json:"initial_energy"`
	Energy        float64     `json:"energy"`
	Iterations    int         `json:"iterations"`
	DurationMS    int64       `json:"duration_ms"`
	Sample        map[int]int `json:"sample"`
}

func newSolveCmd() *cobra.Command {
	var opts solveOptions
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run a workflow over a problem and print the best sample",
		Long: `Reads a problem in JSON form ({"vartype","linear","quadratic","offset"}),
runs the workflow (the built-in default unless --workflow is given) and prints
the lowest-energy sample found. Interrupting the command stops the workflow
and prints the best sample so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.problemPath, "problem", "p", "", `problem JSON file ("-" for stdin)`)
	cmd.Flags().StringVarP(&opts.workflowPath, "workflow", "w", "", "workflow YAML or JSON file")
	cmd.Flags().StringVar(&opts.samplePath, "sample", "", "JSON object of starting values by variable")
	cmd.Flags().StringVar(&opts.start, "start", "random", "values for variables not in --sample: random, min or max")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "wall-clock budget")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func runSolve(cmd *cobra.Command, opts solveOptions) error {
	logger := newLogger(cmd)

	data, err := readInput(cmd, opts.problemPath)
	if err != nil {
		return err
	}
	var problem bqm.Model
	if err := json.Unmarshal(data, &problem); err != nil {
		return fmt.Errorf("parse problem: %w", err)
	}
	if problem.Len() == 0 {
		return fmt.Errorf("problem has no variables")
	}

	spec := workflow.Default()
	if opts.workflowPath != "" {
		wf, err := readInput(cmd, opts.workflowPath)
		if err != nil {
			return err
		}
		if spec, err = workflow.Parse(wf); err != nil {
			return err
		}
	}

	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	reg := solver.NewDefaultRegistry(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	runnable, err := workflow.Build(spec, reg)
	if err != nil {
		return err
	}

	initial, err := startSample(&problem, opts.start, rng)
	if err != nil {
		return err
	}
	if opts.samplePath != "" {
		raw, err := readInput(cmd, opts.samplePath)
		if err != nil {
			return err
		}
		var given sample.Assignment
		if err := json.Unmarshal(raw, &given); err != nil {
			return fmt.Errorf("parse sample: %w", err)
		}
		initial = sample.Merge(initial, given)
	}
	initialEnergy, err := problem.Energy(initial)
	if err != nil {
		return fmt.Errorf("starting sample: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	ctx = flow.WithLogger(ctx, logger)

	iterations := 0
	ctx = flow.WithIterationObserver(ctx, func(_ context.Context, ev flow.IterationEvent) {
		iterations = ev.Iteration
		logger.Info("iteration", "iteration", ev.Iteration, "energy", ev.Energy,
			"best_energy", ev.BestEnergy, "improved", ev.Improved)
	})

	logger.Info("solve started", "workflow", spec.Name, "runnable", runnable.Name(),
		"num_variables", problem.Len(), "seed", seed, "initial_energy", initialEnergy)
	start := time.Now()
	out, err := runnable.Run(ctx, flow.NewState(&problem, initial))
	if err != nil {
		return fmt.Errorf("run workflow: %w", err)
	}
	energy, err := out.Energy()
	if err != nil {
		return fmt.Errorf("score result: %w", err)
	}

	return writeJSON(cmd.OutOrStdout(), solveResult{
		Workflow:      spec.Name,
		Vartype:       problem.Vartype().String(),
		NumVariables:  problem.Len(),
		InitialEnergy: initialEnergy,
		Energy:        energy,
		Iterations:    iterations,
		DurationMS:    time.Since(start).Milliseconds(),
		Sample:        out.Sample,
	})
}

func startSample(m *bqm.Model, start string, rng *rand.Rand) (sample.Assignment, error) {
	switch start {
	case "random":
		return sample.Random(m, rng), nil
	case "min":
		return sample.Min(m), nil
	case "max":
		return sample.Max(m), nil
	default:
		return nil, fmt.Errorf("unknown --start %q: want random, min or max", start)
	}
}
