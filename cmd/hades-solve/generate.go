package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/sample"
)

type generateOptions struct {
	size       int
	density    float64
	vartype    string
	chimera    string
	seed       uint64
	withSample bool
}

// request matches the body accepted by POST /v1/runs.
type request struct {
	Problem *bqm.Model        `json:"problem"`
	Sample  sample.Assignment `json:"sample,omitempty"`
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random problem",
		Long: `Prints a random problem over variables 0..size-1 with biases drawn
uniformly from [-1, 1]. With --chimera M,N,T the problem instead spans every
qubit and coupler of an MxN Chimera lattice with shores of size T, labelled
canonically. With --with-sample the output is a run request carrying a random
starting sample.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.size, "size", 16, "number of variables")
	cmd.Flags().Float64Var(&opts.density, "density", 0.5, "probability of each coupling")
	cmd.Flags().StringVar(&opts.vartype, "vartype", "spin", "spin or binary")
	cmd.Flags().StringVar(&opts.chimera, "chimera", "", "generate on an M,N,T Chimera lattice")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&opts.withSample, "with-sample", false, "wrap the problem in a run request with a starting sample")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	vt, err := bqm.ParseVartype(opts.vartype)
	if err != nil {
		return err
	}
	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	var m *bqm.Model
	if opts.chimera != "" {
		rows, cols, shore, err := parseTriple(opts.chimera)
		if err != nil {
			return err
		}
		m = chimeraProblem(vt, rows, cols, shore, rng)
	} else {
		if opts.size <= 0 {
			return fmt.Errorf("--size must be positive")
		}
		if opts.density < 0 || opts.density > 1 {
			return fmt.Errorf("--density must be within [0, 1]")
		}
		m = randomProblem(vt, opts.size, opts.density, rng)
	}

	if !opts.withSample {
		return writeJSON(cmd.OutOrStdout(), m)
	}
	start, err := sample.RandomSeq(m.Len(), vt, rng)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), request{Problem: m, Sample: start})
}

func bias(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}

func randomProblem(vt bqm.Vartype, size int, density float64, rng *rand.Rand) *bqm.Model {
	m := bqm.New(vt)
	for v := range size {
		m.AddVariable(v, bias(rng))
	}
	for u := range size {
		for v := u + 1; v < size; v++ {
			if rng.Float64() < density {
				m.AddInteraction(u, v, bias(rng))
			}
		}
	}
	return m
}

// chimeraProblem couples every qubit of an rows×cols×shore lattice to its
// Chimera neighbours. Qubit (i, j, u, k) is labelled ((cols*i+j)*2+u)*shore+k.
func chimeraProblem(vt bqm.Vartype, rows, cols, shore int, rng *rand.Rand) *bqm.Model {
	label := func(i, j, u, k int) int { return ((cols*i+j)*2+u)*shore + k }
	m := bqm.New(vt)
	for i := range rows {
		for j := range cols {
			for u := range 2 {
				for k := range shore {
					m.AddVariable(label(i, j, u, k), bias(rng))
				}
			}
			// Complete bipartite coupling inside the cell.
			for k := range shore {
				for kk := range shore {
					m.AddInteraction(label(i, j, 0, k), label(i, j, 1, kk), bias(rng))
				}
			}
			for k := range shore {
				if i+1 < rows {
					m.AddInteraction(label(i, j, 0, k), label(i+1, j, 0, k), bias(rng))
				}
				if j+1 < cols {
					m.AddInteraction(label(i, j, 1, k), label(i, j+1, 1, k), bias(rng))
				}
			}
		}
	}
	return m
}
