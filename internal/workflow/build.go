package workflow

import (
	"fmt"
	"time"

	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/solver"
)

// Build turns a validated spec into a runnable. Every call builds fresh
// strategy instances, so the result is never shared between runs.
func Build(s *Spec, reg *solver.Registry) (flow.Runnable, error) {
	return buildNode(s.Workflow, reg, "workflow")
}

func buildNode(n Node, reg *solver.Registry, path string) (flow.Runnable, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s (%s): %s", ErrInvalidSpec, path, n.Type, fmt.Sprintf(format, args...))
	}
	children := func() ([]flow.Runnable, error) {
		out := make([]flow.Runnable, 0, len(n.Children))
		for i, c := range n.Children {
			r, err := buildNode(c, reg, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}

	switch n.Type {
	case TypeIdentity:
		return flow.Identity(), nil

	case TypeSequence:
		cs, err := children()
		if err != nil {
			return nil, err
		}
		return flow.Sequence(cs...), nil

	case TypeRace, TypeBest:
		if len(n.Children) == 0 {
			return nil, fail("needs at least one child")
		}
		cs, err := children()
		if err != nil {
			return nil, err
		}
		if n.Type == TypeBest {
			return flow.Best(cs...), nil
		}
		policy := flow.StopOnFirst
		if n.Policy == flow.WaitAll.String() {
			policy = flow.WaitAll
		}
		return flow.NewRacing(policy, cs...), nil

	case TypeFold:
		return flow.ArgMinFold(), nil

	case TypeLoop:
		if len(n.Children) != 1 {
			return nil, fail("needs exactly one child, got %d", len(n.Children))
		}
		cs, err := children()
		if err != nil {
			return nil, err
		}
		opts := []flow.LoopOption{flow.WithMaxIter(n.MaxIter), flow.WithConvergence(n.Convergence)}
		if n.Timeout != "" {
			d, err := time.ParseDuration(n.Timeout)
			if err != nil {
				return nil, fail("timeout: %v", err)
			}
			opts = append(opts, flow.WithTimeout(d))
		}
		return flow.NewLoop(cs[0], opts...), nil

	case TypeDecomposer, TypeSampler, TypeComposer:
		if len(n.Children) > 0 {
			return nil, fail("strategy nodes take no children")
		}
		if n.Name == "" {
			return nil, fail("missing strategy name")
		}
		return buildStrategy(n, reg, path)
	}
	return nil, fail("unknown node type")
}

func buildStrategy(n Node, reg *solver.Registry, path string) (flow.Runnable, error) {
	fail := func(err error) error {
		return fmt.Errorf("%w: %s (%s): %w", ErrInvalidSpec, path, n.Type, err)
	}
	p := solver.Params(n.Params)
	switch n.Type {
	case TypeDecomposer:
		d, err := reg.Decomposer(n.Name, p)
		if err != nil {
			return nil, fail(err)
		}
		return flow.Decompose(n.Name, d), nil
	case TypeSampler:
		s, err := reg.Sampler(n.Name, p)
		if err != nil {
			return nil, fail(err)
		}
		return flow.Sample(n.Name, s), nil
	default:
		c, err := reg.Composer(n.Name, p)
		if err != nil {
			return nil, fail(err)
		}
		return flow.Compose(n.Name, c), nil
	}
}
