package workflow

// DefaultName names the built-in workflow.
const DefaultName = "default"

// Default returns the built-in workflow: a loop over two competing
// strategies, one refining the highest-impact variables by steepest descent
// and one annealing the whole problem, keeping the better result each round.
func Default() *Spec {
	return &Spec{
		Name: DefaultName,
		Workflow: Node{
			Type:        TypeLoop,
			MaxIter:     100,
			Convergence: 5,
			Children: []Node{{
				Type: TypeBest,
				Children: []Node{
					{Type: TypeSequence, Children: []Node{
						{Type: TypeDecomposer, Name: "energy-impact", Params: map[string]any{"size": 50}},
						{Type: TypeSampler, Name: "steepest-descent"},
						{Type: TypeComposer, Name: "splat"},
					}},
					{Type: TypeSequence, Children: []Node{
						{Type: TypeDecomposer, Name: "identity"},
						{Type: TypeSampler, Name: "simulated-annealing", Params: map[string]any{"sweeps": 200}},
						{Type: TypeComposer, Name: "greedy"},
					}},
				},
			}},
		},
	}
}
