package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const exactWorkflow = `
name: exact
workflow:
  type: loop
  max_iter: 2
  children:
    - type: sequence
      children:
        - {type: decomposer, name: identity}
        - {type: sampler, name: exact}
        - {type: composer, name: splat}
`

func TestGenerateAndSolve(t *testing.T) {
	problem, err := run(t, "generate", "--size", "10", "--seed", "3")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	problemPath := writeFile(t, "problem.json", problem)
	workflowPath := writeFile(t, "workflow.yaml", exactWorkflow)

	out, err := run(t, "solve", "--problem", problemPath, "--workflow", workflowPath, "--seed", "1")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	var res solveResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.Workflow != "exact" {
		t.Errorf("workflow = %q, want exact", res.Workflow)
	}
	if res.NumVariables != 10 || len(res.Sample) != 10 {
		t.Errorf("got %d variables and %d sample values, want 10", res.NumVariables, len(res.Sample))
	}
	if res.Energy > res.InitialEnergy {
		t.Errorf("energy %v exceeds initial energy %v", res.Energy, res.InitialEnergy)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
}

func TestSolveDeterministicWithSeed(t *testing.T) {
	problem, err := run(t, "generate", "--size", "24", "--seed", "5")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	problemPath := writeFile(t, "problem.json", problem)

	var energies []float64
	for range 2 {
		out, err := run(t, "solve", "--problem", problemPath, "--seed", "9")
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		var res solveResult
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		energies = append(energies, res.InitialEnergy)
	}
	if energies[0] != energies[1] {
		t.Errorf("starting energies differ across runs with the same seed: %v", energies)
	}
}

func TestSolveStartAndSample(t *testing.T) {
	problemPath := writeFile(t, "problem.json",
		`{"vartype":"BINARY","linear":{"0":1,"1":1,"2":1},"quadratic":[],"offset":0}`)
	samplePath := writeFile(t, "sample.json", `{"1":0}`)
	identity := writeFile(t, "identity.yaml", "name: noop\nworkflow: {type: identity}\n")

	out, err := run(t, "solve", "-p", problemPath, "-w", identity, "--start", "max", "--sample", samplePath)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	var res solveResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.InitialEnergy != 2 {
		t.Errorf("initial energy = %v, want 2", res.InitialEnergy)
	}

	if _, err := run(t, "solve", "-p", problemPath, "--start", "middle"); err == nil {
		t.Error("expected an error for an unknown --start")
	}
}

func TestSolveRequiresProblem(t *testing.T) {
	if _, err := run(t, "solve"); err == nil {
		t.Fatal("expected an error without --problem")
	}
	empty := writeFile(t, "empty.json", `{"vartype":"SPIN"}`)
	if _, err := run(t, "solve", "-p", empty); err == nil {
		t.Fatal("expected an error for a problem without variables")
	}
}

func TestGenerateWithSample(t *testing.T) {
	out, err := run(t, "generate", "--size", "5", "--vartype", "binary", "--with-sample", "--seed", "2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var req struct {
		Problem map[string]any `json:"problem"`
		Sample  map[int]int    `json:"sample"`
	}
	if err := json.Unmarshal([]byte(out), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Problem["vartype"] != "BINARY" {
		t.Errorf("vartype = %v, want BINARY", req.Problem["vartype"])
	}
	if len(req.Sample) != 5 {
		t.Errorf("sample has %d values, want 5", len(req.Sample))
	}
	for v, x := range req.Sample {
		if x != 0 && x != 1 {
			t.Errorf("sample[%d] = %d, not binary", v, x)
		}
	}
}

func TestGenerateChimeraTiles(t *testing.T) {
	problem, err := run(t, "generate", "--chimera", "2,2,4", "--seed", "4")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	problemPath := writeFile(t, "chimera.json", problem)

	out, err := run(t, "tiles", "-p", problemPath, "--lattice", "2,2,4", "--tile", "1,1,4")
	if err != nil {
		t.Fatalf("tiles: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header and 4 tiles:\n%s", len(lines), out)
	}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if fields[len(fields)-1] != "8" {
			t.Errorf("tile line %q: want 8 variables", line)
		}
	}

	if _, err := run(t, "tiles", "-p", problemPath, "--lattice", "1,1,4"); err == nil {
		t.Error("expected an error for a problem outside the lattice")
	}
}

func TestSolversLists(t *testing.T) {
	out, err := run(t, "solvers")
	if err != nil {
		t.Fatalf("solvers: %v", err)
	}
	for _, name := range []string{"energy-impact", "simulated-annealing", "exact", "greedy"} {
		if !strings.Contains(out, name) {
			t.Errorf("solvers output missing %q", name)
		}
	}
}

func TestValidate(t *testing.T) {
	good := writeFile(t, "good.yaml", exactWorkflow)
	out, err := run(t, "validate", good)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, `"exact" is valid`) {
		t.Errorf("output = %q", out)
	}

	bad := writeFile(t, "bad.yaml", "name: bad\nworkflow: {type: sampler, name: oracle}\n")
	if _, err := run(t, "validate", bad); err == nil {
		t.Error("expected an error for an unknown sampler")
	}
}

func TestParseTriple(t *testing.T) {
	a, b, c, err := parseTriple("2,3,4")
	if err != nil || a != 2 || b != 3 || c != 4 {
		t.Errorf("parseTriple = %d,%d,%d,%v", a, b, c, err)
	}
	for _, s := range []string{"", "1,2", "0,1,1", "a,b,c"} {
		if _, _, _, err := parseTriple(s); err == nil {
			t.Errorf("parseTriple(%q) should fail", s)
		}
	}
}
