package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/hades/internal/model"
	"github.com/seantiz/hades/internal/solver"
)

func solveBody(problem, workflow string, extra string) string {
	body := `{"problem":` + problem
	if workflow != "" {
		body += `,"workflow":` + workflow
	}
	return body + extra + `}`
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// waitForRun polls GET /v1/runs/{id} until the run reaches status.
func waitForRun(t *testing.T, baseURL, id, status string) model.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/runs/" + id)
		if err != nil {
			t.Fatalf("GET run: %v", err)
		}
		var r model.Run
		json.NewDecoder(resp.Body).Decode(&r)
		resp.Body.Close()
		if r.Status == status {
			return r
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach status %q", id, status)
	return model.Run{}
}

func TestSolveSync(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs", solveBody(chainProblem, exactFlow, ""))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var r model.Run
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(r.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(r.ID))
	}
	if r.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", r.Status, model.StatusCompleted)
	}
	if r.Workflow != "exact" {
		t.Errorf("Workflow = %q, want %q", r.Workflow, "exact")
	}
	if r.NumVariables != 4 || r.NumInteractions != 3 {
		t.Errorf("size = %d/%d, want 4/3", r.NumVariables, r.NumInteractions)
	}
	if r.Energy == nil || *r.Energy != -3 {
		t.Errorf("Energy = %v, want -3", r.Energy)
	}
	if r.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", r.Iterations)
	}
	for v := range 4 {
		if r.Sample[v] != r.Sample[0] {
			t.Errorf("sample %v is not a ground state", r.Sample)
			break
		}
	}
}

func TestSolveWithInitialSample(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs", solveBody(chainProblem, exactFlow, `,"sample":{"0":1,"1":-1,"2":1,"3":-1},"timeout_s":10`))
	defer resp.Body.Close()

	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	if r.InitialEnergy == nil || *r.InitialEnergy != 3 {
		t.Errorf("InitialEnergy = %v, want 3", r.InitialEnergy)
	}
	if r.TimeoutS == nil || *r.TimeoutS != 10 {
		t.Errorf("TimeoutS = %v, want 10", r.TimeoutS)
	}
}

func TestSolveRejects(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"missing problem", `{"workflow":` + exactFlow + `}`},
		{"unknown vartype", `{"problem":{"vartype":"INTEGER","linear":{"0":1}}}`},
		{"empty problem", `{"problem":{"vartype":"SPIN"}}`},
		{"bad timeout", solveBody(chainProblem, "", `,"timeout_s":0`)},
		{"sample outside domain", solveBody(chainProblem, "", `,"sample":{"0":0}`)},
		{"sample unknown variable", solveBody(chainProblem, "", `,"sample":{"9":1}`)},
		{"unknown node type", solveBody(chainProblem, `{"name":"x","workflow":{"type":"teleport"}}`, "")},
		{"unknown sampler", solveBody(chainProblem, `{"name":"x","workflow":{"type":"sampler","name":"oracle"}}`, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/v1/runs", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var errResp map[string]string
			json.NewDecoder(resp.Body).Decode(&errResp)
			if errResp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestSubmitAsync(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs/async", solveBody(chainProblem, exactFlow, ""))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	if r.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", r.Status)
	}

	done := waitForRun(t, ts.URL, r.ID, model.StatusCompleted)
	if done.Energy == nil || *done.Energy != -3 {
		t.Errorf("Energy = %v, want -3", done.Energy)
	}

	itResp, err := http.Get(ts.URL + "/v1/runs/" + r.ID + "/iterations")
	if err != nil {
		t.Fatalf("GET iterations: %v", err)
	}
	defer itResp.Body.Close()
	var its iterationsResponse
	if err := json.NewDecoder(itResp.Body).Decode(&its); err != nil {
		t.Fatalf("decode iterations: %v", err)
	}
	if its.RunID != r.ID || len(its.Iterations) != 2 {
		t.Errorf("iterations = %+v, want 2 for run %s", its, r.ID)
	}
}

func TestSubmitAsyncDefaultWorkflow(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs/async", solveBody(chainProblem, "", ""))
	defer resp.Body.Close()

	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	if r.Workflow != "default" {
		t.Errorf("Workflow = %q, want default", r.Workflow)
	}
	waitForRun(t, ts.URL, r.ID, model.StatusCompleted)
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	unknown := model.NewID()
	paths := []string{
		"/v1/runs/nonexistent",
		"/v1/runs/nonexistent/iterations",
		"/v1/runs/nonexistent/progress",
		"/v1/runs/" + unknown,
		"/v1/runs/" + unknown + "/iterations",
		"/v1/runs/" + unknown + "/progress",
	}
	for _, path := range paths {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestListRuns(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for range 3 {
		resp := postJSON(t, ts.URL+"/v1/runs", solveBody(chainProblem, exactFlow, ""))
		resp.Body.Close()
	}

	tests := []struct {
		query     string
		wantCount int
		wantLimit int
	}{
		{"", 3, defaultListLimit},
		{"?limit=2", 2, 2},
		{"?limit=2&offset=2", 1, 2},
		{"?limit=1000", 3, defaultListLimit},
		{"?offset=-5", 3, defaultListLimit},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + "/v1/runs" + tt.query)
		if err != nil {
			t.Fatalf("GET /v1/runs%s: %v", tt.query, err)
		}
		var list listRunsResponse
		json.NewDecoder(resp.Body).Decode(&list)
		resp.Body.Close()

		if len(list.Runs) != tt.wantCount {
			t.Errorf("%q: got %d runs, want %d", tt.query, len(list.Runs), tt.wantCount)
		}
		if list.Total != 3 {
			t.Errorf("%q: total = %d, want 3", tt.query, list.Total)
		}
		if list.Limit != tt.wantLimit {
			t.Errorf("%q: limit = %d, want %d", tt.query, list.Limit, tt.wantLimit)
		}
	}
}

func TestListRunsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("GET /v1/runs: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&raw)
	if string(raw["runs"]) != "[]" {
		t.Errorf("runs = %s, want []", raw["runs"])
	}
}

func TestCancelRun(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs/async", solveBody(chainProblem, holdFlow, ""))
	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	resp.Body.Close()
	waitForRun(t, ts.URL, r.ID, model.StatusRunning)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/runs/"+r.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", delResp.StatusCode)
	}

	cancelled := waitForRun(t, ts.URL, r.ID, model.StatusCancelled)
	if cancelled.Energy == nil || len(cancelled.Sample) != 4 {
		t.Errorf("cancelled run should keep its incumbent, got energy %v sample %v", cancelled.Energy, cancelled.Sample)
	}

	// A finished run cannot be cancelled again.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/v1/runs/"+r.ID, nil)
	againResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	againResp.Body.Close()
	if againResp.StatusCode != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", againResp.StatusCode)
	}
}

func TestCancelRunNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/runs/nonexistent", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListSolvers(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/solvers")
	if err != nil {
		t.Fatalf("GET /v1/solvers: %v", err)
	}
	defer resp.Body.Close()

	var infos []solver.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}

	found := map[string]bool{}
	for _, info := range infos {
		found[fmt.Sprintf("%s/%s", info.Kind, info.Name)] = true
	}
	for _, want := range []string{"decomposer/energy-impact", "sampler/simulated-annealing", "sampler/hold", "composer/splat"} {
		if !found[want] {
			t.Errorf("solver %s not listed", want)
		}
	}
}
