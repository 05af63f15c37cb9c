package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seantiz/hades/internal/model"
)

// readSSE collects the event names and data lines of an SSE stream.
func readSSE(t *testing.T, resp *http.Response) (events, data []string) {
	t.Helper()
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	return events, data
}

func TestStreamProgressFinishedRun(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs", solveBody(chainProblem, exactFlow, ""))
	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	resp.Body.Close()

	stream, err := http.Get(ts.URL + "/v1/runs/" + r.ID + "/progress")
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	defer stream.Body.Close()

	if ct := stream.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	events, data := readSSE(t, stream)
	if len(events) != 1 || events[0] != "done" {
		t.Fatalf("events = %v, want [done]", events)
	}
	if data[0] != model.StatusCompleted {
		t.Errorf("done data = %q, want %q", data[0], model.StatusCompleted)
	}
}

func TestStreamProgressUntilCancelled(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/runs/async", solveBody(chainProblem, holdFlow, ""))
	var r model.Run
	json.NewDecoder(resp.Body).Decode(&r)
	resp.Body.Close()
	waitForRun(t, ts.URL, r.ID, model.StatusRunning)

	stream, err := http.Get(ts.URL + "/v1/runs/" + r.ID + "/progress")
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	defer stream.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/runs/"+r.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()

	events, data := readSSE(t, stream)
	if len(events) == 0 || events[len(events)-1] != "done" {
		t.Fatalf("events = %v, want a final done event", events)
	}
	if data[len(data)-1] != model.StatusCancelled {
		t.Errorf("done data = %q, want %q", data[len(data)-1], model.StatusCancelled)
	}
}
