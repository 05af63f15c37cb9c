package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/engine"
	"github.com/seantiz/hades/internal/model"
	"github.com/seantiz/hades/internal/store"
	"github.com/seantiz/hades/internal/workflow"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 8 << 20 // 8 MB
)

var validate = validator.New()

// solveRequest is the JSON body for POST /v1/runs and POST /v1/runs/async.
type solveRequest struct {
	Problem *bqm.Model `json:"problem" validate:"required"`
	// Workflow is a workflow document; omitted means the server default.
	Workflow json.RawMessage `json:"workflow,omitempty"`
	// Sample optionally seeds the starting assignment.
	Sample   map[int]int `json:"sample,omitempty"`
	TimeoutS *int        `json:"timeout_s,omitempty" validate:"omitempty,gte=1,lte=86400"`
}

// listRunsResponse wraps the paginated list response.
type listRunsResponse struct {
	Runs   []*model.Run `json:"runs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// iterationsResponse is the JSON response for GET /v1/runs/{id}/iterations.
type iterationsResponse struct {
	RunID      string            `json:"run_id"`
	Iterations []model.Iteration `json:"iterations"`
}

// decodeSolveRequest reads and validates a solve request body. On failure it
// writes the error response and returns false.
func (s *Server) decodeSolveRequest(w http.ResponseWriter, r *http.Request) (engine.Request, bool) {
	var req solveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return engine.Request{}, false
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return engine.Request{}, false
	}

	out := engine.Request{
		Problem:  req.Problem,
		Initial:  req.Sample,
		TimeoutS: req.TimeoutS,
	}
	if len(req.Workflow) > 0 && string(req.Workflow) != "null" {
		spec, err := workflow.ParseJSON(req.Workflow)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return engine.Request{}, false
		}
		out.Workflow = spec
	}
	return out, true
}

// validationMessage turns validator errors into a short client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", jsonName(fe.Field()))
	default:
		return fmt.Sprintf("%s is invalid (%s=%s)", jsonName(fe.Field()), fe.Tag(), fe.Param())
	}
}

func jsonName(field string) string {
	switch field {
	case "Problem":
		return "problem"
	case "TimeoutS":
		return "timeout_s"
	default:
		return field
	}
}

// writeSubmitError maps engine submission errors to responses.
func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest), errors.Is(err, workflow.ErrInvalidSpec):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("submit run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit run")
	}
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSolveRequest(w, r)
	if !ok {
		countSubmission(modeSync, nil, nil)
		return
	}

	// A synchronous solve may outlive the server write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for solve", "error", err)
	}

	run, err := s.engine.Solve(r.Context(), req)
	countSubmission(modeSync, &req, err)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSolveRequest(w, r)
	if !ok {
		countSubmission(modeAsync, nil, nil)
		return
	}

	run, err := s.engine.Submit(r.Context(), req)
	countSubmission(modeAsync, &req, err)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, run)
}

// lookupRun loads the run named by the {id} path parameter. On failure it
// writes the error response and returns false.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")
	if !model.ValidID(id) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get run", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*model.Run{}
	}

	s.writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleCancelRun sends the stop signal to a queued or running run. The run
// finishes asynchronously; the response carries its record at the time of
// the request.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	if model.Terminal(run.Status) {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
		return
	}
	if err := s.engine.Cancel(run.ID); err != nil {
		if errors.Is(err, engine.ErrNotActive) {
			s.writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
			return
		}
		s.logger.Error("cancel run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to cancel run")
		return
	}

	s.writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleGetIterations(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	its, err := s.store.GetIterations(r.Context(), run.ID)
	if err != nil {
		s.logger.Error("get iterations", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get iterations")
		return
	}
	if its == nil {
		its = []model.Iteration{}
	}

	s.writeJSON(w, http.StatusOK, iterationsResponse{RunID: run.ID, Iterations: its})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
