package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seantiz/hades/internal/model"
)

// handleStreamProgress streams one "iteration" SSE event per loop iteration
// of a run, followed by a "done" event carrying the final status.
func (s *Server) handleStreamProgress(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	id := run.ID

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Finished runs have nothing left to stream.
	if model.Terminal(run.Status) {
		w.WriteHeader(http.StatusOK)
		_ = writeSSEEvent(w, "done", run.Status)
		return
	}

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribe on a closed topic returns a closed channel, so a run that
	// finished since the status check ends the loop below immediately.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()
	progressStreams.Inc()
	defer progressStreams.Dec()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				status := "finished"
				if final, err := s.store.GetRun(r.Context(), id); err == nil {
					status = final.Status
				}
				_ = writeSSEEvent(w, "done", status)
				if canFlush {
					flusher.Flush()
				}
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode progress event", "error", err)
				continue
			}
			if err := writeSSEEvent(w, "iteration", string(data)); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
