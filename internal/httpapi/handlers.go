package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hte-labs/hte-planner/internal/model"
)

const welcomeMessage = "Welcome to the HTE planner API"

type generateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	GoalID  string `json:"goal_id,omitempty"`
}

type statusPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleGenerate handles POST /plans/generate, it starts the plan generation in
// background, progress is streamed on /plans/stream/{goal_id}.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePlan(w, r)
	if !ok {
		return
	}

	id, err := s.registry.Submit(r.Context(), p)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, generateResponse{
		Success: true,
		Message: fmt.Sprintf("Plan generation started. Connect to /plans/stream/%s for updates.", id),
		GoalID:  id,
	})
}

// handleGenerateSync handles POST /plans/generate/sync, it returns the generated
// plan once the generation ends.
func (s *Server) handleGenerateSync(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePlan(w, r)
	if !ok {
		return
	}

	e, err := s.registry.SubmitAndWait(r.Context(), p)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Debugf("Client left before goal %s plan was generated", p.GoalID)
			return
		}
		s.writeSubmitError(w, err)
		return
	}

	if e.Type != model.EventTypeCompleted || e.Plan == nil {
		s.writeJSON(w, http.StatusBadGateway, generateResponse{Success: false, Message: e.Message})
		return
	}

	s.writeJSON(w, http.StatusOK, e.Plan)
}

// handleStream handles GET /plans/stream/{goal_id} streaming the job progress
// as server sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()
	id := r.PathValue("goal_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, generateResponse{Message: "streaming not supported"})
		return
	}

	sub, err := s.registry.Attach(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, generateResponse{Message: fmt.Sprintf("Plan generation task for goal %s not found", id)})
			return
		}
		s.logger.Errorf("Could not attach to job %s: %s", id, err)
		s.writeJSON(w, http.StatusInternalServerError, generateResponse{Message: "could not attach to plan generation"})
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sse := newSSEWriter(w, flusher)
	for {
		item, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debugf("Stream of job %s ended: %s", id, err)
			}
			return
		}

		if item.Keepalive {
			err = sse.comment("keepalive")
		} else {
			err = sse.event(string(item.Event.Type), item.Event.ID, eventPayload(item.Event))
		}
		if err != nil {
			s.logger.Debugf("Client disconnected from job %s stream: %s", id, err)
			return
		}
	}
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("goal_id")

	p, err := s.repo.GetPlan(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, generateResponse{Message: fmt.Sprintf("goal %s not found", id)})
			return
		}
		s.logger.Errorf("Could not get goal %s: %s", id, err)
		s.writeJSON(w, http.StatusInternalServerError, generateResponse{Message: "could not get goal"})
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) decodePlan(w http.ResponseWriter, r *http.Request) (model.Plan, bool) {
	var p model.Plan
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, generateResponse{Message: fmt.Sprintf("invalid plan body: %s", err)})
		return model.Plan{}, false
	}
	if p.Tasks == nil {
		p.Tasks = []model.Task{}
	}
	if err := p.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, generateResponse{Message: err.Error()})
		return model.Plan{}, false
	}

	return p, true
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		s.writeJSON(w, http.StatusConflict, generateResponse{Message: err.Error()})
	case errors.Is(err, model.ErrNotValid):
		s.writeJSON(w, http.StatusBadRequest, generateResponse{Message: err.Error()})
	default:
		s.logger.Errorf("Could not start plan generation: %s", err)
		s.writeJSON(w, http.StatusInternalServerError, generateResponse{Message: fmt.Sprintf("Failed to start plan generation: %s", err)})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warningf("Could not write response: %s", err)
	}
}

func eventPayload(e model.Event) any {
	switch e.Type {
	case model.EventTypeCompleted:
		return e.Plan
	case model.EventTypeError:
		return errorPayload{Error: e.Message}
	default:
		return statusPayload{Message: e.Message, Timestamp: e.Time.Format(time.RFC3339Nano)}
	}
}
