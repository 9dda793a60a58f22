package server

// handlers.go - JSON API handlers for the canvas client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumagraph-labs/lumagraph/internal/batch"
	"github.com/lumagraph-labs/lumagraph/internal/engine"
	"github.com/lumagraph-labs/lumagraph/internal/graph"
)

const (
	sessionName        = "lumagraph_session"
	sessionWorkflowKey = "workflow"
)

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes an error in the backend's {"detail": ...} shape so
// the client handles local and remote failures uniformly.
func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"detail": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backendStatus := "ok"
	if s.backend != nil {
		if err := s.backend.Health(r.Context()); err != nil {
			backendStatus = "unreachable"
		}
	} else {
		backendStatus = "not configured"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": backendStatus,
	})
}

// --- Workflows ---

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	infos, err := s.workspace.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"workflows": infos})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	g, err := s.workspace.Load(name)
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, g.Export())
}

func (s *Server) handleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var doc graph.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	doc.Name = name
	g, err := graph.Import(&doc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.workspace.Save(g); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.notifier.Broadcast()
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved", "name": name})
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.workspace.Delete(name); err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	s.notifier.Broadcast()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
}

// handleRunWorkflow is the single run/stop control: it starts the named
// workflow, or cancels the run already in flight.
func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if s.engine.Running() {
		s.engine.Cancel()
		respondJSON(w, http.StatusOK, map[string]any{"status": "cancelling"})
		return
	}

	g, err := s.workspace.Load(name)
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	if err := s.engine.Start(g); err != nil {
		if errors.Is(err, engine.ErrRunInFlight) {
			s.engine.Cancel()
			respondJSON(w, http.StatusOK, map[string]any{"status": "cancelling"})
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"status": "started", "state": s.engine.State()})
}

// --- Runs ---

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.State())
}

func (s *Server) handleRunCancel(w http.ResponseWriter, r *http.Request) {
	s.engine.Cancel()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation_requested"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, errors.New("run not found"))
		return
	}
	nodeRuns, err := s.store.GetNodeRunsForRun(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"run": run, "node_runs": nodeRuns})
}

// --- Catalog and session images ---

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if s.catalog.Len() == 0 && s.backend != nil {
		// Lazy first fill; an unreachable backend just yields an empty
		// catalog rather than an error page.
		if err := s.catalog.Refresh(r.Context(), s.backend); err != nil {
			s.logger.Debug("catalog refresh failed", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"operations": s.catalog.List(),
		"categories": s.catalog.Categories(),
	})
}

func (s *Server) handleRefreshOperations(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context(), s.backend); err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "count": s.catalog.Len()})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.backend.ListImages(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"images": images})
}

// --- Batch ---

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req batch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	jobID, err := s.batch.Start(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "started"})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	progress, ok := s.batch.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.batch.Cancel(id) {
		respondError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation_requested"})
}

// --- Session ---

// handleGetSession returns the workflow the browser last had open.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)
	workflow, _ := session.Values[sessionWorkflowKey].(string)
	respondJSON(w, http.StatusOK, map[string]string{"workflow": workflow})
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Workflow string `json:"workflow"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values[sessionWorkflowKey] = body.Workflow
	if err := session.Save(r, w); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
