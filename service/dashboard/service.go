// Package dashboard exposes a small HTTP surface for operators: stage
// contents, document detail, audit history and the approve/reject
// decisions.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/viant/conveyor/model/document"
	"github.com/viant/conveyor/service/audit"
	"github.com/viant/conveyor/service/store"
)

// Orchestrator is the slice of the orchestrator façade the dashboard
// needs.
type Orchestrator interface {
	Deposit(ctx context.Context, doc *document.Document) error
	Stage(ctx context.Context, stage document.Stage) ([]string, error)
	Document(ctx context.Context, id string) (*document.Document, error)
	AuditTail(ctx context.Context, n int) ([]*audit.Event, error)
	Approve(ctx context.Context, id, approver, note string) error
	Reject(ctx context.Context, id, approver, reason string) error
	Scan(ctx context.Context) error
}

// Service serves the operator dashboard API.
type Service struct {
	orchestrator Orchestrator
	router       chi.Router
}

type decisionRequest struct {
	Approver string `json:"approver"`
	Note     string `json:"note,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// New creates a dashboard service.
func New(orchestrator Orchestrator) *Service {
	s := &Service{orchestrator: orchestrator}
	r := chi.NewRouter()
	r.Post("/documents", s.deposit)
	r.Get("/stages/{stage}", s.stage)
	r.Get("/documents/{id}", s.document)
	r.Get("/audit", s.auditTail)
	r.Post("/documents/{id}/approve", s.approve)
	r.Post("/documents/{id}/reject", s.reject)
	r.Post("/scan", s.scan)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

type depositRequest struct {
	ID      string                 `json:"id,omitempty"`
	Origin  string                 `json:"origin"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func (s *Service) deposit(w http.ResponseWriter, r *http.Request) {
	var request depositRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Origin == "" {
		http.Error(w, `invalid body: {"origin":"...", "payload":{...}}`, http.StatusBadRequest)
		return
	}
	doc := document.New(request.ID, document.Origin(request.Origin), request.Payload)
	if err := s.orchestrator.Deposit(r.Context(), doc); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrDuplicateDocument) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"id": doc.ID, "stage": doc.Stage})
}

func (s *Service) stage(w http.ResponseWriter, r *http.Request) {
	stage := document.Stage(chi.URLParam(r, "stage"))
	ids, err := s.orchestrator.Stage(r.Context(), stage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"stage": stage, "ids": ids})
}

func (s *Service) document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.orchestrator.Document(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, doc)
}

func (s *Service) auditTail(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	events, err := s.orchestrator.AuditTail(r.Context(), n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Service) approve(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, true)
}

func (s *Service) reject(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, false)
}

func (s *Service) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	id := chi.URLParam(r, "id")
	var request decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Approver == "" {
		http.Error(w, `invalid body: {"approver":"..."}`, http.StatusBadRequest)
		return
	}
	var err error
	if approve {
		err = s.orchestrator.Approve(r.Context(), id, request.Approver, request.Note)
	} else {
		err = s.orchestrator.Reject(r.Context(), id, request.Approver, request.Reason)
	}
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Service) scan(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Scan(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
