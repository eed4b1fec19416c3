// Package httpapi exposes a Document over HTTP: node create/get/delete,
// single-property sets, snapshot get/load, and annotation queries, the
// way the teacher's internal/server/api package puts its repository
// behind chi handlers.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/systemshift/substance/internal/substance/annotation"
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/substanceerr"
	"github.com/systemshift/substance/internal/substance/wire"
)

// Server holds the HTTP handlers' dependencies.
type Server struct {
	doc substanceDocument
}

// substanceDocument is the subset of *substance.Document the handlers
// need; declared as an interface here so this package does not import
// the root package. The root package does not import httpapi, so this is
// not about avoiding a cycle: it keeps the boundary explicit and the
// dependency pointing from cmd/ and httpapi down to the document core.
type substanceDocument interface {
	Create(n ops.Node) error
	Set(target ops.Path, value any) error
	Delete(id string) error
	Get(id string) (ops.Node, bool)
	Snapshot() wire.Snapshot
	LoadSnapshot(snap wire.Snapshot) error
	QueryAnnotations(path ops.Path, start, end int64, typeFilter string) []annotation.Entry
}

// AnnotationView is the HTTP-facing shape of an annotation query result.
type AnnotationView struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// New creates a Server over doc.
func New(doc substanceDocument) *Server {
	return &Server{doc: doc}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateNodeRequest is the request body for POST /api/nodes. ID is
// optional; when omitted the server generates one.
type CreateNodeRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// CreateNode handles POST /api/nodes.
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	err := s.doc.Create(ops.Node{ID: req.ID, Type: req.Type, Properties: req.Properties})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "created": time.Now()})
}

// GetNode handles GET /api/nodes/{id}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := s.doc.Get(id)
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromOpsNode(n))
}

// DeleteNode handles DELETE /api/nodes/{id}.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.doc.Delete(id); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPropertyRequest is the request body for PUT /api/nodes/{id}/{property}.
type SetPropertyRequest struct {
	Value any `json:"value"`
}

// SetProperty handles PUT /api/nodes/{id}/{property}.
func (s *Server) SetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	property := chi.URLParam(r, "property")
	var req SetPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.doc.Set(ops.NewPath(id, property), req.Value); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnnotationQueryRequest is the request body for POST /api/annotations/query.
type AnnotationQueryRequest struct {
	NodeID   string `json:"nodeId"`
	Property string `json:"property"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Type     string `json:"type,omitempty"`
}

// QueryAnnotations handles POST /api/annotations/query.
func (s *Server) QueryAnnotations(w http.ResponseWriter, r *http.Request) {
	var req AnnotationQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path := ops.NewPath(req.NodeID, req.Property)
	entries := s.doc.QueryAnnotations(path, req.Start, req.End, req.Type)
	views := make([]AnnotationView, len(entries))
	for i, e := range entries {
		views[i] = AnnotationView{ID: e.ID, Type: e.Type, Start: e.Start, End: e.End}
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotations": views, "count": len(views)})
}

// GetSnapshot handles GET /api/snapshot.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.doc.Snapshot())
}

// LoadSnapshot handles POST /api/snapshot.
func (s *Server) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap wire.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.doc.LoadSnapshot(snap); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if substanceerr.IsInvalidOperation(err) || substanceerr.IsUnknownNodeType(err) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
