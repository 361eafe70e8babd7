// Package api implements the scheduler's REST/JSON surface: node and
// service CRUD, event ingestion, and monitoring endpoints, mounted on a
// gorilla/mux router alongside the ambient health and metrics endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/events"
	"github.com/cuemby/warren-scheduler/pkg/log"
	"github.com/cuemby/warren-scheduler/pkg/metrics"
	"github.com/cuemby/warren-scheduler/pkg/resource"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/schedulerlog"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server is the REST API, bound directly to a Repository. It never holds
// the scheduler's pass lock: writes here simply mark entities dirty for
// the next pass to pick up.
type Server struct {
	repo    storage.Repository
	ingress *events.Ingress
	logger  zerolog.Logger
	router  *mux.Router
}

// NewServer builds a Server and its route table.
func NewServer(repo storage.Repository) *Server {
	s := &Server{
		repo:    repo,
		ingress: events.NewIngress(repo),
		logger:  log.WithComponent("api"),
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the HTTP handler to mount.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/nodes", s.createNode).Methods(http.MethodPost)
	r.HandleFunc("/nodes", s.listNodes).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}", s.getNode).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}", s.patchNode).Methods(http.MethodPatch)
	r.HandleFunc("/nodes/{id}", s.deleteNode).Methods(http.MethodDelete)

	r.HandleFunc("/services", s.createService).Methods(http.MethodPost)
	r.HandleFunc("/services", s.listServices).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", s.getService).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", s.patchService).Methods(http.MethodPatch)
	r.HandleFunc("/services/{id}", s.deleteService).Methods(http.MethodDelete)

	r.HandleFunc("/events/nodes", s.postNodeEvent).Methods(http.MethodPost)
	r.HandleFunc("/events/service-instances", s.postInstanceEvent).Methods(http.MethodPost)

	r.HandleFunc("/monitoring/state", s.monitoringState).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/metrics", s.monitoringMetrics).Methods(http.MethodGet)

	r.HandleFunc("/healthz", HealthHandlerFunc).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r
}

// instrument records request count and latency per method, the same
// extract-method-then-record shape the gRPC interceptor used for RPC
// names.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method+" "+routeTemplate(r), statusClass(sw.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method+" "+routeTemplate(r))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

func statusClass(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies a schederr kind into a status code, matching §7's
// propagation policy.
func writeError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *schederr.NotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": e.Error()})
	case *schederr.Forbidden:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": e.Error()})
	case *schederr.Validation:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": e.Error()})
	case *schederr.Scheduling:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": e.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// --- nodes ---

type createNodeRequest struct {
	NodeResources *resource.Vector `json:"node_resources"`
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}
	if req.NodeResources == nil || !req.NodeResources.IsComplete() {
		writeError(w, &schederr.Validation{Reason: "node_resources must be complete"})
		return
	}

	node := &types.Node{
		ID:            uuid.New().String(),
		Status:        types.NodeStatusActive,
		CreatedAt:     time.Now(),
		NodeResources: req.NodeResources,
		Dirty:         true,
	}
	if err := s.repo.CreateNode(node); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info().Str("node_id", node.ID).Msg("created node")
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.repo.ListNodes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.repo.GetNode(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type patchNodeRequest struct {
	NodeResources *resource.Vector `json:"node_resources"`
}

// patchNode replaces a node's resources and forces it back to ACTIVE,
// per §6: a resource update is itself evidence the node is healthy again.
func (s *Server) patchNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node, err := s.repo.GetNode(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req patchNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}
	if req.NodeResources == nil || !req.NodeResources.IsComplete() {
		writeError(w, &schederr.Validation{Reason: "node_resources must be complete"})
		return
	}

	node.NodeResources = req.NodeResources
	node.Status = types.NodeStatusActive
	node.Dirty = true
	if err := s.repo.UpdateNode(node); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// deleteNode transitions a node to DELETED and clears its resources; the
// node resolver drains any instances still on it next pass.
func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node, err := s.repo.GetNode(id)
	if err != nil {
		writeError(w, err)
		return
	}

	node.Status = types.NodeStatusDeleted
	node.NodeResources = nil
	node.Dirty = true
	if err := s.repo.UpdateNode(node); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info().Str("node_id", id).Msg("deleted node")
	w.WriteHeader(http.StatusNoContent)
}

// --- services ---

type createServiceRequest struct {
	Executable    string           `json:"executable"`
	Type          types.ServiceType `json:"type"`
	Priority      *int             `json:"priority,omitempty"`
	ResourceLimit *resource.Vector `json:"resource_limit"`
	ResourceFloor *resource.Vector `json:"resource_floor"`
}

const defaultServicePriority = 99

func (s *Server) createService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}
	if req.Executable == "" {
		writeError(w, &schederr.Validation{Reason: "executable is required"})
		return
	}
	if req.ResourceLimit == nil || !req.ResourceLimit.IsComplete() {
		writeError(w, &schederr.Validation{Reason: "resource_limit must be complete"})
		return
	}

	priority := defaultServicePriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	svc := &types.Service{
		ID:            uuid.New().String(),
		Executable:    req.Executable,
		Status:        types.ServiceStatusActive,
		Type:          req.Type,
		Priority:      priority,
		CreatedAt:     time.Now(),
		ResourceLimit: req.ResourceLimit,
		ResourceFloor: req.ResourceFloor,
		Dirty:         true,
	}
	if err := s.repo.CreateService(svc); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info().Str("service_id", svc.ID).Msg("created service")
	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.repo.ListServices()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.repo.GetService(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

type patchServiceRequest struct {
	Executable    *string          `json:"executable,omitempty"`
	Type          *types.ServiceType `json:"type,omitempty"`
	Priority      *int             `json:"priority,omitempty"`
	ResourceLimit *resource.Vector `json:"resource_limit,omitempty"`
	ResourceFloor *resource.Vector `json:"resource_floor,omitempty"`
}

// patchService applies a partial update; any field present forces the
// service back to ACTIVE, per §6.
func (s *Server) patchService(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	svc, err := s.repo.GetService(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req patchServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}

	changed := false
	if req.Executable != nil {
		svc.Executable = *req.Executable
		changed = true
	}
	if req.Type != nil {
		svc.Type = *req.Type
		changed = true
	}
	if req.Priority != nil {
		svc.Priority = *req.Priority
		changed = true
	}
	if req.ResourceLimit != nil {
		if !req.ResourceLimit.IsComplete() {
			writeError(w, &schederr.Validation{Reason: "resource_limit must be complete"})
			return
		}
		svc.ResourceLimit = req.ResourceLimit
		changed = true
	}
	if req.ResourceFloor != nil {
		svc.ResourceFloor = req.ResourceFloor
		changed = true
	}
	if changed {
		svc.Status = types.ServiceStatusActive
		svc.Dirty = true
	}

	if err := s.repo.UpdateService(svc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// deleteService transitions a service to DELETED and clears its bounds;
// the service resolver evicts its placed instance next pass.
func (s *Server) deleteService(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	svc, err := s.repo.GetService(id)
	if err != nil {
		writeError(w, err)
		return
	}

	svc.Status = types.ServiceStatusDeleted
	svc.ResourceLimit = nil
	svc.ResourceFloor = nil
	svc.Dirty = true
	if err := s.repo.UpdateService(svc); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info().Str("service_id", id).Msg("deleted service")
	w.WriteHeader(http.StatusNoContent)
}

// --- events ---

type nodeEventRequest struct {
	NodeID        string          `json:"node_id"`
	UpdatedStatus types.NodeStatus `json:"updated_status"`
}

func (s *Server) postNodeEvent(w http.ResponseWriter, r *http.Request) {
	var req nodeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}
	if req.UpdatedStatus != types.NodeStatusActive && req.UpdatedStatus != types.NodeStatusFailed {
		writeError(w, &schederr.Validation{Reason: "updated_status must be ACTIVE or FAILED"})
		return
	}

	if err := s.ingress.ApplyNodeEvent(events.NodeEvent{NodeID: req.NodeID, UpdatedStatus: req.UpdatedStatus}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type instanceEventRequest struct {
	InstanceID      string                 `json:"instance_id"`
	ExecutionStatus *types.ExecutionStatus `json:"execution_status,omitempty"`
	ResourceStatus  *types.ResourceStatus  `json:"resource_status,omitempty"`
}

func (s *Server) postInstanceEvent(w http.ResponseWriter, r *http.Request) {
	var req instanceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &schederr.Validation{Reason: "malformed request body"})
		return
	}

	ev := events.InstanceEvent{
		InstanceID:      req.InstanceID,
		ExecutionStatus: req.ExecutionStatus,
		ResourceStatus:  req.ResourceStatus,
	}
	if err := s.ingress.ApplyInstanceEvent(ev); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// --- monitoring ---

type monitoringStateResponse struct {
	Services         []*types.Service         `json:"services"`
	ServiceInstances []*types.ServiceInstance `json:"service_instances"`
	Nodes            []*types.Node            `json:"nodes"`
}

func (s *Server) monitoringState(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.repo.ListNodes()
	if err != nil {
		writeError(w, err)
		return
	}
	services, err := s.repo.ListServices()
	if err != nil {
		writeError(w, err)
		return
	}
	instances, err := s.repo.ListServiceInstances()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, monitoringStateResponse{Services: services, ServiceInstances: instances, Nodes: nodes})
}

// monitoringMetrics returns scheduler logs newer than the cutoff "from"
// minus "duration". A missing "from" defaults to one hour before now; a
// missing "duration" subtracts nothing.
func (s *Server) monitoringMetrics(w http.ResponseWriter, r *http.Request) {
	from := time.Now().Add(-time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, &schederr.Validation{Reason: "from must be RFC3339"})
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("duration"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, &schederr.Validation{Reason: "duration must be a Go duration string"})
			return
		}
		from = from.Add(-d)
	}

	logs, err := s.repo.ListSchedulerLogsSince(from)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []*schedulerlog.Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListNodes(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
