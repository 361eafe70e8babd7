package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewServer(repo)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetNode(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/nodes", createNodeRequest{
		NodeResources: ptrVec(resource.New(2, 2<<30, 2<<30)),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, types.NodeStatusActive, created.Status)

	rec = doRequest(t, s, http.MethodGet, "/nodes/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateNodeRejectsIncompleteResources(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/nodes", createNodeRequest{NodeResources: &resource.Vector{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/nodes/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNodeMarksDeleted(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/nodes", createNodeRequest{NodeResources: ptrVec(resource.New(1, 1<<30, 1<<30))})
	var created types.Node
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doRequest(t, s, http.MethodDelete, "/nodes/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/nodes/"+created.ID, nil)
	var fetched types.Node
	json.Unmarshal(rec.Body.Bytes(), &fetched)
	assert.Equal(t, types.NodeStatusDeleted, fetched.Status)
	assert.Nil(t, fetched.NodeResources)
}

func TestCreateServiceDefaultsPriority(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/services", createServiceRequest{
		Executable:    "worker",
		ResourceLimit: ptrVec(resource.New(1, 1<<30, 1<<30)),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var svc types.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))
	assert.Equal(t, defaultServicePriority, svc.Priority)
}

func TestCreateServiceRequiresExecutable(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/services", createServiceRequest{
		ResourceLimit: ptrVec(resource.New(1, 1<<30, 1<<30)),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPatchServiceForcesActiveOnChange(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/services", createServiceRequest{
		Executable:    "worker",
		ResourceLimit: ptrVec(resource.New(1, 1<<30, 1<<30)),
	})
	var svc types.Service
	json.Unmarshal(rec.Body.Bytes(), &svc)

	newPriority := 5
	rec = doRequest(t, s, http.MethodPatch, "/services/"+svc.ID, patchServiceRequest{Priority: &newPriority})
	require.Equal(t, http.StatusOK, rec.Code)

	var patched types.Service
	json.Unmarshal(rec.Body.Bytes(), &patched)
	assert.Equal(t, 5, patched.Priority)
	assert.Equal(t, types.ServiceStatusActive, patched.Status)
}

func TestPostNodeEventRejectsInvalidStatus(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/events/nodes", nodeEventRequest{NodeID: "x", UpdatedStatus: types.NodeStatusDeleted})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMonitoringStateReturnsAllEntities(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/nodes", createNodeRequest{NodeResources: ptrVec(resource.New(1, 1<<30, 1<<30))})

	rec := doRequest(t, s, http.MethodGet, "/monitoring/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state monitoringStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Len(t, state.Nodes, 1)
}

func TestMonitoringMetricsRejectsBadDuration(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/monitoring/metrics?duration=notaduration", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func ptrVec(v resource.Vector) *resource.Vector { return &v }
