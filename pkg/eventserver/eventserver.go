// Package eventserver exposes pkg/events.Ingress over gRPC for node agents
// and instance supervisors that hold a long-lived connection instead of
// issuing one-off HTTP requests. It is the same adaptor pkg/api's
// POST /events/... handlers call; the two transports never diverge in
// behavior.
package eventserver

import (
	"context"
	"net"

	"github.com/cuemby/warren-scheduler/pkg/events"
	"github.com/cuemby/warren-scheduler/pkg/log"
	"github.com/cuemby/warren-scheduler/pkg/metrics"
	schederr "github.com/cuemby/warren-scheduler/pkg/scheduler/errors"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NodeEventRequest mirrors events.NodeEvent on the wire.
type NodeEventRequest struct {
	NodeID        string           `json:"node_id"`
	UpdatedStatus types.NodeStatus `json:"updated_status"`
}

// InstanceEventRequest mirrors events.InstanceEvent on the wire.
type InstanceEventRequest struct {
	InstanceID      string                 `json:"instance_id"`
	ExecutionStatus *types.ExecutionStatus `json:"execution_status,omitempty"`
	ResourceStatus  *types.ResourceStatus  `json:"resource_status,omitempty"`
}

// Ack is the empty success response for both RPCs.
type Ack struct{}

// Server is the gRPC service implementation.
type Server struct {
	ingress *events.Ingress
	logger  zerolog.Logger
	grpc    *grpc.Server
}

// NewServer builds a Server delegating to ingress.
func NewServer(ingress *events.Ingress) *Server {
	s := &Server{
		ingress: ingress,
		logger:  log.WithComponent("eventserver"),
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.loggingInterceptor))
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve blocks, accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs then stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) submitNodeEvent(_ context.Context, req *NodeEventRequest) (*Ack, error) {
	err := s.ingress.ApplyNodeEvent(events.NodeEvent{
		NodeID:        req.NodeID,
		UpdatedStatus: req.UpdatedStatus,
	})
	return &Ack{}, toGRPCError(err)
}

func (s *Server) submitInstanceEvent(_ context.Context, req *InstanceEventRequest) (*Ack, error) {
	err := s.ingress.ApplyInstanceEvent(events.InstanceEvent{
		InstanceID:      req.InstanceID,
		ExecutionStatus: req.ExecutionStatus,
		ResourceStatus:  req.ResourceStatus,
	})
	return &Ack{}, toGRPCError(err)
}

func toGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *schederr.NotFound:
		return status.Error(codes.NotFound, err.Error())
	case *schederr.Forbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case *schederr.Validation:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// loggingInterceptor times and logs every RPC, adapted from the mTLS
// server's method-name-based interceptor to timing and debug logging
// instead of an access-control decision; it records no Prometheus metric.
func (s *Server) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	timer := metrics.NewTimer()
	resp, err := handler(ctx, req)
	s.logger.Debug().
		Str("method", info.FullMethod).
		Dur("duration", timer.Duration()).
		Err(err).
		Msg("handled event rpc")
	return resp, err
}
