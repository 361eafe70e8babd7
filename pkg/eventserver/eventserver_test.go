package eventserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/events"
	"github.com/cuemby/warren-scheduler/pkg/resource"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/cuemby/warren-scheduler/pkg/types"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func startTestServer(t *testing.T) (storage.Repository, string) {
	t.Helper()
	repo, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ingress := events.NewIngress(repo)
	srv := NewServer(ingress)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return repo, lis.Addr().String()
}

func TestSubmitNodeEventOverGRPC(t *testing.T) {
	repo, addr := startTestServer(t)

	nodeRes := resource.New(1, 1<<30, 1<<30)
	node := &types.Node{ID: uuid.New().String(), Status: types.NodeStatusActive, NodeResources: &nodeRes}
	if err := repo.CreateNode(node); err != nil {
		t.Fatalf("create node: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(grpc.CallContentSubtype("proto")))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := &NodeEventRequest{NodeID: node.ID, UpdatedStatus: types.NodeStatusFailed}
	reply := new(Ack)
	if err := conn.Invoke(ctx, "/eventserver.EventIngress/SubmitNodeEvent", req, reply); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	updated, err := repo.GetNode(node.ID)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if updated.Status != types.NodeStatusFailed {
		t.Errorf("expected FAILED status, got %v", updated.Status)
	}
}

func TestSubmitNodeEventOverGRPCUnknownNode(t *testing.T) {
	_, addr := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(grpc.CallContentSubtype("proto")))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := &NodeEventRequest{NodeID: "missing", UpdatedStatus: types.NodeStatusFailed}
	reply := new(Ack)
	if err := conn.Invoke(ctx, "/eventserver.EventIngress/SubmitNodeEvent", req, reply); err == nil {
		t.Fatal("expected an error for an unknown node")
	}
}
