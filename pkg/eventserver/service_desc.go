package eventserver

import (
	"context"

	"google.golang.org/grpc"
)

// eventIngressServer is the handler-side interface the generated service
// descriptor dispatches to. Named the way protoc-gen-go-grpc would name
// the unexported server interface for a service with no streaming RPCs.
type eventIngressServer interface {
	submitNodeEvent(context.Context, *NodeEventRequest) (*Ack, error)
	submitInstanceEvent(context.Context, *InstanceEventRequest) (*Ack, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "eventserver.EventIngress",
	HandlerType: (*eventIngressServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitNodeEvent", Handler: submitNodeEventHandler},
		{MethodName: "SubmitInstanceEvent", Handler: submitInstanceEventHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventserver.proto",
}

func submitNodeEventHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(NodeEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(eventIngressServer).submitNodeEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/eventserver.EventIngress/SubmitNodeEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(eventIngressServer).submitNodeEvent(ctx, req.(*NodeEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func submitInstanceEventHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InstanceEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(eventIngressServer).submitInstanceEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/eventserver.EventIngress/SubmitInstanceEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(eventIngressServer).submitInstanceEvent(ctx, req.(*InstanceEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}
