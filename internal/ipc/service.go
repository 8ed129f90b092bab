package ipc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "recite.ipc.Control"
	doMethod    = "/recite.ipc.Control/Do"
)

// controlServer is the single-method service carried over the socket.
type controlServer interface {
	do(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Do", Handler: doHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recite/ipc/control",
}

func doHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).do(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: doMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).do(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
