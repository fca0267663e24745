package garage

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified service name, also used for health checks.
	ServiceName = "garage.v1.StatusService"
	// GetStatusMethod is the full method name of GetStatus.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
)

// StatusServiceServer is the server API for the status service.
type StatusServiceServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// StatusServiceDesc describes the status service for grpc.Server.RegisterService.
var StatusServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatusServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "garage/v1/status.proto",
}

// RegisterStatusServiceServer registers srv on s.
func RegisterStatusServiceServer(s grpc.ServiceRegistrar, srv StatusServiceServer) {
	s.RegisterService(&StatusServiceDesc, srv)
}

func getStatusHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(StatusServiceServer)

	if interceptor == nil {
		return server.GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*emptypb.Empty)

		return server.GetStatus(ctx, request)
	}

	return interceptor(ctx, in, info, handler)
}

// StatusServiceClient is the client API for the status service.
type StatusServiceClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// statusServiceClient invokes the status service over a connection.
type statusServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewStatusServiceClient creates a client on cc.
func NewStatusServiceClient(cc grpc.ClientConnInterface) StatusServiceClient {
	return &statusServiceClient{cc: cc}
}

// GetStatus fetches the current status report.
func (c *statusServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
