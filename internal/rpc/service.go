package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rocketsim.v1.SimulationService"

// SimulationServer is the server API of the simulation service.
type SimulationServer interface {
	Simulate(context.Context, *SimulateRequest) (*Run, error)
	GetRun(context.Context, *GetRunRequest) (*Run, error)
	ListRuns(context.Context, *ListRunsRequest) (*ListRunsResponse, error)
}

// RegisterSimulationServer registers srv on s.
func RegisterSimulationServer(s grpc.ServiceRegistrar, srv SimulationServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler(func(s SimulationServer, ctx context.Context, in *SimulateRequest) (any, error) {
			return s.Simulate(ctx, in)
		}, "Simulate")},
		{MethodName: "GetRun", Handler: unaryHandler(func(s SimulationServer, ctx context.Context, in *GetRunRequest) (any, error) {
			return s.GetRun(ctx, in)
		}, "GetRun")},
		{MethodName: "ListRuns", Handler: unaryHandler(func(s SimulationServer, ctx context.Context, in *ListRunsRequest) (any, error) {
			return s.ListRuns(ctx, in)
		}, "ListRuns")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rocketsim/v1/simulation",
}

// unaryHandler adapts a typed method to grpc.MethodDesc, decoding the
// request and running the interceptor chain.
func unaryHandler[Req any](call func(SimulationServer, context.Context, *Req) (any, error), method string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SimulationServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
