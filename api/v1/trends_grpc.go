// Package trendsv1 declares the trends.v1.TrendAnalysis gRPC service.
// Messages are google.protobuf.Struct, so no generated message types are needed.
package trendsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	TrendAnalysis_AnalyzeTrends_FullMethodName     = "/trends.v1.TrendAnalysis/AnalyzeTrends"
	TrendAnalysis_ListRuns_FullMethodName          = "/trends.v1.TrendAnalysis/ListRuns"
	TrendAnalysis_GetSegmentHistory_FullMethodName = "/trends.v1.TrendAnalysis/GetSegmentHistory"
)

// TrendAnalysisClient is the client API for the TrendAnalysis service.
type TrendAnalysisClient interface {
	AnalyzeTrends(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSegmentHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type trendAnalysisClient struct {
	cc grpc.ClientConnInterface
}

func NewTrendAnalysisClient(cc grpc.ClientConnInterface) TrendAnalysisClient {
	return &trendAnalysisClient{cc}
}

func (c *trendAnalysisClient) AnalyzeTrends(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrendAnalysis_AnalyzeTrends_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trendAnalysisClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrendAnalysis_ListRuns_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trendAnalysisClient) GetSegmentHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrendAnalysis_GetSegmentHistory_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// TrendAnalysisServer is the server API for the TrendAnalysis service.
// Implementations must embed UnimplementedTrendAnalysisServer.
type TrendAnalysisServer interface {
	AnalyzeTrends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSegmentHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedTrendAnalysisServer()
}

// UnimplementedTrendAnalysisServer must be embedded to have forward compatible implementations.
type UnimplementedTrendAnalysisServer struct{}

func (UnimplementedTrendAnalysisServer) AnalyzeTrends(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AnalyzeTrends not implemented")
}

func (UnimplementedTrendAnalysisServer) ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRuns not implemented")
}

func (UnimplementedTrendAnalysisServer) GetSegmentHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSegmentHistory not implemented")
}

func (UnimplementedTrendAnalysisServer) mustEmbedUnimplementedTrendAnalysisServer() {}

func RegisterTrendAnalysisServer(s grpc.ServiceRegistrar, srv TrendAnalysisServer) {
	s.RegisterService(&TrendAnalysis_ServiceDesc, srv)
}

func unaryHandler(method string, call func(TrendAnalysisServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TrendAnalysisServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TrendAnalysisServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TrendAnalysis_ServiceDesc is the grpc.ServiceDesc for the TrendAnalysis service.
var TrendAnalysis_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "trends.v1.TrendAnalysis",
	HandlerType: (*TrendAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AnalyzeTrends",
			Handler:    unaryHandler(TrendAnalysis_AnalyzeTrends_FullMethodName, TrendAnalysisServer.AnalyzeTrends),
		},
		{
			MethodName: "ListRuns",
			Handler:    unaryHandler(TrendAnalysis_ListRuns_FullMethodName, TrendAnalysisServer.ListRuns),
		},
		{
			MethodName: "GetSegmentHistory",
			Handler:    unaryHandler(TrendAnalysis_GetSegmentHistory_FullMethodName, TrendAnalysisServer.GetSegmentHistory),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/v1/trends.proto",
}
