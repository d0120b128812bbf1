package server

// ============================================================================
// gRPC surface
//
// Service: timeline.v1.TimelineService
//   rpc AddItem(google.protobuf.Struct)             returns (google.protobuf.Empty)
//   rpc DeleteItem(google.protobuf.StringValue)     returns (google.protobuf.Empty)
//   rpc SetTotalWidth(google.protobuf.DoubleValue)  returns (google.protobuf.Empty)
//   rpc GetVisible(google.protobuf.Empty)           returns (google.protobuf.ListValue)
//   rpc WatchVisible(google.protobuf.Empty)         returns (stream google.protobuf.ListValue)
//
// Messages are protobuf well-known types, so the descriptor below is written
// by hand instead of generated.
// ============================================================================

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "timeline.v1.TimelineService"

const (
	methodAddItem       = "/" + ServiceName + "/AddItem"
	methodDeleteItem    = "/" + ServiceName + "/DeleteItem"
	methodSetTotalWidth = "/" + ServiceName + "/SetTotalWidth"
	methodGetVisible    = "/" + ServiceName + "/GetVisible"
	methodWatchVisible  = "/" + ServiceName + "/WatchVisible"
)

// TimelineServiceServer is the server API for TimelineService.
type TimelineServiceServer interface {
	AddItem(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteItem(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SetTotalWidth(context.Context, *wrapperspb.DoubleValue) (*emptypb.Empty, error)
	GetVisible(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	WatchVisible(*emptypb.Empty, grpc.ServerStreamingServer[structpb.ListValue]) error
}

// RegisterTimelineServiceServer registers srv on s.
func RegisterTimelineServiceServer(s grpc.ServiceRegistrar, srv TimelineServiceServer) {
	s.RegisterService(&TimelineServiceDesc, srv)
}

// GRPCServer adapts a Service to TimelineServiceServer.
type GRPCServer struct {
	svc *Service
}

var _ TimelineServiceServer = (*GRPCServer)(nil)

// NewGRPCServer wraps svc.
func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// AddItem handles item insertion.
func (g *GRPCServer) AddItem(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	item, err := itemFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := g.svc.Add(item); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// DeleteItem handles item removal by id.
func (g *GRPCServer) DeleteItem(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := g.svc.Delete(req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// SetTotalWidth handles track resizing.
func (g *GRPCServer) SetTotalWidth(ctx context.Context, req *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	if err := g.svc.Resize(req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// GetVisible returns the current visible set.
func (g *GRPCServer) GetVisible(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := itemsToList(g.svc.Visible())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return list, nil
}

// WatchVisible streams the visible set, starting with the current one, until
// the client goes away.
func (g *GRPCServer) WatchVisible(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.ListValue]) error {
	updates, cancel := g.svc.Watch()
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case visible := <-updates:
			list, err := itemsToList(visible)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(list); err != nil {
				return err
			}
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrMissingID), errors.Is(err, ErrInvalidWidth):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrDuplicateItem):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ============================================================================
// Service descriptor
// ============================================================================

func addItemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TimelineServiceServer).AddItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAddItem}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TimelineServiceServer).AddItem(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteItemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TimelineServiceServer).DeleteItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDeleteItem}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TimelineServiceServer).DeleteItem(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func setTotalWidthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.DoubleValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TimelineServiceServer).SetTotalWidth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetTotalWidth}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TimelineServiceServer).SetTotalWidth(ctx, req.(*wrapperspb.DoubleValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getVisibleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TimelineServiceServer).GetVisible(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetVisible}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TimelineServiceServer).GetVisible(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchVisibleHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TimelineServiceServer).WatchVisible(in, &grpc.GenericServerStream[emptypb.Empty, structpb.ListValue]{ServerStream: stream})
}

// TimelineServiceDesc describes TimelineService for grpc.Server.RegisterService.
var TimelineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimelineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddItem", Handler: addItemHandler},
		{MethodName: "DeleteItem", Handler: deleteItemHandler},
		{MethodName: "SetTotalWidth", Handler: setTotalWidthHandler},
		{MethodName: "GetVisible", Handler: getVisibleHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchVisible", Handler: watchVisibleHandler, ServerStreams: true},
	},
	Metadata: "timeline/v1/timeline.proto",
}
