// Package rpc serves the arbiter over gRPC. Messages are
// google.protobuf.Struct values so no generated stubs are needed.
package rpc

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName  = "signal.v1.SignalService"
	decideMethod = "/" + ServiceName + "/Decide"
)

// SignalServiceServer is the server API for signal.v1.SignalService.
type SignalServiceServer interface {
	Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// #region desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SignalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "signal/v1/signal.proto",
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignalServiceServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decideMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignalServiceServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register adds the signal service to s.
func Register(s *grpc.Server, srv SignalServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// #endregion desc

// #region server
// Server answers Decide with a stateless engine call.
type Server struct {
	config arbiter.Config
}

// NewServer creates a server whose defaults come from config. Requests may
// override beta and hysteresis.
func NewServer(config arbiter.Config) *Server {
	return &Server{config: config}
}

// Decide implements SignalServiceServer.
func (s *Server) Decide(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req DecideRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if req.CurrentGreenIndex == nil {
		return nil, status.Error(codes.InvalidArgument, "current_green_index is required")
	}

	cfg := s.config
	if req.Beta != nil {
		cfg.Beta = *req.Beta
	}
	if req.Hysteresis != nil {
		cfg.Hysteresis = *req.Hysteresis
	}

	d, err := arbiter.New(cfg).Decide(req.Lanes, req.EmergencyFlags, *req.CurrentGreenIndex)
	switch {
	case errors.Is(err, arbiter.ErrValidation):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := toStruct(d)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

// #endregion server

// #region interceptor
// LogUnary logs each unary call with its status code and latency.
func LogUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Printf("[grpc] %s %s %s", info.FullMethod, status.Code(err), time.Since(start).Round(time.Microsecond))
		return resp, err
	}
}

// #endregion interceptor
