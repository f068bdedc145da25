package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// EvaluatorServiceName is the fully qualified gRPC service name.
	EvaluatorServiceName = "atlas.v1.Evaluator"
	// EvaluateMethod is the full method path of Evaluate.
	EvaluateMethod = "/" + EvaluatorServiceName + "/Evaluate"
)

// EvaluatorServer evaluates one Observation, passed as a JSON object, and
// returns its StageResults as a list of JSON objects.
type EvaluatorServer interface {
	Evaluate(ctx context.Context, observation *structpb.Struct) (*structpb.ListValue, error)
}

// UnimplementedEvaluatorServer can be embedded for forward compatibility.
type UnimplementedEvaluatorServer struct{}

// Evaluate returns codes.Unimplemented.
func (UnimplementedEvaluatorServer) Evaluate(context.Context, *structpb.Struct) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Evaluate not implemented")
}

// RegisterEvaluatorServer attaches srv to a gRPC server.
func RegisterEvaluatorServer(s grpc.ServiceRegistrar, srv EvaluatorServer) {
	s.RegisterService(&evaluatorServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluatorServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var evaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluatorServiceName,
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: evaluatorProtoFile,
}

// EvaluatorClient calls the Evaluator service.
type EvaluatorClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluatorClient wraps a client connection.
func NewEvaluatorClient(cc grpc.ClientConnInterface) *EvaluatorClient {
	return &EvaluatorClient{cc: cc}
}

// Evaluate sends one Observation.
func (c *EvaluatorClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, EvaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
