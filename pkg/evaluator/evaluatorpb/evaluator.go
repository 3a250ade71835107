// Package evaluatorpb is the generated-code substitute for evaluator.proto.
// No protoc toolchain runs as part of this build, so the service contract is
// hand-written directly against google.golang.org/grpc and
// google.golang.org/protobuf/types/known/structpb instead of being produced
// by protoc-gen-go-grpc. structpb.Struct already satisfies proto.Message, so
// the stock grpc "proto" codec marshals/unmarshals every call exactly as it
// would a protoc-gen-go message; nothing here is a stub or a fake transport.
package evaluatorpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "evaluator.EvaluatorService"

// EvaluatorServiceClient is the client-side view of EvaluatorService.
type EvaluatorServiceClient interface {
	Probe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ScoreRubric(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GenerateQuestion(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ExecuteCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PollExecution(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SynthesizeReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type evaluatorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluatorServiceClient wraps a dialed connection with the
// EvaluatorService method set.
func NewEvaluatorServiceClient(cc grpc.ClientConnInterface) EvaluatorServiceClient {
	return &evaluatorServiceClient{cc: cc}
}

func (c *evaluatorServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *evaluatorServiceClient) Probe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Probe", in, opts...)
}

func (c *evaluatorServiceClient) ScoreRubric(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ScoreRubric", in, opts...)
}

func (c *evaluatorServiceClient) GenerateQuestion(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GenerateQuestion", in, opts...)
}

func (c *evaluatorServiceClient) ExecuteCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ExecuteCode", in, opts...)
}

func (c *evaluatorServiceClient) PollExecution(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "PollExecution", in, opts...)
}

func (c *evaluatorServiceClient) SynthesizeReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SynthesizeReport", in, opts...)
}

// EvaluatorServiceServer is the server-side contract a worker process
// implements. A reference worker is out of scope for this repo; this
// interface exists so a fake/in-process implementation can back tests.
type EvaluatorServiceServer interface {
	Probe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreRubric(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateQuestion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PollExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SynthesizeReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterEvaluatorServiceServer registers srv against a grpc.Server under
// the EvaluatorService ServiceDesc.
func RegisterEvaluatorServiceServer(s grpc.ServiceRegistrar, srv EvaluatorServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func handler(method func(EvaluatorServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(EvaluatorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName}
		handlerFn := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(EvaluatorServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handlerFn)
	}
}

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit: the method table a grpc.Server dispatches incoming calls
// through.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EvaluatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Probe", Handler: handler(EvaluatorServiceServer.Probe)},
		{MethodName: "ScoreRubric", Handler: handler(EvaluatorServiceServer.ScoreRubric)},
		{MethodName: "GenerateQuestion", Handler: handler(EvaluatorServiceServer.GenerateQuestion)},
		{MethodName: "ExecuteCode", Handler: handler(EvaluatorServiceServer.ExecuteCode)},
		{MethodName: "PollExecution", Handler: handler(EvaluatorServiceServer.PollExecution)},
		{MethodName: "SynthesizeReport", Handler: handler(EvaluatorServiceServer.SynthesizeReport)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/evaluator/evaluatorpb/evaluator.proto",
}
