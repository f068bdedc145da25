package api

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

const evaluatorProtoFile = "atlas/v1/evaluator.proto"

// EvaluatorFile describes atlas/v1/evaluator.proto. It is registered in the
// global registry so server reflection resolves the Evaluator service.
var EvaluatorFile protoreflect.FileDescriptor

func init() {
	fd, err := buildEvaluatorFile(protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s: %v", evaluatorProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", evaluatorProtoFile, err))
	}
	EvaluatorFile = fd
}

func buildEvaluatorFile(resolver protodesc.Resolver) (protoreflect.FileDescriptor, error) {
	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(evaluatorProtoFile),
		Package:    proto.String("atlas.v1"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Evaluator"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("Evaluate"),
				InputType:  proto.String(".google.protobuf.Struct"),
				OutputType: proto.String(".google.protobuf.ListValue"),
			}},
		}},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/miradorstack/atlas/internal/api"),
		},
	}
	return protodesc.NewFile(file, resolver)
}
