package remote

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified name of the record store service.
	ServiceName = "rendezvous.recordstore.v1.RecordStore"

	CreateProcedure = "/rendezvous.recordstore.v1.RecordStore/Create"
	FetchProcedure  = "/rendezvous.recordstore.v1.RecordStore/Fetch"
	PatchProcedure  = "/rendezvous.recordstore.v1.RecordStore/Patch"
)

// serviceDescriptor describes RecordStore for reflection. Every method takes
// and returns a google.protobuf.Struct, so the file is assembled here instead
// of being generated.
var serviceDescriptor = mustRegisterService()

func mustRegisterService() protoreflect.ServiceDescriptor {
	method := func(name string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(".google.protobuf.Struct"),
			OutputType: proto.String(".google.protobuf.Struct"),
		}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("rendezvous/recordstore/v1/recordstore.proto"),
		Package:    proto.String("rendezvous.recordstore.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("RecordStore"),
			Method: []*descriptorpb.MethodDescriptorProto{method("Create"), method("Fetch"), method("Patch")},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build record store descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register record store descriptor: %v", err))
	}
	return fd.Services().ByName("RecordStore")
}

func methodDescriptor(name protoreflect.Name) protoreflect.MethodDescriptor {
	return serviceDescriptor.Methods().ByName(name)
}
