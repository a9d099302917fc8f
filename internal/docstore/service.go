// Package docstore is the wire contract of the spendsync document store:
// a gRPC service whose messages are google.protobuf.Struct values carrying
// the JSON forms declared in messages.go.
package docstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "spendsync.docstore.v1.DocumentStore"

const (
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodGetSalt      = "/" + ServiceName + "/GetSalt"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodPut          = "/" + ServiceName + "/Put"
	MethodGet          = "/" + ServiceName + "/Get"
	MethodQuery        = "/" + ServiceName + "/Query"
	MethodDelete       = "/" + ServiceName + "/Delete"
	MethodBackupURL    = "/" + ServiceName + "/BackupURL"
	MethodWatch        = "/" + ServiceName + "/Watch"
)

// PublicMethods do not require an access token.
var PublicMethods = map[string]bool{
	MethodPing:         true,
	MethodRegister:     true,
	MethodGetSalt:      true,
	MethodLogin:        true,
	MethodRefreshToken: true,
}

type Server interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSalt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Put(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BackupURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStream) error
}

type unaryFunc func(Server, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(Server), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(Server), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).Watch(in, stream)
}

// WatchStreamDesc describes the server-streaming Watch call for clients.
var WatchStreamDesc = &grpc.StreamDesc{
	StreamName:    "Watch",
	ServerStreams: true,
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, Server.Ping)},
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, Server.Register)},
		{MethodName: "GetSalt", Handler: unaryHandler(MethodGetSalt, Server.GetSalt)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, Server.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(MethodRefreshToken, Server.RefreshToken)},
		{MethodName: "Put", Handler: unaryHandler(MethodPut, Server.Put)},
		{MethodName: "Get", Handler: unaryHandler(MethodGet, Server.Get)},
		{MethodName: "Query", Handler: unaryHandler(MethodQuery, Server.Query)},
		{MethodName: "Delete", Handler: unaryHandler(MethodDelete, Server.Delete)},
		{MethodName: "BackupURL", Handler: unaryHandler(MethodBackupURL, Server.BackupURL)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "spendsync/docstore.proto",
}

// Register attaches srv to a grpc.Server.
func Register(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

// Invoke encodes in, performs a unary call and decodes the reply into out.
// out may be nil when the reply carries nothing of interest.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := Encode(in)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(reply, out)
}
