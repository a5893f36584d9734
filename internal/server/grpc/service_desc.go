package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
)

// messagingServer is the handler set behind dialer.v1.Messaging. Every
// request and reply is a google.protobuf.Struct.
type messagingServer interface {
	Ping(ctx context.Context, req map[string]any) (map[string]any, error)
	ListConversations(ctx context.Context, req map[string]any) (map[string]any, error)
	ListMessages(ctx context.Context, req map[string]any) (map[string]any, error)
	SendMessage(ctx context.Context, req map[string]any) (map[string]any, error)
	MarkRead(ctx context.Context, req map[string]any) (map[string]any, error)
	UpdateMessageStatus(ctx context.Context, req map[string]any) (map[string]any, error)
	DeleteMessage(ctx context.Context, req map[string]any) (map[string]any, error)
	GetPresence(ctx context.Context, req map[string]any) (map[string]any, error)
	SendTyping(ctx context.Context, req map[string]any) (map[string]any, error)
	Subscribe(req map[string]any, stream grpc.ServerStream) error
}

type unaryMethod func(srv messagingServer, ctx context.Context, req map[string]any) (map[string]any, error)

func unary(name string, fn unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + common.ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				out, err := fn(srv.(messagingServer), ctx, req.(*structpb.Struct).AsMap())
				if err != nil {
					return nil, err
				}
				reply, err := structpb.NewStruct(out)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return reply, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := &structpb.Struct{}
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(messagingServer).Subscribe(in.AsMap(), stream)
}

var messagingServiceDesc = grpc.ServiceDesc{
	ServiceName: common.ServiceName,
	HandlerType: (*messagingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", messagingServer.Ping),
		unary("ListConversations", messagingServer.ListConversations),
		unary("ListMessages", messagingServer.ListMessages),
		unary("SendMessage", messagingServer.SendMessage),
		unary("MarkRead", messagingServer.MarkRead),
		unary("UpdateMessageStatus", messagingServer.UpdateMessageStatus),
		unary("DeleteMessage", messagingServer.DeleteMessage),
		unary("GetPresence", messagingServer.GetPresence),
		unary("SendTyping", messagingServer.SendTyping),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
}
