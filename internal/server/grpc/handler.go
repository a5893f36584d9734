package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/models"
)

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	phone, ok := phoneFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthorized")
	}
	return phone, nil
}

func str(req map[string]any, key string) string {
	v, _ := req[key].(string)
	return strings.TrimSpace(v)
}

func messageList(msgs []models.Message) []any {
	out := make([]any, len(msgs))
	for i, m := range msgs {
		out[i] = m.Record()
	}
	return out
}

func (s *GRPCServer) Ping(ctx context.Context, req map[string]any) (map[string]any, error) {

	return map[string]any{"status": common.PingOK}, nil

}

func (s *GRPCServer) ListConversations(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	convs := s.messaging.Conversations(owner)
	out := make([]any, len(convs))
	for i, c := range convs {
		out[i] = c.Record()
	}
	return map[string]any{"conversations": out}, nil
}

func (s *GRPCServer) ListMessages(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	limit := 0
	if l, ok := req["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	msgs, err := s.messaging.Messages(owner, str(req, "identity"), limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return map[string]any{"messages": messageList(msgs)}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.messaging.Send(ctx, owner, str(req, "to"), str(req, "body"), str(req, "mediaUrl"), str(req, "clientId"))
	if err != nil {
		s.logger.Warn(ctx, "send rejected", "error", err)
		return nil, toStatus(err)
	}
	return map[string]any{"sid": m.SID, "status": m.Status, "to": m.To}, nil
}

func (s *GRPCServer) MarkRead(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.messaging.MarkRead(owner, str(req, "identity"))
	if err != nil {
		return nil, toStatus(err)
	}
	return map[string]any{"updated": n}, nil
}

func (s *GRPCServer) UpdateMessageStatus(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	list, _ := req["messageIds"].([]any)
	for _, v := range list {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	n, err := s.messaging.UpdateStatus(owner, ids, str(req, "status"))
	if err != nil {
		return nil, toStatus(err)
	}
	return map[string]any{"updated": n}, nil
}

func (s *GRPCServer) DeleteMessage(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	id := str(req, "messageId")
	if err := s.messaging.Delete(ctx, owner, id); err != nil {
		return nil, toStatus(err)
	}
	return map[string]any{"messageId": id, "deleted": true}, nil
}

func (s *GRPCServer) GetPresence(ctx context.Context, req map[string]any) (map[string]any, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}

	who := str(req, "identity")
	online, lastSeen := s.messaging.Presence(who)
	out := map[string]any{"identity": who, "status": "offline"}
	if online {
		out["status"] = "online"
	}
	if !lastSeen.IsZero() {
		out["lastSeenAt"] = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return out, nil
}

func (s *GRPCServer) SendTyping(ctx context.Context, req map[string]any) (map[string]any, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	typing, _ := req["typing"].(bool)
	if err := s.messaging.Typing(owner, str(req, "identity"), typing); err != nil {
		return nil, toStatus(err)
	}
	return map[string]any{}, nil
}

// Subscribe streams the caller's push events until the client goes away.
func (s *GRPCServer) Subscribe(req map[string]any, stream grpc.ServerStream) error {
	ctx := stream.Context()
	owner, err := s.caller(ctx)
	if err != nil {
		return err
	}

	events, cancel := s.messaging.Subscribe(owner)
	defer cancel()
	s.logger.Info(ctx, "push channel opened")
	defer s.logger.Info(ctx, "push channel closed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := structpb.NewStruct(ev)
			if err != nil {
				s.logger.Error(ctx, "unencodable event", "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
