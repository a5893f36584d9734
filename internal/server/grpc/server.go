package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/messaging"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/models"
)

// Messaging is the backend the handlers serve.
type Messaging interface {
	Send(ctx context.Context, owner, to, body, mediaURL, clientID string) (models.Message, error)
	Conversations(owner string) []models.Conversation
	Messages(owner, counterpart string, limit int) ([]models.Message, error)
	MarkRead(owner, counterpart string) (int, error)
	UpdateStatus(owner string, ids []string, status string) (int, error)
	Delete(ctx context.Context, owner, sid string) error
	Presence(number string) (bool, time.Time)
	Typing(owner, to string, typing bool) error
	Subscribe(owner string) (<-chan messaging.Event, func())
}

type GRPCServer struct {
	address   string
	messaging Messaging
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, m Messaging, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		messaging: m,
		jwtSecret: []byte(secretKey),
	}, nil
}

// NewServer creates a gRPC server with the token interceptors and registers
// the messaging service on it.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&messagingServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
