// Package grpc serves the document store over gRPC.
package grpc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/server/models"
	"github.com/dmitrijs2005/spendsync/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type DocumentService interface {
	Put(ctx context.Context, owner, collection, id string, body json.RawMessage) (bool, error)
	Get(ctx context.Context, owner, collection, id string) (*models.Document, error)
	Query(ctx context.Context, owner, collection string) ([]models.Document, error)
	Delete(ctx context.Context, owner, collection, id string) error
	Watch(ctx context.Context, owner, collection string, send func(docstore.ChangeBatch) error) error
}

type BackupService interface {
	UploadURL(ctx context.Context, owner string) (key, url string, err error)
}

type GRPCServer struct {
	address   string
	users     UserService
	documents DocumentService
	backups   BackupService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(address string, l logging.Logger, us UserService, ds DocumentService, bs BackupService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		documents: ds,
		backups:   bs,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	docstore.Register(srv, s)
	return srv
}

// Run serves until ctx is done, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())
	return srv.Serve(listen)
}
