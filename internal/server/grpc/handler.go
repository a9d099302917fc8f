package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC codes. Anything unexpected is
// logged and reported as a bare internal error.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func decodeRequest(in *structpb.Struct, v any) error {
	if err := docstore.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := docstore.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// authorizeOwner rejects requests for documents of anyone but the caller.
func authorizeOwner(ctx context.Context, ownerID string) error {
	caller, ok := OwnerFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	if ownerID != caller {
		return status.Error(codes.PermissionDenied, "owner mismatch")
	}
	return nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeResponse(docstore.PingResponse{Status: "OK"})
}

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.RegisterRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	u, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username)
	return encodeResponse(docstore.RegisterResponse{UserID: u.ID})
}

func (s *GRPCServer) GetSalt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.GetSaltRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	salt, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.GetSaltResponse{Salt: salt})
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.LoginRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	pair, err := s.users.Login(ctx, req.Username, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *GRPCServer) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.RefreshTokenRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *GRPCServer) Put(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.PutRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	created, err := s.documents.Put(ctx, req.OwnerID, req.Collection, req.ID, req.Body)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.PutResponse{Created: created})
}

func (s *GRPCServer) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.GetRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, req.OwnerID, req.Collection, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.Document{ID: doc.ID, Body: doc.Body})
}

func (s *GRPCServer) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.QueryRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	docs, err := s.documents.Query(ctx, req.OwnerID, req.Collection)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := docstore.QueryResponse{Documents: make([]docstore.Document, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, docstore.Document{ID: d.ID, Body: d.Body})
	}
	return encodeResponse(resp)
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.DeleteRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	if err := s.documents.Delete(ctx, req.OwnerID, req.Collection, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.Empty{})
}

func (s *GRPCServer) BackupURL(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req docstore.BackupURLRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	key, url, err := s.backups.UploadURL(ctx, req.OwnerID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeResponse(docstore.BackupURLResponse{Key: key, URL: url})
}

func (s *GRPCServer) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	var req docstore.WatchRequest
	if err := decodeRequest(in, &req); err != nil {
		return err
	}
	if err := authorizeOwner(ctx, req.OwnerID); err != nil {
		return err
	}

	s.logger.Debug(ctx, "Watch started", "owner", req.OwnerID, "collection", req.Collection)
	err := s.documents.Watch(ctx, req.OwnerID, req.Collection, func(batch docstore.ChangeBatch) error {
		msg, err := encodeResponse(batch)
		if err != nil {
			return err
		}
		return stream.SendMsg(msg)
	})
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return s.toStatus(ctx, err)
}
