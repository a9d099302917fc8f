// Package remote is the client side of the document store: a gRPC adapter
// that speaks the docstore contract and maps transport failures onto the
// common error taxonomy.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChangeStream yields the batches of a Watch subscription. Recv returns
// io.EOF when the server closes the stream; cancel the context passed to
// Watch to stop it.
type ChangeStream interface {
	Recv() (docstore.ChangeBatch, error)
}

type GRPCClient struct {
	conn   grpc.ClientConnInterface
	closer io.Closer

	mu             sync.RWMutex
	accessToken    string
	refreshToken   string
	onTokenRefresh func(refreshToken string)
}

// New dials target lazily; no I/O happens until the first call.
func New(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.closer = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// SetRefreshToken restores a refresh token cached by an earlier session, so
// that the first authenticated call after an offline login can obtain an
// access token.
func (c *GRPCClient) SetRefreshToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshToken = token
}

// OnTokenRefresh registers fn to receive every rotated refresh token.
func (c *GRPCClient) OnTokenRefresh(fn func(refreshToken string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokenRefresh = fn
}

// ClearTokens forgets both tokens (sign-out).
func (c *GRPCClient) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

func (c *GRPCClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) storeTokens(resp docstore.TokenResponse) {
	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	fn := c.onTokenRefresh
	c.mu.Unlock()

	if fn != nil {
		fn(resp.RefreshToken)
	}
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	var resp docstore.PingResponse
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodPing, docstore.Empty{}, &resp); err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return common.ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) Register(ctx context.Context, username string, salt, verifier []byte) (string, error) {
	var resp docstore.RegisterResponse
	req := docstore.RegisterRequest{Username: username, Salt: salt, Verifier: verifier}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodRegister, req, &resp); err != nil {
		return "", mapError(err)
	}
	return resp.UserID, nil
}

func (c *GRPCClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp docstore.GetSaltResponse
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodGetSalt, docstore.GetSaltRequest{Username: username}, &resp); err != nil {
		return nil, mapError(err)
	}
	return resp.Salt, nil
}

// Login authenticates and returns the owner id the server assigned.
func (c *GRPCClient) Login(ctx context.Context, username string, verifier []byte) (string, error) {
	var resp docstore.TokenResponse
	req := docstore.LoginRequest{Username: username, Verifier: verifier}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodLogin, req, &resp); err != nil {
		return "", mapError(err)
	}
	c.storeTokens(resp)
	return resp.UserID, nil
}

func (c *GRPCClient) Put(ctx context.Context, ownerID, collection, id string, body json.RawMessage) error {
	req := docstore.PutRequest{OwnerID: ownerID, Collection: collection, ID: id, Body: body}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodPut, req, nil); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) Get(ctx context.Context, ownerID, collection, id string) (docstore.Document, error) {
	var doc docstore.Document
	req := docstore.GetRequest{OwnerID: ownerID, Collection: collection, ID: id}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodGet, req, &doc); err != nil {
		return docstore.Document{}, mapError(err)
	}
	return doc, nil
}

// Query returns every document of the collection, newest createdAt first.
func (c *GRPCClient) Query(ctx context.Context, ownerID, collection string) ([]docstore.Document, error) {
	var resp docstore.QueryResponse
	req := docstore.QueryRequest{OwnerID: ownerID, Collection: collection}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodQuery, req, &resp); err != nil {
		return nil, mapError(err)
	}
	return resp.Documents, nil
}

// Delete removes a document; deleting a missing document succeeds.
func (c *GRPCClient) Delete(ctx context.Context, ownerID, collection, id string) error {
	req := docstore.DeleteRequest{OwnerID: ownerID, Collection: collection, ID: id}
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodDelete, req, nil); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) BackupURL(ctx context.Context, ownerID string) (key, url string, err error) {
	var resp docstore.BackupURLResponse
	if err := docstore.Invoke(ctx, c.conn, docstore.MethodBackupURL, docstore.BackupURLRequest{OwnerID: ownerID}, &resp); err != nil {
		return "", "", mapError(err)
	}
	return resp.Key, resp.URL, nil
}

type changeStream struct {
	stream grpc.ClientStream
}

func (s *changeStream) Recv() (docstore.ChangeBatch, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		if errors.Is(err, io.EOF) {
			return docstore.ChangeBatch{}, io.EOF
		}
		return docstore.ChangeBatch{}, mapError(err)
	}
	var batch docstore.ChangeBatch
	if err := docstore.Decode(msg, &batch); err != nil {
		return docstore.ChangeBatch{}, err
	}
	return batch, nil
}

// Watch opens a server stream of change batches for one collection.
func (c *GRPCClient) Watch(ctx context.Context, ownerID, collection string) (ChangeStream, error) {
	stream, err := c.conn.NewStream(ctx, docstore.WatchStreamDesc, docstore.MethodWatch)
	if err != nil {
		return nil, mapError(err)
	}

	req, err := docstore.Encode(docstore.WatchRequest{OwnerID: ownerID, Collection: collection})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, mapError(err)
	}
	return &changeStream{stream: stream}, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token and, when the server
// rejects it, rotates the token pair once via RefreshToken and retries.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if docstore.PublicMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := c.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated || refresh == "" {
		return err
	}

	if rerr := c.refresh(ctx, refresh, func(r, out any) error {
		return invoker(ctx, docstore.MethodRefreshToken, r, out, cc, opts...)
	}); rerr != nil {
		return err
	}

	access, _ = c.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (c *GRPCClient) streamTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	access, refresh := c.tokens()
	if access == "" && refresh != "" {
		_ = c.refresh(ctx, refresh, func(r, out any) error {
			return cc.Invoke(ctx, docstore.MethodRefreshToken, r, out, opts...)
		})
		access, _ = c.tokens()
	}
	return streamer(withAccessToken(ctx, access), desc, cc, method, opts...)
}

func (c *GRPCClient) refresh(ctx context.Context, refreshToken string, call func(req, reply any) error) error {
	req, err := docstore.Encode(docstore.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := call(req, reply); err != nil {
		return err
	}

	var resp docstore.TokenResponse
	if err := docstore.Decode(reply, &resp); err != nil {
		return err
	}
	c.storeTokens(resp)
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrForbidden, st.Message())
	case codes.NotFound:
		return common.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
