package docstore

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse answers both Login and RefreshToken.
type TokenResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Document is one stored record. Body is the record's JSON document form
// and is opaque to the store apart from its createdAt key, used for ordering.
type Document struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

type PutRequest struct {
	OwnerID    string          `json:"ownerId"`
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
}

type PutResponse struct {
	Created bool `json:"created"`
}

type GetRequest struct {
	OwnerID    string `json:"ownerId"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// QueryRequest lists every document of a collection owned by OwnerID,
// newest createdAt first.
type QueryRequest struct {
	OwnerID    string `json:"ownerId"`
	Collection string `json:"collection"`
}

type QueryResponse struct {
	Documents []Document `json:"documents"`
}

type DeleteRequest struct {
	OwnerID    string `json:"ownerId"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type WatchRequest struct {
	OwnerID    string `json:"ownerId"`
	Collection string `json:"collection"`
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

type Change struct {
	Kind     ChangeKind `json:"kind"`
	Document Document   `json:"document"`
}

// ChangeBatch is one message of the Watch stream. The first batch after
// subscribing lists every existing document as ChangeAdded.
type ChangeBatch struct {
	Collection string   `json:"collection"`
	Changes    []Change `json:"changes"`
}

type BackupURLRequest struct {
	OwnerID string `json:"ownerId"`
}

type BackupURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Encode converts a message into the structpb.Struct carried on the wire.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from a wire structpb.Struct. A nil struct decodes as {}.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to decode into %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode into %T: %w", v, err)
	}
	return nil
}
