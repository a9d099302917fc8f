package models

import "time"

// User is a registered account. Verifier is derived from the master key on
// the client; the server never sees the password.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
