package ports

import (
	"context"
	"time"

	"github.com/skyward-cloud/gatehouse/core"
)

// CredentialCache is the short-TTL store bridging the two phases of a
// two-factor login. Keys are single-use: Consume atomically reads and
// deletes, so a second consumer of the same key sees core.ErrKeyNotFound.
type CredentialCache interface {
	// Put stores the credentials under a freshly generated unguessable key
	// and returns the key.
	Put(ctx context.Context, creds core.Credentials, ttl time.Duration) (string, error)

	// Peek reads the record without consuming it.
	Peek(ctx context.Context, key string) (*core.PendingCredential, error)

	// Consume atomically reads and deletes the record.
	Consume(ctx context.Context, key string) (*core.PendingCredential, error)

	// Delete removes the record if it still exists.
	Delete(ctx context.Context, key string) error
}

// SessionStore persists Session records keyed by the opaque session ID held
// in the browser cookie.
type SessionStore interface {
	Save(ctx context.Context, id string, session *core.Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*core.Session, error)
	Delete(ctx context.Context, id string) error
}

// ProjectCache holds per-token cached project data written by the console.
// The token lifecycle manager purges it when the token is revoked.
type ProjectCache interface {
	Purge(ctx context.Context, tokenID string) error
}
