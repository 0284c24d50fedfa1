package gate

import (
	"context"
	"time"
)

// EnrollmentRecord is the durable per-identity enrollment state.
type EnrollmentRecord struct {
	Secret    string    `json:"secret"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSecret reports whether the identity has been issued a secret.
func (r *EnrollmentRecord) HasSecret() bool {
	return r != nil && r.Secret != ""
}

// EnrollmentStore persists one EnrollmentRecord per identity.
//
// Load returns (nil, nil) when the identity has no record.
type EnrollmentStore interface {
	Load(ctx context.Context, identity string) (*EnrollmentRecord, error)
	Save(ctx context.Context, identity string, record EnrollmentRecord) error
}

// EnrollmentCreator is implemented by stores that can create a record only if
// none holding a secret exists yet. When the store provides it, concurrent
// first visits for one identity all end up with the same secret.
type EnrollmentCreator interface {
	// CreateIfAbsent returns false when another writer got there first.
	CreateIfAbsent(ctx context.Context, identity string, record EnrollmentRecord) (bool, error)
}

// SessionFlag records whether a session has passed the challenge.
type SessionFlag interface {
	Get(ctx context.Context, sessionID string) (bool, error)
	// Set marks the session verified. There is no way to clear it from here.
	Set(ctx context.Context, sessionID string) error
}
