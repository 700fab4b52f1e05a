// Package session keeps short-lived OAuth authorization state between the
// redirect to a provider and its callback.
//
// A [State] is stored under a random token sent as the OAuth "state"
// parameter and is consumed exactly once by [StateStore.Take].
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// StateTTL bounds how long a user has to complete the consent screen.
const StateTTL = 10 * time.Minute

// State is what the callback needs to finish an authorization.
type State struct {
	OrgID     string    `json:"org_id"`
	Verifier  string    `json:"verifier"`
	Redirect  string    `json:"redirect,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StateStore persists pending authorizations.
type StateStore interface {
	Put(ctx context.Context, token string, s State, ttl time.Duration) error
	// Take returns and deletes the state for token. Unknown and expired
	// tokens yield a NOT_FOUND error.
	Take(ctx context.Context, token string) (*State, error)
	Close() error
}

// NewToken returns a random URL-safe state token.
func NewToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
