package api

import (
	"context"
	"time"
)

// TokenProvider supplies bearer tokens to authenticated calls.
// The token lifecycle manager implements it.
type TokenProvider interface {
	// AwaitToken returns the current token, waiting up to maxWait for an
	// in-flight or freshly triggered initialization. It returns "" when no
	// token could be produced.
	AwaitToken(ctx context.Context, maxWait time.Duration) string

	// Refresh asks for a rotation and returns the token current afterwards,
	// which may be unchanged if another rotation won the race.
	Refresh(ctx context.Context) string
}
