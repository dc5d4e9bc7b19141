package domain

import "context"

// Identity is the caller as resolved from a bearer credential.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// ReplyGenerator maps a rendered conversation prompt to assistant text.
type ReplyGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SessionLocker serializes work on a single session. The returned unlock
// must be called exactly once.
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
