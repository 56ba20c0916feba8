// Package jobs carries compression job identity through a request.
package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Prefix is prepended to every compression job ID.
const Prefix = "cmp-"

type ctxKey struct{}

// GenerateID creates a new random job ID with the given prefix.
// The prefix should include a trailing dash, e.g. "cmp-".
func GenerateID(prefix string) string {
	return prefix + uuid.NewString()
}

// WithID returns a copy of ctx carrying the job ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFrom returns the job ID stored in ctx, if any.
func IDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
