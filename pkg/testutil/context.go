package testutil

import (
	"context"
	"time"

	"agencyops/pkg/requestcontext"
)

// ContextAt returns a background context whose request clock reads now.
func ContextAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}
