package tx

import (
	"context"
	"sync"
	"time"

	dErrors "agencyops/pkg/domain-errors"
)

// defaultLockTimeout bounds how long a locked sequence may run.
const defaultLockTimeout = 5 * time.Second

// LockRunner serializes transactional sequences against in-memory stores with
// a single coarse lock. It gives isolation but not rollback, so callers order
// their writes so that the first failing step precedes any mutation.
type LockRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewLockRunner returns a LockRunner. A zero timeout uses the default.
func NewLockRunner(timeout time.Duration) *LockRunner {
	return &LockRunner{timeout: timeout}
}

func (r *LockRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultLockTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
