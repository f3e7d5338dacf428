package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "agencyops/pkg/domain-errors"
)

func TestWithTxNilLeavesContextUntouched(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))

	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestExecFallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, Exec(context.Background(), db).(*sql.DB))

	txn := &sql.Tx{}
	ctx := WithTx(context.Background(), txn)
	assert.Same(t, txn, Exec(ctx, db).(*sql.Tx))
}

func TestLockRunner(t *testing.T) {
	t.Run("runs fn with a deadline", func(t *testing.T) {
		r := NewLockRunner(0)
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("propagates fn error", func(t *testing.T) {
		r := NewLockRunner(time.Second)
		boom := errors.New("boom")
		err := r.RunInTx(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		r := NewLockRunner(time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := r.RunInTx(ctx, func(context.Context) error { called = true; return nil })
		assert.False(t, called)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}
