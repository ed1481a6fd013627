package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// flakyStore fails ListOwners with err for the first failures calls.
type flakyStore struct {
	*MemoryStore
	failures int
	err      error
	calls    int
	block    bool
}

func (f *flakyStore) ListOwners(ctx context.Context) ([]model.Owner, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MemoryStore.ListOwners(ctx)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		Timeout:         50 * time.Millisecond,
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 2, err: Transient(errors.New("connection reset"))}
	require.NoError(t, inner.CreateOwner(context.Background(), &model.Owner{Name: "Ana"}))

	owners, err := WithRetry(inner, fastPolicy(3)).ListOwners(context.Background())
	require.NoError(t, err)
	assert.Len(t, owners, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetryExhaustedBecomesRetryable(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10, err: Transient(errors.New("connection reset"))}

	_, err := WithRetry(inner, fastPolicy(3)).ListOwners(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsRetryable(err))
	assert.Equal(t, 3, inner.calls)

	var re *model.RetryableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "list owners", re.Op)
}

func TestWithRetryDoesNotRetryDomainErrors(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10, err: &model.ValidationError{Field: "x", Reason: "bad"}}

	_, err := WithRetry(inner, fastPolicy(5)).ListOwners(context.Background())
	assert.True(t, model.IsValidation(err))
	assert.False(t, model.IsRetryable(err))
	assert.Equal(t, 1, inner.calls)

	_, err = WithRetry(NewMemoryStore(), fastPolicy(5)).GetOwner(context.Background(), "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestWithRetryPerCallTimeout(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), block: true}

	_, err := WithRetry(inner, fastPolicy(2)).ListOwners(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetryStopsOnCallerCancel(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10, err: Transient(errors.New("reset"))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(inner, fastPolicy(5)).ListOwners(ctx)
	require.Error(t, err)
	assert.False(t, model.IsRetryable(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(Transient(errors.New("reset"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.Nil(t, Transient(nil))
}
