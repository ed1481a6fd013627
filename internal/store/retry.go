package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// RetryPolicy bounds every call made through WithRetry.
type RetryPolicy struct {
	Timeout         time.Duration // per attempt; zero disables it
	MaxAttempts     int           // including the first call
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when configuration leaves the
// store section empty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         5 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying. Backends call it for connection
// resets, timeouts and similar failures.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient or is a timeout.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var to interface{ Timeout() bool }
	return errors.As(err, &to) && to.Timeout()
}

// WithRetry wraps inner so that each call runs under the policy's per-attempt
// timeout and transient failures are retried with exponential backoff.
// Domain errors (validation, not found, referential integrity) pass through
// untouched. A call that is still failing after the last attempt returns a
// *model.RetryableError.
func WithRetry(inner Store, policy RetryPolicy) Store {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultRetryPolicy().InitialInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	return &retryStore{inner: inner, policy: policy}
}

type retryStore struct {
	inner  Store
	policy RetryPolicy
}

func (r *retryStore) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.InitialInterval
	eb.MaxInterval = r.policy.MaxInterval
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.MaxAttempts-1)), ctx)
}

func retryData[T any](ctx context.Context, r *retryStore, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.policy.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		}
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return v, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || IsTransient(err) {
			return v, Transient(err)
		}
		return v, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying store call")
	}

	v, err := backoff.RetryNotifyWithData(attempt, r.newBackOff(ctx), notify)
	if err != nil && IsTransient(err) && ctx.Err() == nil {
		return v, &model.RetryableError{Op: op, Err: err}
	}
	return v, err
}

func retryExec(ctx context.Context, r *retryStore, op string, fn func(ctx context.Context) error) error {
	_, err := retryData(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (r *retryStore) CreateEntry(ctx context.Context, entry *model.Entry) error {
	return retryExec(ctx, r, "create entry", func(ctx context.Context) error {
		return r.inner.CreateEntry(ctx, entry)
	})
}

func (r *retryStore) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	return retryData(ctx, r, "get entry", func(ctx context.Context) (*model.Entry, error) {
		return r.inner.GetEntry(ctx, id)
	})
}

func (r *retryStore) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	return retryExec(ctx, r, "update entry", func(ctx context.Context) error {
		return r.inner.UpdateEntry(ctx, entry)
	})
}

func (r *retryStore) DeleteEntry(ctx context.Context, id string) error {
	return retryExec(ctx, r, "delete entry", func(ctx context.Context) error {
		return r.inner.DeleteEntry(ctx, id)
	})
}

func (r *retryStore) ListEntries(ctx context.Context, filter model.EntryFilter) ([]model.Entry, error) {
	return retryData(ctx, r, "list entries", func(ctx context.Context) ([]model.Entry, error) {
		return r.inner.ListEntries(ctx, filter)
	})
}

func (r *retryStore) CountEntriesByAccount(ctx context.Context, accountID string) (int, error) {
	return retryData(ctx, r, "count entries", func(ctx context.Context) (int, error) {
		return r.inner.CountEntriesByAccount(ctx, accountID)
	})
}

func (r *retryStore) ReassignAccount(ctx context.Context, fromID, toID string) (int, error) {
	return retryData(ctx, r, "reassign account", func(ctx context.Context) (int, error) {
		return r.inner.ReassignAccount(ctx, fromID, toID)
	})
}

func (r *retryStore) CreateAccount(ctx context.Context, account *model.ChartAccount) error {
	return retryExec(ctx, r, "create account", func(ctx context.Context) error {
		return r.inner.CreateAccount(ctx, account)
	})
}

func (r *retryStore) GetAccount(ctx context.Context, id string) (*model.ChartAccount, error) {
	return retryData(ctx, r, "get account", func(ctx context.Context) (*model.ChartAccount, error) {
		return r.inner.GetAccount(ctx, id)
	})
}

func (r *retryStore) UpdateAccount(ctx context.Context, account *model.ChartAccount) error {
	return retryExec(ctx, r, "update account", func(ctx context.Context) error {
		return r.inner.UpdateAccount(ctx, account)
	})
}

func (r *retryStore) DeleteAccount(ctx context.Context, id string) error {
	return retryExec(ctx, r, "delete account", func(ctx context.Context) error {
		return r.inner.DeleteAccount(ctx, id)
	})
}

func (r *retryStore) ListAccounts(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	return retryData(ctx, r, "list accounts", func(ctx context.Context) ([]model.ChartAccount, error) {
		return r.inner.ListAccounts(ctx, clinicID)
	})
}

func (r *retryStore) CreateOwner(ctx context.Context, owner *model.Owner) error {
	return retryExec(ctx, r, "create owner", func(ctx context.Context) error {
		return r.inner.CreateOwner(ctx, owner)
	})
}

func (r *retryStore) GetOwner(ctx context.Context, id string) (*model.Owner, error) {
	return retryData(ctx, r, "get owner", func(ctx context.Context) (*model.Owner, error) {
		return r.inner.GetOwner(ctx, id)
	})
}

func (r *retryStore) UpdateOwner(ctx context.Context, owner *model.Owner) error {
	return retryExec(ctx, r, "update owner", func(ctx context.Context) error {
		return r.inner.UpdateOwner(ctx, owner)
	})
}

func (r *retryStore) ListOwners(ctx context.Context) ([]model.Owner, error) {
	return retryData(ctx, r, "list owners", func(ctx context.Context) ([]model.Owner, error) {
		return r.inner.ListOwners(ctx)
	})
}
