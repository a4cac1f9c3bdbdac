// Package ops runs the async operations of the client: each call validates
// its input, talks to the backend and dispatches the lifecycle actions
// (started, then fulfilled or rejected) to the store. Results and errors are
// also returned to the caller.
package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/backend"
	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/store"
)

// Runner binds the store to a backend and the persisted KV store.
type Runner struct {
	st  *store.Store
	api backend.Client
	kvs kv.Store
	log *zap.Logger
}

func New(st *store.Store, api backend.Client, kvs kv.Store, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{st: st, api: api, kvs: kvs, log: log.Named("ops")}
}

// Store returns the store the runner dispatches to.
func (r *Runner) Store() *store.Store { return r.st }

// dispatch applies a even when ctx is already done: settled results are
// never dropped.
func (r *Runner) dispatch(ctx context.Context, a store.Action) {
	if _, err := r.st.Dispatch(context.WithoutCancel(ctx), a); err != nil {
		r.log.Warn("dispatch", zap.String("type", a.Type()), zap.Error(err))
	}
}

// settle runs call between OpStarted and either done(result) or OpFailed.
func settle[T any](ctx context.Context, r *Runner, op store.Op, call func(context.Context) (T, error), done func(T) store.Action) (T, error) {
	r.dispatch(ctx, store.OpStarted{Op: op})
	v, err := call(ctx)
	if err != nil {
		r.log.Debug("operation failed", zap.String("op", string(op)), zap.Error(err))
		r.dispatch(ctx, store.OpFailed{Op: op, Err: errs.Message(err)})
		var zero T
		return zero, err
	}
	r.dispatch(ctx, done(v))
	return v, nil
}

func required(name, v string) error {
	if v == "" {
		return errs.Validation(name + " is required")
	}
	return nil
}
