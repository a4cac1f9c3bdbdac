package persist

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/store"
)

// Save writes the durable subset of s. A signed-out state removes the
// session snapshot.
func Save(ctx context.Context, kvs kv.Store, s store.State) error {
	var errsOut []error
	if sess, ok := s.Session(); ok {
		raw, err := EncodeSession(sess, s.Auth.User)
		if err == nil {
			err = kvs.Set(ctx, SessionKey, raw)
		}
		errsOut = append(errsOut, err)
	} else {
		errsOut = append(errsOut, kvs.Remove(ctx, SessionKey))
	}

	raw, err := EncodeCart(s.Cart.Items)
	if err == nil {
		err = kvs.Set(ctx, CartKey, raw)
	}
	errsOut = append(errsOut, err)
	return errors.Join(errsOut...)
}

// Restore reads both snapshots and dispatches one Rehydrated action. It must
// run after the session bootstrap: the stored profile is only applied when
// its token matches the restored one. Unreadable snapshots are logged and
// skipped.
func Restore(ctx context.Context, kvs kv.Store, st *store.Store, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("persist")

	var act store.Rehydrated
	if raw, ok, err := kvs.Get(ctx, SessionKey); err != nil {
		log.Warn("read session snapshot", zap.Error(err))
	} else if ok {
		sess, u, err := DecodeSession(raw)
		if err != nil {
			log.Warn("decode session snapshot", zap.Error(err))
		} else {
			act.Session, act.User = &sess, u
		}
	}

	if raw, ok, err := kvs.Get(ctx, CartKey); err != nil {
		log.Warn("read cart snapshot", zap.Error(err))
	} else if ok {
		items, err := DecodeCart(raw)
		if err != nil {
			log.Warn("decode cart snapshot", zap.Error(err))
		} else {
			act.Cart = items
		}
	}

	_, err := st.Dispatch(ctx, act)
	return err
}

// Saver writes a snapshot whenever the persisted subset of the state changes.
type Saver struct {
	st  *store.Store
	kvs kv.Store
	log *zap.Logger

	mu   sync.Mutex
	last [2]string // session, cart as last written
}

func NewSaver(st *store.Store, kvs kv.Store, log *zap.Logger) *Saver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saver{st: st, kvs: kvs, log: log.Named("persist")}
}

// Run saves on every state change until ctx ends or the store closes.
func (s *Saver) Run(ctx context.Context) {
	ch, cancel := s.st.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := s.save(ctx, snap); err != nil {
				s.log.Warn("save snapshot", zap.Error(err))
			}
		}
	}
}

// Flush writes the current state unconditionally.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.last = [2]string{}
	s.mu.Unlock()
	return s.save(ctx, s.st.State())
}

func (s *Saver) save(ctx context.Context, snap store.State) error {
	var key [2]string
	if sess, ok := snap.Session(); ok {
		raw, err := EncodeSession(sess, snap.Auth.User)
		if err != nil {
			return err
		}
		key[0] = raw
	}
	raw, err := EncodeCart(snap.Cart.Items)
	if err != nil {
		return err
	}
	key[1] = raw

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.last {
		return nil
	}
	if err := Save(ctx, s.kvs, snap); err != nil {
		return err
	}
	s.last = key
	return nil
}
