package store

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/errs"
)

type envelope struct {
	action Action
	reply  chan State
}

// Store owns the application state. A single goroutine applies actions in
// arrival order, each to completion, and publishes an immutable snapshot
// after every action.
type Store struct {
	log   *zap.Logger
	inbox chan envelope
	quit  chan struct{}
	done  chan struct{}

	snap atomic.Pointer[State]

	mu   sync.Mutex
	subs map[int]chan State
	next int

	closeOnce sync.Once
}

// New starts a store with the given initial state.
func New(log *zap.Logger, initial State) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		log:   log.Named("store"),
		inbox: make(chan envelope, 64),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		subs:  map[int]chan State{},
	}
	first := initial.Clone()
	s.snap.Store(&first)
	go s.loop(initial.Clone())
	return s
}

func (s *Store) loop(cur State) {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case env := <-s.inbox:
			apply(&cur, env.action)
			s.log.Debug("action", zap.String("type", env.action.Type()))

			pub := cur.Clone()
			s.snap.Store(&pub)
			s.broadcast(&cur)
			env.reply <- cur.Clone()
		}
	}
}

// Dispatch enqueues a and waits until it has been applied. It returns the
// state right after a. The action is applied even if ctx ends while waiting
// for the reply, as long as it was accepted.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	env := envelope{action: a, reply: make(chan State, 1)}
	select {
	case s.inbox <- env:
	case <-s.quit:
		return State{}, errs.ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-env.reply:
		return st, nil
	case <-s.done:
		// loop may have applied it right before quitting
		select {
		case st := <-env.reply:
			return st, nil
		default:
			return State{}, errs.ErrClosed
		}
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// State returns the latest snapshot. It never blocks and the result shares
// no memory with the store.
func (s *Store) State() State {
	return s.snap.Load().Clone()
}

// Token returns the current session token, or "" when signed out.
func (s *Store) Token() string {
	return s.snap.Load().Auth.Token
}

// Subscribe returns a channel receiving snapshots after each action. Slow
// readers only see the latest snapshot; intermediate ones are dropped.
// The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) broadcast(cur *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		st := cur.Clone()
		select {
		case ch <- st:
			continue
		default:
		}
		// replace the stale snapshot with the fresh one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// Close stops the store goroutine. Pending and later dispatches fail with
// errs.ErrClosed.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}
