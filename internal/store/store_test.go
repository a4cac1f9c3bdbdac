package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(zaptest.NewLogger(t), Initial())
	t.Cleanup(s.Close)
	return s
}

func TestStore_DispatchReturnsAppliedState(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Dispatch(ctx, CartAdded{Course: model.Course{ID: "c1", Price: 500}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if st.Cart.Total != 500 {
		t.Fatalf("returned state total=%d", st.Cart.Total)
	}
	if got := s.State().Cart.Total; got != 500 {
		t.Fatalf("snapshot total=%d", got)
	}
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Dispatch(ctx, LessonCompleted{UserID: "u1", CourseID: "c1", LessonID: "l1"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	snap := s.State()
	p := snap.Progress.UserProgress["c1"]
	p.CompletedLessons[0] = "mutated"
	snap.Progress.UserProgress["c2"] = model.Progress{}

	fresh := s.State()
	if fresh.Progress.UserProgress["c1"].CompletedLessons[0] != "l1" {
		t.Fatalf("snapshot aliasing store memory")
	}
	if _, ok := fresh.Progress.UserProgress["c2"]; ok {
		t.Fatalf("snapshot map aliasing store memory")
	}
}

func TestStore_ConcurrentDispatchesApplyWhole(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A'+i%26)) + string(rune('a'+i/26))
			_, _ = s.Dispatch(ctx, CartAdded{Course: model.Course{ID: id, Price: 10}})
		}(i)
	}
	wg.Wait()

	st := s.State()
	if len(st.Cart.Items) != n || st.Cart.Total != n*10 {
		t.Fatalf("items=%d total=%d", len(st.Cart.Items), st.Cart.Total)
	}
}

func TestStore_TokenFollowsAuth(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if s.Token() != "" {
		t.Fatalf("fresh store must have no token")
	}
	_, _ = s.Dispatch(ctx, SessionRestored{Session: model.Session{Token: "t1"}})
	if s.Token() != "t1" {
		t.Fatalf("token=%q", s.Token())
	}
	_, _ = s.Dispatch(ctx, LoggedOut{})
	if s.Token() != "" {
		t.Fatalf("token after logout=%q", s.Token())
	}
}

func TestStore_SubscribeSeesLatest(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		_, _ = s.Dispatch(ctx, CartAdded{Course: model.Course{ID: string(rune('a' + i)), Price: 1}})
	}

	select {
	case st := <-ch:
		if st.Cart.Total != 5 {
			t.Fatalf("subscriber must see the latest snapshot, total=%d", st.Cart.Total)
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot delivered")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel must be closed after cancel")
	}
	cancel() // idempotent
}

func TestStore_ClosedRejectsDispatch(t *testing.T) {
	t.Parallel()
	s := New(nil, Initial())
	s.Close()
	s.Close()

	if _, err := s.Dispatch(context.Background(), CartCleared{}); !errors.Is(err, errs.ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}

func TestStore_DispatchHonoursContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the inbox is buffered so the send may still win; either outcome is valid
	if _, err := s.Dispatch(ctx, CartCleared{}); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
}
