package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(zaptest.NewLogger(t), store.Initial())
	t.Cleanup(st.Close)
	return st
}

func TestCodec_Session(t *testing.T) {
	t.Parallel()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &model.User{ID: "u1", Email: "a@b.com", Name: "Ann", Role: model.RoleStudent}

	raw, err := EncodeSession(model.Session{UserID: "u1", Token: "t1", ExpiresAt: exp}, u)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sess, got, err := DecodeSession(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.Token != "t1" || !sess.ExpiresAt.Equal(exp) || got == nil || got.Name != "Ann" || got.Role != model.RoleStudent {
		t.Fatalf("session=%+v user=%+v", sess, got)
	}
}

func TestCodec_CartKeepsCents(t *testing.T) {
	t.Parallel()
	raw, err := EncodeCart([]model.Course{{ID: "c1", Title: "Go", Price: 1999}, {ID: "c2"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	items, err := DecodeCart(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].Price != 1999 || items[1].Price != 0 {
		t.Fatalf("items=%+v", items)
	}
}

func TestCodec_RejectsOtherVersion(t *testing.T) {
	t.Parallel()
	_, err := DecodeCart(`{"v":99,"data":{"items":[]}}`)
	var ve ErrVersion
	if !errors.As(err, &ve) || ve.Got != 99 {
		t.Fatalf("want ErrVersion, got %v", err)
	}
	if _, _, err := DecodeSession("garbage"); err == nil {
		t.Fatalf("garbage must not decode")
	}
}

func TestSaveRestore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kvs := kv.NewMemStore()

	src := newStore(t)
	_, _ = src.Dispatch(ctx, store.LoggedIn{Op: store.OpLogin, Result: model.AuthResult{
		User:    model.User{ID: "u1", Name: "Ann"},
		Session: model.Session{UserID: "u1", Token: "t1"},
	}})
	_, _ = src.Dispatch(ctx, store.CartAdded{Course: model.Course{ID: "c1", Price: 500}})
	_, _ = src.Dispatch(ctx, store.CartAdded{Course: model.Course{ID: "c2", Price: 250}})
	if err := Save(ctx, kvs, src.State()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := newStore(t)
	_, _ = dst.Dispatch(ctx, store.SessionRestored{Session: model.Session{Token: "t1"}})
	if err := Restore(ctx, kvs, dst, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	s := dst.State()
	if s.Auth.User == nil || s.Auth.User.Name != "Ann" {
		t.Fatalf("user not restored: %+v", s.Auth)
	}
	if len(s.Cart.Items) != 2 || s.Cart.Total != 750 {
		t.Fatalf("cart=%+v", s.Cart)
	}
}

func TestRestore_NoSessionKeepsProfileOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kvs := kv.NewMemStore()
	raw, _ := EncodeSession(model.Session{Token: "t1"}, &model.User{ID: "u1"})
	_ = kvs.Set(ctx, SessionKey, raw)

	dst := newStore(t)
	if err := Restore(ctx, kvs, dst, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s := dst.State(); s.Auth.User != nil || s.Auth.IsAuthenticated {
		t.Fatalf("profile must not authenticate on its own: %+v", s.Auth)
	}
}

func TestRestore_CorruptSnapshotsAreSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kvs := kv.NewMemStore()
	_ = kvs.Set(ctx, SessionKey, "{")
	_ = kvs.Set(ctx, CartKey, "{")

	dst := newStore(t)
	if err := Restore(ctx, kvs, dst, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s := dst.State(); len(s.Cart.Items) != 0 {
		t.Fatalf("cart=%+v", s.Cart)
	}
}

func TestSave_SignedOutRemovesSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kvs := kv.NewMemStore()
	_ = kvs.Set(ctx, SessionKey, "stale")

	if err := Save(ctx, kvs, store.Initial()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := kvs.Get(ctx, SessionKey); ok {
		t.Fatalf("session snapshot must be removed")
	}
	if _, ok, _ := kvs.Get(ctx, CartKey); !ok {
		t.Fatalf("cart snapshot must be written")
	}
}

func TestSaver_WritesOnChange(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	kvs := kv.NewMemStore()
	st := newStore(t)

	sv := NewSaver(st, kvs, zaptest.NewLogger(t))
	done := make(chan struct{})
	go func() { sv.Run(ctx); close(done) }()

	_, _ = st.Dispatch(ctx, store.CartAdded{Course: model.Course{ID: "c1", Price: 300}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		raw, ok, _ := kvs.Get(ctx, CartKey)
		if ok {
			items, err := DecodeCart(raw)
			if err == nil && len(items) == 1 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("saver did not write the cart")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("saver did not stop")
	}
}

func TestSaver_Flush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kvs := kv.NewMemStore()
	st := newStore(t)
	_, _ = st.Dispatch(ctx, store.CartAdded{Course: model.Course{ID: "c1", Price: 300}})

	sv := NewSaver(st, kvs, nil)
	if err := sv.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	raw, ok, _ := kvs.Get(ctx, CartKey)
	if !ok {
		t.Fatalf("cart not flushed")
	}
	items, _ := DecodeCart(raw)
	if len(items) != 1 || items[0].Price != 300 {
		t.Fatalf("items=%+v", items)
	}
}
