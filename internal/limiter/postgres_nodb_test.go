package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	qrErr        error
	blockedUntil time.Time
	failsRet     int

	lastArgs    []any
	lastExecSQL string
	execErr     error
}

func (f *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.lastExecSQL = sql
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastArgs = args
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*time.Time)) = f.blockedUntil
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*int)) = f.failsRet
			return nil
		}}
	default:
		return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
	}
}

var testPolicy = Policy{Window: 5 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute}

func TestPG_Allow(t *testing.T) {
	t.Parallel()

	fp := &fakePool{qrErr: pgx.ErrNoRows}
	l := NewPG(fp, testPolicy)
	ok, dur, err := l.Allow(context.Background(), " A@B.com ", []byte("h"))
	if err != nil || !ok || dur != 0 {
		t.Fatalf("no row: ok=%v dur=%v err=%v", ok, dur, err)
	}
	if fp.lastArgs[0] != "a@b.com" {
		t.Fatalf("email must be normalized, got %v", fp.lastArgs[0])
	}

	fp = &fakePool{blockedUntil: time.Now().Add(10 * time.Minute)}
	ok, dur, err = NewPG(fp, testPolicy).Allow(context.Background(), "a@b.com", []byte("h"))
	if err != nil || ok || dur <= 0 {
		t.Fatalf("blocked: ok=%v dur=%v err=%v", ok, dur, err)
	}

	fp = &fakePool{blockedUntil: time.Now().Add(-time.Minute)}
	ok, _, err = NewPG(fp, testPolicy).Allow(context.Background(), "a@b.com", []byte("h"))
	if err != nil || !ok {
		t.Fatalf("expired block: ok=%v err=%v", ok, err)
	}

	fp = &fakePool{qrErr: errors.New("db boom")}
	if ok, _, err := NewPG(fp, testPolicy).Allow(context.Background(), "a@b.com", nil); err == nil || ok {
		t.Fatalf("db error: ok=%v err=%v", ok, err)
	}
}

func TestPG_Success(t *testing.T) {
	t.Parallel()

	fp := &fakePool{}
	if err := NewPG(fp, testPolicy).Success(context.Background(), "a@b.com", []byte("h")); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if !strings.Contains(fp.lastExecSQL, "DELETE FROM login_limiter") {
		t.Fatalf("unexpected exec: %s", fp.lastExecSQL)
	}

	fp = &fakePool{execErr: errors.New("exec fail")}
	if err := NewPG(fp, testPolicy).Success(context.Background(), "a@b.com", nil); err == nil {
		t.Fatalf("want exec error")
	}
}

func TestPG_Failure(t *testing.T) {
	t.Parallel()

	fp := &fakePool{failsRet: 2}
	blocked, dur, err := NewPG(fp, testPolicy).Failure(context.Background(), "a@b.com", []byte("h"))
	if err != nil || blocked || dur != 0 {
		t.Fatalf("below threshold: blocked=%v dur=%v err=%v", blocked, dur, err)
	}
	if fp.lastExecSQL != "" {
		t.Fatalf("no block update expected, got %s", fp.lastExecSQL)
	}

	fp = &fakePool{failsRet: 5}
	blocked, dur, err = NewPG(fp, testPolicy).Failure(context.Background(), "a@b.com", []byte("h"))
	if err != nil || !blocked || dur != 10*time.Minute {
		t.Fatalf("threshold: blocked=%v dur=%v err=%v", blocked, dur, err)
	}
	if !strings.Contains(fp.lastExecSQL, "UPDATE login_limiter SET blocked_until") {
		t.Fatalf("must set blocked_until, exec=%s", fp.lastExecSQL)
	}

	fp = &fakePool{qrErr: errors.New("query error")}
	if _, _, err := NewPG(fp, testPolicy).Failure(context.Background(), "a@b.com", nil); err == nil {
		t.Fatalf("want error from RETURNING")
	}
}

func TestHashIP_Determinism(t *testing.T) {
	t.Parallel()

	a := HashIP("1.2.3.4:123")
	b := HashIP("1.2.3.4:123")
	c := HashIP("5.6.7.8:321")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
}
