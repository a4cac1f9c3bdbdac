// Package session restores the in-memory auth state from the persisted token
// at startup.
package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

// TokenKey is the KV key holding the session token.
const TokenKey = "authToken"

// Inspect reads subject and expiry from a JWT without verifying it. Tokens
// that are not JWTs yield an empty session apart from the token itself.
func Inspect(token string) model.Session {
	sess := model.Session{Token: token}
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(token, &rc); err != nil {
		return sess
	}
	sess.UserID = rc.Subject
	if rc.ExpiresAt != nil {
		sess.ExpiresAt = rc.ExpiresAt.Time
	}
	return sess
}

// Bootstrap performs the single startup read of TokenKey and dispatches the
// result. A missing token, an unreadable store or an expired token leave the
// state unauthenticated; an expired token is also removed. It never calls the
// backend.
func Bootstrap(ctx context.Context, st *store.Store, kvs kv.Store, log *zap.Logger) (model.Session, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("session")

	tok, ok, err := kvs.Get(ctx, TokenKey)
	switch {
	case err != nil:
		log.Warn("read persisted token", zap.Error(err))
		tok = ""
	case !ok:
		tok = ""
	}

	sess := model.Session{}
	if tok != "" {
		sess = Inspect(tok)
		if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
			log.Info("persisted token expired", zap.Time("expires_at", sess.ExpiresAt))
			sess = model.Session{}
			if err := kvs.Remove(ctx, TokenKey); err != nil {
				log.Warn("remove expired token", zap.Error(err))
			}
		}
	}

	if _, err := st.Dispatch(ctx, store.SessionRestored{Session: sess}); err != nil {
		log.Warn("dispatch restored session", zap.Error(err))
		return model.Session{}, false
	}
	log.Debug("bootstrap done", zap.Bool("authenticated", sess.Token != ""))
	return sess, sess.Token != ""
}
