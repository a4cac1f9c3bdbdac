package ops

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/session"
	"github.com/and161185/learnkeeper/internal/store"
)

// MinPasswordLen is enforced on sign-up and password change.
const MinPasswordLen = 6

// ValidateSignup checks the sign-up form before Register is called.
func ValidateSignup(email, password, confirm, name string) error {
	switch {
	case strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" || confirm == "":
		return errs.Validation("please fill in all fields")
	case password != confirm:
		return errs.Validation("passwords do not match")
	case len(password) < MinPasswordLen:
		return errs.Validation("password must be at least 6 characters")
	}
	return nil
}

// Login signs in and persists the session token.
func (r *Runner) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	email = strings.TrimSpace(email)
	if err := errors.Join(required("email", email), required("password", password)); err != nil {
		return model.AuthResult{}, err
	}
	return settle(ctx, r, store.OpLogin,
		func(ctx context.Context) (model.AuthResult, error) {
			res, err := r.api.SignIn(ctx, email, password)
			if err != nil {
				return res, err
			}
			r.saveToken(ctx, res.Session.Token)
			return res, nil
		},
		func(res model.AuthResult) store.Action { return store.LoggedIn{Op: store.OpLogin, Result: res} })
}

// Register creates an account, signs in and persists the session token.
func (r *Runner) Register(ctx context.Context, email, password, name string) (model.AuthResult, error) {
	email, name = strings.TrimSpace(email), strings.TrimSpace(name)
	if err := errors.Join(required("email", email), required("password", password), required("name", name)); err != nil {
		return model.AuthResult{}, err
	}
	return settle(ctx, r, store.OpRegister,
		func(ctx context.Context) (model.AuthResult, error) {
			res, err := r.api.SignUp(ctx, email, password, name)
			if err != nil {
				return res, err
			}
			r.saveToken(ctx, res.Session.Token)
			return res, nil
		},
		func(res model.AuthResult) store.Action { return store.LoggedIn{Op: store.OpRegister, Result: res} })
}

func (r *Runner) saveToken(ctx context.Context, tok string) {
	if tok == "" {
		return
	}
	if err := r.kvs.Set(ctx, session.TokenKey, tok); err != nil {
		r.log.Warn("persist token", zap.Error(err))
	}
}

// SignOutTimeout caps the best-effort remote sign-out on logout.
const SignOutTimeout = 3 * time.Second

// dropToken removes the persisted token even when ctx is already done.
func (r *Runner) dropToken(ctx context.Context) {
	if err := r.kvs.Remove(context.WithoutCancel(ctx), session.TokenKey); err != nil {
		r.log.Warn("remove persisted token", zap.Error(err))
	}
}

// Logout always succeeds locally. The persisted token goes first, then the
// remote sign-out is tried, then the in-memory session is cleared.
func (r *Runner) Logout(ctx context.Context) {
	r.dispatch(ctx, store.OpStarted{Op: store.OpLogout})
	hadToken := r.st.Token() != ""
	r.dropToken(ctx)
	if hadToken {
		sctx, cancel := context.WithTimeout(ctx, SignOutTimeout)
		if err := r.api.SignOut(sctx); err != nil {
			r.log.Info("remote sign-out", zap.Error(err))
		}
		cancel()
	}
	r.dispatch(ctx, store.LoggedOut{})
}

// Revalidate asks the backend whether the current token is still good and
// refreshes the user. An unauthorized answer drops the session; other
// failures keep it.
func (r *Runner) Revalidate(ctx context.Context) (model.User, error) {
	if r.st.Token() == "" {
		return model.User{}, errs.ErrUnauthorized
	}
	u, err := settle(ctx, r, store.OpRevalidate, r.api.GetUser,
		func(u model.User) store.Action { return store.UserSet{Op: store.OpRevalidate, User: u} })
	if errors.Is(err, errs.ErrUnauthorized) {
		r.dropToken(ctx)
		r.dispatch(ctx, store.LoggedOut{})
	}
	return u, err
}

// UpdateProfile changes the name and/or password of the signed-in user.
func (r *Runner) UpdateProfile(ctx context.Context, upd model.UserUpdate) (model.User, error) {
	if upd.Name == nil && upd.Password == nil {
		return model.User{}, errs.Validation("nothing to update")
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return model.User{}, errs.Validation("name must not be empty")
		}
		upd.Name = &n
	}
	if upd.Password != nil && len(*upd.Password) < MinPasswordLen {
		return model.User{}, errs.Validation("password must be at least 6 characters")
	}
	return settle(ctx, r, store.OpUpdateProfile,
		func(ctx context.Context) (model.User, error) { return r.api.UpdateUser(ctx, upd) },
		func(u model.User) store.Action { return store.UserSet{Op: store.OpUpdateProfile, User: u} })
}

// ForgotPassword requests a reset link for email.
func (r *Runner) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := required("email", email); err != nil {
		return err
	}
	_, err := settle(ctx, r, store.OpResetPassword,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.api.ResetPassword(ctx, email) },
		func(struct{}) store.Action { return store.Settled{Op: store.OpResetPassword} })
	return err
}

// SetUser replaces the user locally.
func (r *Runner) SetUser(ctx context.Context, u model.User) {
	r.dispatch(ctx, store.UserSet{User: u})
}

// ClearError resets the error of one slice: "auth", "courses" or "progress".
func (r *Runner) ClearError(ctx context.Context, slice string) {
	r.dispatch(ctx, store.ErrorCleared{Slice: slice})
}
