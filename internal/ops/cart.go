package ops

import (
	"context"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

// AddToCart adds c unless it is already in the cart.
func (r *Runner) AddToCart(ctx context.Context, c model.Course) error {
	if c.ID == "" {
		return errs.Validation("course id is required")
	}
	r.dispatch(ctx, store.CartAdded{Course: c})
	return nil
}

// RemoveFromCart drops the course with courseID, if present.
func (r *Runner) RemoveFromCart(ctx context.Context, courseID string) {
	r.dispatch(ctx, store.CartRemoved{CourseID: courseID})
}

// ClearCart empties the cart.
func (r *Runner) ClearCart(ctx context.Context) {
	r.dispatch(ctx, store.CartCleared{})
}
