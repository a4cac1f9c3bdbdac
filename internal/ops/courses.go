package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

func (r *Runner) listCourses(ctx context.Context, f model.CourseFilter) ([]model.Course, error) {
	return settle(ctx, r, store.OpFetchCourses,
		func(ctx context.Context) ([]model.Course, error) { return r.api.ListCourses(ctx, f) },
		func(cs []model.Course) store.Action { return store.CoursesLoaded{Courses: cs} })
}

// FetchAll loads the whole catalog, newest first.
func (r *Runner) FetchAll(ctx context.Context) ([]model.Course, error) {
	return r.listCourses(ctx, model.CourseFilter{})
}

// FetchByCategory loads the catalog restricted to one category.
func (r *Runner) FetchByCategory(ctx context.Context, category string) ([]model.Course, error) {
	category = strings.TrimSpace(category)
	if err := required("category", category); err != nil {
		return nil, err
	}
	return r.listCourses(ctx, model.CourseFilter{Category: category})
}

// Search matches query against titles and descriptions, best rated first.
func (r *Runner) Search(ctx context.Context, query string) ([]model.Course, error) {
	query = strings.TrimSpace(query)
	if err := required("query", query); err != nil {
		return nil, err
	}
	return r.listCourses(ctx, model.CourseFilter{Query: query})
}

// FeaturedLimit caps the featured listing.
const FeaturedLimit = 10

// FetchFeatured loads the top rated courses.
func (r *Runner) FetchFeatured(ctx context.Context) ([]model.Course, error) {
	return r.listCourses(ctx, model.CourseFilter{Featured: true, Limit: FeaturedLimit})
}

// FetchEnrolled loads the courses userID is enrolled in.
func (r *Runner) FetchEnrolled(ctx context.Context, userID string) ([]model.Course, error) {
	if err := required("user id", userID); err != nil {
		return nil, err
	}
	return settle(ctx, r, store.OpFetchEnrolled,
		func(ctx context.Context) ([]model.Course, error) { return r.api.ListEnrolled(ctx, userID) },
		func(cs []model.Course) store.Action { return store.EnrolledLoaded{Courses: cs} })
}

// FetchByID loads one course and makes it current. Concurrent calls are not
// fenced: the one that settles last wins.
func (r *Runner) FetchByID(ctx context.Context, courseID string) (model.Course, error) {
	if err := required("course id", courseID); err != nil {
		return model.Course{}, err
	}
	return settle(ctx, r, store.OpFetchCourse,
		func(ctx context.Context) (model.Course, error) { return r.api.GetCourse(ctx, courseID) },
		func(c model.Course) store.Action { return store.CourseLoaded{Course: c} })
}

// SetCurrentCourse selects c locally; nil clears the selection.
func (r *Runner) SetCurrentCourse(ctx context.Context, c *model.Course) {
	r.dispatch(ctx, store.CurrentCourseSet{Course: c})
}

// FetchLessons loads the lessons of a course in display order.
func (r *Runner) FetchLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	if err := required("course id", courseID); err != nil {
		return nil, err
	}
	return settle(ctx, r, store.OpFetchLessons,
		func(ctx context.Context) ([]model.Lesson, error) { return r.api.ListLessons(ctx, courseID) },
		func(ls []model.Lesson) store.Action { return store.LessonsLoaded{CourseID: courseID, Lessons: ls} })
}

// Enroll is a remote write only. EnrolledCourses is not touched; callers
// refetch with FetchEnrolled when they need the new listing.
func (r *Runner) Enroll(ctx context.Context, userID, courseID string) error {
	if err := errors.Join(required("user id", userID), required("course id", courseID)); err != nil {
		return err
	}
	_, err := settle(ctx, r, store.OpEnroll,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.api.Enroll(ctx, userID, courseID) },
		func(struct{}) store.Action { return store.Settled{Op: store.OpEnroll} })
	return err
}

// IsEnrolled asks the backend directly; the state is not touched.
func (r *Runner) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	if err := errors.Join(required("user id", userID), required("course id", courseID)); err != nil {
		return false, err
	}
	return r.api.IsEnrolled(ctx, userID, courseID)
}

// Rate records a 1..5 star rating.
func (r *Runner) Rate(ctx context.Context, userID, courseID string, rating int) error {
	if err := errors.Join(required("user id", userID), required("course id", courseID)); err != nil {
		return err
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return errs.Validation(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	_, err := settle(ctx, r, store.OpRate,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.api.RateCourse(ctx, userID, courseID, rating)
		},
		func(struct{}) store.Action { return store.Settled{Op: store.OpRate} })
	return err
}

// Checkout enrolls userID in every cart item, in cart order, and clears the
// cart once all of them succeeded. It stops at the first failure and returns
// the ids enrolled so far; the cart is left as is. Being enrolled already
// counts as success.
func (r *Runner) Checkout(ctx context.Context, userID string) ([]string, error) {
	if err := required("user id", userID); err != nil {
		return nil, err
	}
	items := r.st.State().Cart.Items
	if len(items) == 0 {
		return nil, errs.Validation("cart is empty")
	}

	r.dispatch(ctx, store.OpStarted{Op: store.OpCheckout})
	done := make([]string, 0, len(items))
	for _, c := range items {
		err := r.api.Enroll(ctx, userID, c.ID)
		if err != nil && !errors.Is(err, errs.ErrAlreadyExists) {
			r.dispatch(ctx, store.OpFailed{Op: store.OpCheckout, Err: errs.Message(err)})
			return done, fmt.Errorf("enroll %s: %w", c.ID, err)
		}
		done = append(done, c.ID)
	}
	r.dispatch(ctx, store.CartCleared{})
	r.dispatch(ctx, store.Settled{Op: store.OpCheckout})
	return done, nil
}
