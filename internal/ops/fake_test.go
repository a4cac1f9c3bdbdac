package ops

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/learnkeeper/internal/backend"
	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

type fakeAPI struct {
	mu sync.Mutex

	users     map[string]string // email -> password
	result    model.AuthResult
	signInErr    error
	signOuts     int
	signOutBlock bool // SignOut waits for its ctx to end

	getUser    model.User
	getUserErr error
	updated    model.UserUpdate
	resetFor   []string

	courses  map[string]model.Course
	gates    map[string]chan struct{} // GetCourse waits on these
	listErr  error
	lastList model.CourseFilter
	lessons  []model.Lesson

	enrollErr map[string]error // by course id
	enrolled  []string
	rated     map[string]int

	progress []model.Progress
	marks    int
	quizErr  error
	calls    int
}

var _ backend.Client = (*fakeAPI)(nil)

func (f *fakeAPI) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeAPI) SignIn(_ context.Context, email, password string) (model.AuthResult, error) {
	f.hit()
	if f.signInErr != nil {
		return model.AuthResult{}, f.signInErr
	}
	if pw, ok := f.users[email]; !ok || pw != password {
		return model.AuthResult{}, errs.WithMessage(errs.ErrUnauthorized, "Invalid login credentials")
	}
	return f.result, nil
}

func (f *fakeAPI) SignUp(_ context.Context, email, _, name string) (model.AuthResult, error) {
	f.hit()
	if _, ok := f.users[email]; ok {
		return model.AuthResult{}, errs.WithMessage(errs.ErrAlreadyExists, "User already registered")
	}
	res := f.result
	res.User.Email, res.User.Name = email, name
	return res, nil
}

func (f *fakeAPI) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	block := f.signOutBlock
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeAPI) GetSession(context.Context) (model.Session, error) {
	f.hit()
	return f.result.Session, nil
}

func (f *fakeAPI) GetUser(context.Context) (model.User, error) {
	f.hit()
	return f.getUser, f.getUserErr
}

func (f *fakeAPI) ResetPassword(_ context.Context, email string) error {
	f.hit()
	f.resetFor = append(f.resetFor, email)
	return nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, upd model.UserUpdate) (model.User, error) {
	f.hit()
	f.updated = upd
	u := f.getUser
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	return u, nil
}

func (f *fakeAPI) ListCourses(_ context.Context, flt model.CourseFilter) ([]model.Course, error) {
	f.hit()
	f.lastList = flt
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeAPI) GetCourse(ctx context.Context, id string) (model.Course, error) {
	f.hit()
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.Course{}, ctx.Err()
		}
	}
	c, ok := f.courses[id]
	if !ok {
		return model.Course{}, errs.ErrNotFound
	}
	return c, nil
}

func (f *fakeAPI) ListLessons(context.Context, string) ([]model.Lesson, error) {
	f.hit()
	return f.lessons, nil
}

func (f *fakeAPI) ListEnrolled(context.Context, string) ([]model.Course, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Course{}
	for _, id := range f.enrolled {
		out = append(out, f.courses[id])
	}
	return out, nil
}

func (f *fakeAPI) Enroll(_ context.Context, _, courseID string) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enrollErr[courseID]; err != nil {
		return err
	}
	f.enrolled = append(f.enrolled, courseID)
	return nil
}

func (f *fakeAPI) IsEnrolled(_ context.Context, _, courseID string) (bool, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.enrolled {
		if id == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAPI) RateCourse(_ context.Context, _, courseID string, rating int) error {
	f.hit()
	if f.rated == nil {
		f.rated = map[string]int{}
	}
	f.rated[courseID] = rating
	return nil
}

func (f *fakeAPI) ListProgress(context.Context, string) ([]model.Progress, error) {
	f.hit()
	return f.progress, nil
}

func (f *fakeAPI) MarkLessonComplete(context.Context, string, string, string) error {
	f.hit()
	f.mu.Lock()
	f.marks++
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) SubmitQuizScore(context.Context, string, string, string, int) error {
	f.hit()
	return f.quizErr
}

func newRunner(t *testing.T, api *fakeAPI) (*Runner, kv.Store) {
	t.Helper()
	return newRunnerKV(t, api, kv.NewMemStore())
}

func newRunnerKV(t *testing.T, api *fakeAPI, kvs kv.Store) (*Runner, kv.Store) {
	t.Helper()
	st := store.New(zaptest.NewLogger(t), store.Initial())
	t.Cleanup(st.Close)
	return New(st, api, kvs, zaptest.NewLogger(t)), kvs
}

// brokenRemoveKV fails every Remove.
type brokenRemoveKV struct{ *kv.MemStore }

func (brokenRemoveKV) Remove(context.Context, string) error { return errors.New("disk full") }
