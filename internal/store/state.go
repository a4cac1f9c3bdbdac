// Package store holds the client-side application state: the auth, course,
// progress and cart slices. State is owned by a single goroutine and changes
// only through the closed set of actions defined in this package.
package store

import (
	"time"

	"github.com/and161185/learnkeeper/internal/model"
)

// Status is the lifecycle of one async operation.
type Status int

const (
	Idle Status = iota
	Pending
	Fulfilled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "idle"
	}
}

// AuthState is the auth slice.
type AuthState struct {
	User            *model.User
	Token           string
	UserID          string    // known from the token even before User is loaded
	ExpiresAt       time.Time // zero when unknown
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	Ops             map[Op]Status
}

// CourseState is the course catalog slice.
type CourseState struct {
	Courses         []model.Course
	EnrolledCourses []model.Course
	CurrentCourse   *model.Course
	Lessons         map[string][]model.Lesson // by course id
	IsLoading       bool
	Error           string
	Ops             map[Op]Status
}

// ProgressState is the enrollment/progress slice, keyed by course id.
type ProgressState struct {
	UserProgress map[string]model.Progress
	IsLoading    bool
	Error        string
	Ops          map[Op]Status
}

// CartState is the local-only cart. Total is maintained incrementally and
// always equals the sum of item prices.
type CartState struct {
	Items []model.Course
	Total model.Money
}

// State is the whole store.
type State struct {
	Auth     AuthState
	Courses  CourseState
	Progress ProgressState
	Cart     CartState
}

// Initial returns the empty state.
func Initial() State {
	return State{
		Auth:     AuthState{Ops: map[Op]Status{}},
		Courses:  CourseState{Courses: []model.Course{}, EnrolledCourses: []model.Course{}, Lessons: map[string][]model.Lesson{}, Ops: map[Op]Status{}},
		Progress: ProgressState{UserProgress: map[string]model.Progress{}, Ops: map[Op]Status{}},
		Cart:     CartState{Items: []model.Course{}},
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s State) Clone() State {
	out := s

	if s.Auth.User != nil {
		u := *s.Auth.User
		out.Auth.User = &u
	}
	out.Auth.Ops = cloneOps(s.Auth.Ops)

	out.Courses.Courses = cloneCourses(s.Courses.Courses)
	out.Courses.EnrolledCourses = cloneCourses(s.Courses.EnrolledCourses)
	if s.Courses.CurrentCourse != nil {
		c := cloneCourse(*s.Courses.CurrentCourse)
		out.Courses.CurrentCourse = &c
	}
	out.Courses.Lessons = make(map[string][]model.Lesson, len(s.Courses.Lessons))
	for k, v := range s.Courses.Lessons {
		out.Courses.Lessons[k] = append([]model.Lesson(nil), v...)
	}
	out.Courses.Ops = cloneOps(s.Courses.Ops)

	out.Progress.UserProgress = make(map[string]model.Progress, len(s.Progress.UserProgress))
	for k, v := range s.Progress.UserProgress {
		out.Progress.UserProgress[k] = v.Clone()
	}
	out.Progress.Ops = cloneOps(s.Progress.Ops)

	out.Cart.Items = cloneCourses(s.Cart.Items)
	return out
}

// Session returns the current session, or false when not authenticated.
func (s State) Session() (model.Session, bool) {
	if !s.Auth.IsAuthenticated || s.Auth.Token == "" {
		return model.Session{}, false
	}
	sess := model.Session{UserID: s.Auth.UserID, Token: s.Auth.Token, ExpiresAt: s.Auth.ExpiresAt}
	if s.Auth.User != nil {
		sess.UserID = s.Auth.User.ID
	}
	return sess, true
}

func cloneOps(m map[Op]Status) map[Op]Status {
	out := make(map[Op]Status, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCourses(in []model.Course) []model.Course {
	out := make([]model.Course, len(in))
	for i := range in {
		out[i] = cloneCourse(in[i])
	}
	return out
}

func cloneCourse(c model.Course) model.Course {
	c.Lessons = append([]model.Lesson(nil), c.Lessons...)
	if c.Progress != nil {
		p := *c.Progress
		c.Progress = &p
	}
	return c
}
