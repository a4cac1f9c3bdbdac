package store

import (
	"strings"

	"github.com/and161185/learnkeeper/internal/model"
)

// Op names an async operation; the prefix before "/" is the owning slice.
type Op string

const (
	OpLogin         Op = "auth/login"
	OpRegister      Op = "auth/register"
	OpLogout        Op = "auth/logout"
	OpCheckStatus   Op = "auth/checkStatus"
	OpRevalidate    Op = "auth/revalidate"
	OpUpdateProfile Op = "auth/updateProfile"
	OpResetPassword Op = "auth/resetPassword"

	OpFetchCourses  Op = "courses/fetchAll"
	OpFetchEnrolled Op = "courses/fetchEnrolled"
	OpFetchCourse   Op = "courses/fetchById"
	OpEnroll        Op = "courses/enroll"
	OpFetchLessons  Op = "courses/fetchLessons"
	OpRate          Op = "courses/rate"
	OpCheckout      Op = "courses/checkout"

	OpFetchProgress Op = "progress/fetchUser"
	OpMarkLesson    Op = "progress/updateLesson"
	OpSubmitQuiz    Op = "progress/submitQuiz"
)

// Slice returns the slice name owning o.
func (o Op) Slice() string {
	if i := strings.IndexByte(string(o), '/'); i > 0 {
		return string(o[:i])
	}
	return string(o)
}

// tracksLoading reports whether o toggles its slice's IsLoading flag.
// Remote writes that do not feed a listing leave the flag alone.
func (o Op) tracksLoading() bool {
	switch o {
	case OpEnroll, OpRate, OpCheckout, OpMarkLesson, OpSubmitQuiz, OpLogout, OpCheckStatus, OpResetPassword:
		return false
	}
	return true
}

// Action is a state transition. The set of actions is closed: only types in
// this package implement it.
type Action interface {
	// Type is a stable name used in logs.
	Type() string
	action()
}

type base struct{}

func (base) action() {}

// --- lifecycle ---

// OpStarted marks an operation pending.
type OpStarted struct {
	base
	Op Op
}

// OpFailed settles an operation as rejected with a human-readable message.
type OpFailed struct {
	base
	Op  Op
	Err string
}

func (a OpStarted) Type() string { return string(a.Op) + "/pending" }
func (a OpFailed) Type() string { return string(a.Op) + "/rejected" }

// --- auth ---

// LoggedIn settles login or register (Op tells which).
type LoggedIn struct {
	base
	Op     Op
	Result model.AuthResult
}

// LoggedOut settles logout.
type LoggedOut struct{ base }

// SessionRestored is the outcome of the startup bootstrap.
type SessionRestored struct {
	base
	Session model.Session
}

// UserSet replaces the user (setUser / profile update / revalidation).
type UserSet struct {
	base
	Op   Op // empty for a plain local set
	User model.User
}

// Settled marks an operation fulfilled when it carries no payload
// (enroll, rate, reset password, checkout).
type Settled struct {
	base
	Op Op
}

// ErrorCleared resets the Error of one slice ("auth", "courses", "progress").
type ErrorCleared struct {
	base
	Slice string
}

func (a LoggedIn) Type() string { return string(a.Op) + "/fulfilled" }
func (LoggedOut) Type() string { return string(OpLogout) + "/fulfilled" }
func (SessionRestored) Type() string { return string(OpCheckStatus) + "/fulfilled" }
func (a UserSet) Type() string {
	if a.Op != "" {
		return string(a.Op) + "/fulfilled"
	}
	return "auth/setUser"
}
func (a Settled) Type() string { return string(a.Op) + "/fulfilled" }
func (a ErrorCleared) Type() string { return a.Slice + "/clearError" }

// --- courses ---

// CoursesLoaded settles fetchAll (and the search/category/featured variants).
type CoursesLoaded struct {
	base
	Courses []model.Course
}

// EnrolledLoaded settles fetchEnrolled.
type EnrolledLoaded struct {
	base
	Courses []model.Course
}

// CourseLoaded settles fetchById.
type CourseLoaded struct {
	base
	Course model.Course
}

// CurrentCourseSet selects (or, with nil, deselects) the current course locally.
type CurrentCourseSet struct {
	base
	Course *model.Course
}

// LessonsLoaded settles fetchLessons.
type LessonsLoaded struct {
	base
	CourseID string
	Lessons  []model.Lesson
}

func (CoursesLoaded) Type() string { return string(OpFetchCourses) + "/fulfilled" }
func (EnrolledLoaded) Type() string { return string(OpFetchEnrolled) + "/fulfilled" }
func (CourseLoaded) Type() string { return string(OpFetchCourse) + "/fulfilled" }
func (CurrentCourseSet) Type() string { return "courses/setCurrentCourse" }
func (LessonsLoaded) Type() string { return string(OpFetchLessons) + "/fulfilled" }

// --- progress ---

// ProgressLoaded settles fetchUserProgress, replacing the whole mapping.
type ProgressLoaded struct {
	base
	Progress map[string]model.Progress
}

// LessonCompleted settles markLessonComplete.
type LessonCompleted struct {
	base
	UserID   string
	CourseID string
	LessonID string
}

// QuizScored settles submitQuizScore.
type QuizScored struct {
	base
	UserID   string
	CourseID string
	QuizID   string
	Score    int
}

func (ProgressLoaded) Type() string { return string(OpFetchProgress) + "/fulfilled" }
func (LessonCompleted) Type() string { return string(OpMarkLesson) + "/fulfilled" }
func (QuizScored) Type() string { return string(OpSubmitQuiz) + "/fulfilled" }

// --- cart ---

// CartAdded adds a course unless its id is already in the cart.
type CartAdded struct {
	base
	Course model.Course
}

// CartRemoved removes a course by id.
type CartRemoved struct {
	base
	CourseID string
}

// CartCleared empties the cart.
type CartCleared struct{ base }

// Rehydrated restores the durable subset read from persistent storage.
// A nil field leaves that part of the state untouched.
type Rehydrated struct {
	base
	Session *model.Session
	User    *model.User
	Cart    []model.Course
}

func (CartAdded) Type() string { return "cart/addToCart" }
func (CartRemoved) Type() string { return "cart/removeFromCart" }
func (CartCleared) Type() string { return "cart/clearCart" }
func (Rehydrated) Type() string { return "persist/rehydrate" }
