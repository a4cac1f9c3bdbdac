// Package backend declares the contract between the client operations and
// the remote auth + data backend.
package backend

import (
	"context"

	"github.com/and161185/learnkeeper/internal/model"
)

// Client is the remote backend. Calls that act for a signed-in user carry the
// current session token; implementations obtain it themselves. Errors match
// the internal/errs sentinels and read as the backend's message.
type Client interface {
	SignIn(ctx context.Context, email, password string) (model.AuthResult, error)
	SignUp(ctx context.Context, email, password, name string) (model.AuthResult, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (model.Session, error)
	GetUser(ctx context.Context) (model.User, error)
	ResetPassword(ctx context.Context, email string) error
	UpdateUser(ctx context.Context, upd model.UserUpdate) (model.User, error)

	ListCourses(ctx context.Context, f model.CourseFilter) ([]model.Course, error)
	GetCourse(ctx context.Context, courseID string) (model.Course, error)
	ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error)
	ListEnrolled(ctx context.Context, userID string) ([]model.Course, error)
	Enroll(ctx context.Context, userID, courseID string) error
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	RateCourse(ctx context.Context, userID, courseID string, rating int) error

	ListProgress(ctx context.Context, userID string) ([]model.Progress, error)
	MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string) error
	SubmitQuizScore(ctx context.Context, userID, courseID, quizID string, score int) error
}
