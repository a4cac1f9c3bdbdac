package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/learnkeeper/internal/model"
)

// CourseRepository reads the catalog and records ratings.
type CourseRepository interface {
	// List returns published courses matching f.
	List(ctx context.Context, f model.CourseFilter) ([]model.Course, error)
	// Get loads one course without its lessons.
	Get(ctx context.Context, id uuid.UUID) (*model.Course, error)
	// Lessons returns the lessons of a course in display order.
	Lessons(ctx context.Context, courseID uuid.UUID) ([]model.Lesson, error)
	// Rate upserts the user's rating and refreshes the course aggregate.
	Rate(ctx context.Context, userID, courseID uuid.UUID, rating int) error
}

// EnrollmentRepository stores enrollments and learning progress.
type EnrollmentRepository interface {
	// Enroll inserts an enrollment; a repeat yields errs.ErrAlreadyExists and an
	// unknown course errs.ErrNotFound.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) error
	// IsEnrolled reports whether the enrollment exists.
	IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	// ListEnrolled returns the user's courses with their completion percentage.
	ListEnrolled(ctx context.Context, userID uuid.UUID) ([]model.Course, error)
	// ListProgress returns one record per enrolled course.
	ListProgress(ctx context.Context, userID uuid.UUID) ([]model.Progress, error)
	// MarkLesson records a completed lesson; repeats are no-ops.
	MarkLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) error
	// SetQuizScore upserts a quiz score.
	SetQuizScore(ctx context.Context, userID, courseID uuid.UUID, quizID string, score int) error
}
