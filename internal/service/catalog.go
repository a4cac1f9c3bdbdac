package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/repository"
)

// MaxListLimit caps catalog listings.
const MaxListLimit = 100

// CatalogService defines catalog, enrollment and progress operations.
// User ids are the already-authenticated caller.
type CatalogService interface {
	ListCourses(ctx context.Context, f model.CourseFilter) ([]model.Course, error)
	// GetCourse returns the course with its lessons.
	GetCourse(ctx context.Context, courseID string) (model.Course, error)
	ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error)
	ListEnrolled(ctx context.Context, userID uuid.UUID) ([]model.Course, error)
	Enroll(ctx context.Context, userID uuid.UUID, courseID string) error
	IsEnrolled(ctx context.Context, userID uuid.UUID, courseID string) (bool, error)
	RateCourse(ctx context.Context, userID uuid.UUID, courseID string, rating int) error
	ListProgress(ctx context.Context, userID uuid.UUID) ([]model.Progress, error)
	MarkLessonComplete(ctx context.Context, userID uuid.UUID, courseID, lessonID string) error
	SubmitQuizScore(ctx context.Context, userID uuid.UUID, courseID, quizID string, score int) error
}

type CatalogServiceImpl struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{courses: courses, enrollments: enrollments}
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.Validation(field + " must be a valid id")
	}
	return id, nil
}

func courseNotFound(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.WithMessage(errs.ErrNotFound, "course not found")
	}
	return err
}

// ListCourses validates the filter and lists published courses.
func (s *CatalogServiceImpl) ListCourses(ctx context.Context, f model.CourseFilter) ([]model.Course, error) {
	if f.Limit < 0 {
		return nil, errs.Validation("limit must not be negative")
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	return s.courses.List(ctx, f)
}

// GetCourse loads a course and attaches its lessons.
func (s *CatalogServiceImpl) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	id, err := parseID("course id", courseID)
	if err != nil {
		return model.Course{}, err
	}
	c, err := s.courses.Get(ctx, id)
	if err != nil {
		return model.Course{}, courseNotFound(err)
	}
	ls, err := s.courses.Lessons(ctx, id)
	if err != nil {
		return model.Course{}, fmt.Errorf("lessons: %w", err)
	}
	c.Lessons = ls
	return *c, nil
}

// ListLessons returns the lessons of a course in order.
func (s *CatalogServiceImpl) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	id, err := parseID("course id", courseID)
	if err != nil {
		return nil, err
	}
	return s.courses.Lessons(ctx, id)
}

func (s *CatalogServiceImpl) ListEnrolled(ctx context.Context, userID uuid.UUID) ([]model.Course, error) {
	return s.enrollments.ListEnrolled(ctx, userID)
}

// Enroll enrolls the user; a repeated enrollment yields errs.ErrAlreadyExists.
func (s *CatalogServiceImpl) Enroll(ctx context.Context, userID uuid.UUID, courseID string) error {
	id, err := parseID("course id", courseID)
	if err != nil {
		return err
	}
	err = s.enrollments.Enroll(ctx, userID, id)
	if errors.Is(err, errs.ErrAlreadyExists) {
		return errs.WithMessage(errs.ErrAlreadyExists, "already enrolled in this course")
	}
	return courseNotFound(err)
}

func (s *CatalogServiceImpl) IsEnrolled(ctx context.Context, userID uuid.UUID, courseID string) (bool, error) {
	id, err := parseID("course id", courseID)
	if err != nil {
		return false, err
	}
	return s.enrollments.IsEnrolled(ctx, userID, id)
}

// RateCourse records a 1..5 star rating.
func (s *CatalogServiceImpl) RateCourse(ctx context.Context, userID uuid.UUID, courseID string, rating int) error {
	id, err := parseID("course id", courseID)
	if err != nil {
		return err
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return errs.Validation(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	return courseNotFound(s.courses.Rate(ctx, userID, id, rating))
}

func (s *CatalogServiceImpl) ListProgress(ctx context.Context, userID uuid.UUID) ([]model.Progress, error) {
	return s.enrollments.ListProgress(ctx, userID)
}

// MarkLessonComplete records a completed lesson; repeats are no-ops.
func (s *CatalogServiceImpl) MarkLessonComplete(ctx context.Context, userID uuid.UUID, courseID, lessonID string) error {
	cid, err := parseID("course id", courseID)
	if err != nil {
		return err
	}
	lid, err := parseID("lesson id", lessonID)
	if err != nil {
		return err
	}
	err = s.enrollments.MarkLesson(ctx, userID, cid, lid)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.WithMessage(errs.ErrNotFound, "lesson not found in this course")
	}
	return err
}

// SubmitQuizScore stores a 0..100 score.
func (s *CatalogServiceImpl) SubmitQuizScore(ctx context.Context, userID uuid.UUID, courseID, quizID string, score int) error {
	cid, err := parseID("course id", courseID)
	if err != nil {
		return err
	}
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return errs.Validation("quiz id is required")
	}
	if score < model.MinQuizScore || score > model.MaxQuizScore {
		return errs.Validation(fmt.Sprintf("score must be between %d and %d", model.MinQuizScore, model.MaxQuizScore))
	}
	return s.enrollments.SetQuizScore(ctx, userID, cid, quizID, score)
}
