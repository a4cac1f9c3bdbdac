package grpctransport

import "github.com/and161185/learnkeeper/internal/model"

// Wire messages. Every user-scoped request names its user; the server
// checks it against the bearer token's subject.

type Empty struct{}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type UpdateUserRequest struct {
	Update model.UserUpdate `json:"update"`
}

type ListCoursesRequest struct {
	Filter model.CourseFilter `json:"filter"`
}

type CourseRequest struct {
	CourseID string `json:"course_id"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type EnrollmentRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

type RateRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Rating   int    `json:"rating"`
}

type LessonRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
}

type QuizRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	QuizID   string `json:"quiz_id"`
	Score    int    `json:"score"`
}

type CoursesResponse struct {
	Courses []model.Course `json:"courses"`
}

type LessonsResponse struct {
	Lessons []model.Lesson `json:"lessons"`
}

type ProgressResponse struct {
	Progress []model.Progress `json:"progress"`
}

type BoolResponse struct {
	Value bool `json:"value"`
}
