// Package model defines domain entities shared by the client state store,
// the backend contract and the server-side repositories.
package model

import (
	"fmt"
	"time"
)

// Money is an amount in minor units (cents). Cart totals are kept exact by
// never going through floating point.
type Money int64

// String formats m as a decimal amount, e.g. 1999 -> "19.99".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Role of an account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// User is the public account profile. Credentials never leave the backend.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate carries optional profile changes; nil fields are left as is.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Account is the backend's stored user: the profile plus the encoded
// password hash.
type Account struct {
	User    User
	PwdHash string
}

// Session is the durable proof of authentication.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero when unknown
}

// AuthResult is returned by sign-in and sign-up.
type AuthResult struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

// Level of a course.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

// LessonType of a lesson.
type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonArticle    LessonType = "article"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
)

// Lesson is a single unit of a course.
type Lesson struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        LessonType `json:"type"`
	Duration    int        `json:"duration"` // minutes
	Order       int        `json:"order"`
	VideoURL    string     `json:"video_url,omitempty"`
	Content     string     `json:"content,omitempty"`
	IsPreview   bool       `json:"is_preview,omitempty"`
}

// Course is a catalog entry. Progress is only set for enrolled listings.
type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Instructor    string    `json:"instructor"`
	InstructorID  string    `json:"instructor_id,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Price         Money     `json:"price"`
	Rating        float64   `json:"rating"`
	TotalRatings  int       `json:"total_ratings"`
	TotalStudents int       `json:"total_students"`
	Duration      string    `json:"duration,omitempty"`
	Level         Level     `json:"level"`
	Category      string    `json:"category,omitempty"`
	Lessons       []Lesson  `json:"lessons,omitempty"`
	IsPublished   bool      `json:"is_published"`
	IsFeatured    bool      `json:"is_featured,omitempty"`
	Progress      *float64  `json:"progress,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CourseFilter selects a catalog listing. At most one of Category, Query or
// Featured is expected; the zero value lists everything, newest first.
type CourseFilter struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"query,omitempty"`
	Featured bool   `json:"featured,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// FeaturedMinRating is the rating threshold for featured listings.
const FeaturedMinRating = 4.5

// Enrollment links a user to a course.
type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Progress   float64   `json:"progress"`
	Status     string    `json:"status"`
}

// Progress is the per-course learning record of one user.
type Progress struct {
	UserID           string         `json:"user_id"`
	CourseID         string         `json:"course_id"`
	CompletedLessons []string       `json:"completed_lessons"`
	QuizScores       map[string]int `json:"quiz_scores"`
	OverallProgress  float64        `json:"overall_progress"`
}

// NewProgress returns the default record for a course touched for the first time.
func NewProgress(userID, courseID string) Progress {
	return Progress{
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: []string{},
		QuizScores:       map[string]int{},
	}
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	out := p
	out.CompletedLessons = append([]string(nil), p.CompletedLessons...)
	if out.CompletedLessons == nil {
		out.CompletedLessons = []string{}
	}
	out.QuizScores = make(map[string]int, len(p.QuizScores))
	for k, v := range p.QuizScores {
		out.QuizScores[k] = v
	}
	return out
}

// HasLesson reports whether lessonID is already recorded as completed.
func (p Progress) HasLesson(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Quiz scores are percentages.
const (
	MinQuizScore = 0
	MaxQuizScore = 100
	PassingScore = 70
)

// Ratings are whole stars.
const (
	MinRating = 1
	MaxRating = 5
)
