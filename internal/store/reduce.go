package store

import (
	"time"

	"github.com/and161185/learnkeeper/internal/model"
)

// Reduce applies a to a copy of s and returns the result. s is not modified.
func Reduce(s State, a Action) State {
	out := s.Clone()
	apply(&out, a)
	return out
}

// apply mutates s in place. Only the store goroutine and Reduce call it.
func apply(s *State, a Action) {
	switch a := a.(type) {
	case OpStarted:
		started(s, a.Op)
	case OpFailed:
		failed(s, a.Op, a.Err)
	case Settled:
		settle(s, a.Op)

	case LoggedIn:
		settle(s, a.Op)
		u := a.Result.User
		s.Auth.User = &u
		s.Auth.Token = a.Result.Session.Token
		s.Auth.UserID = u.ID
		s.Auth.ExpiresAt = a.Result.Session.ExpiresAt
		s.Auth.IsAuthenticated = s.Auth.Token != ""
	case LoggedOut:
		settle(s, OpLogout)
		s.Auth.User = nil
		s.Auth.Token = ""
		s.Auth.UserID = ""
		s.Auth.ExpiresAt = time.Time{}
		s.Auth.IsAuthenticated = false
	case SessionRestored:
		settle(s, OpCheckStatus)
		if a.Session.Token == "" {
			return
		}
		s.Auth.Token = a.Session.Token
		s.Auth.UserID = a.Session.UserID
		s.Auth.ExpiresAt = a.Session.ExpiresAt
		s.Auth.IsAuthenticated = true
	case UserSet:
		if a.Op != "" {
			settle(s, a.Op)
		}
		u := a.User
		s.Auth.User = &u
		s.Auth.UserID = u.ID
		s.Auth.IsAuthenticated = s.Auth.Token != ""
	case ErrorCleared:
		switch a.Slice {
		case "auth":
			s.Auth.Error = ""
		case "courses":
			s.Courses.Error = ""
		case "progress":
			s.Progress.Error = ""
		}

	case CoursesLoaded:
		settle(s, OpFetchCourses)
		s.Courses.Courses = nonNilCourses(a.Courses)
	case EnrolledLoaded:
		settle(s, OpFetchEnrolled)
		s.Courses.EnrolledCourses = nonNilCourses(a.Courses)
	case CourseLoaded:
		settle(s, OpFetchCourse)
		c := a.Course
		s.Courses.CurrentCourse = &c
	case CurrentCourseSet:
		if a.Course == nil {
			s.Courses.CurrentCourse = nil
			return
		}
		c := *a.Course
		s.Courses.CurrentCourse = &c
	case LessonsLoaded:
		settle(s, OpFetchLessons)
		if s.Courses.Lessons == nil {
			s.Courses.Lessons = map[string][]model.Lesson{}
		}
		s.Courses.Lessons[a.CourseID] = append([]model.Lesson{}, a.Lessons...)

	case ProgressLoaded:
		settle(s, OpFetchProgress)
		s.Progress.UserProgress = make(map[string]model.Progress, len(a.Progress))
		for k, v := range a.Progress {
			s.Progress.UserProgress[k] = v.Clone()
		}
	case LessonCompleted:
		settle(s, OpMarkLesson)
		if s.Progress.UserProgress == nil {
			s.Progress.UserProgress = map[string]model.Progress{}
		}
		p, ok := s.Progress.UserProgress[a.CourseID]
		if !ok {
			p = model.NewProgress(a.UserID, a.CourseID)
		}
		if !p.HasLesson(a.LessonID) {
			p.CompletedLessons = append(p.CompletedLessons, a.LessonID)
		}
		s.Progress.UserProgress[a.CourseID] = p
	case QuizScored:
		settle(s, OpSubmitQuiz)
		// Scores for a course without a local record are dropped; the next
		// progress fetch brings them in from the backend.
		p, ok := s.Progress.UserProgress[a.CourseID]
		if !ok {
			return
		}
		if p.QuizScores == nil {
			p.QuizScores = map[string]int{}
		}
		p.QuizScores[a.QuizID] = a.Score
		s.Progress.UserProgress[a.CourseID] = p

	case CartAdded:
		for _, it := range s.Cart.Items {
			if it.ID == a.Course.ID {
				return
			}
		}
		s.Cart.Items = append(s.Cart.Items, a.Course)
		s.Cart.Total += a.Course.Price
	case CartRemoved:
		for i, it := range s.Cart.Items {
			if it.ID != a.CourseID {
				continue
			}
			s.Cart.Total -= it.Price
			s.Cart.Items = append(s.Cart.Items[:i:i], s.Cart.Items[i+1:]...)
			return
		}
	case CartCleared:
		s.Cart.Items = []model.Course{}
		s.Cart.Total = 0

	case Rehydrated:
		rehydrate(s, a)
	}
}

func rehydrate(s *State, a Rehydrated) {
	// A stored profile is only trusted for the token the bootstrap restored.
	if a.Session != nil && a.User != nil && s.Auth.Token != "" && a.Session.Token == s.Auth.Token {
		u := *a.User
		s.Auth.User = &u
		s.Auth.UserID = u.ID
		if s.Auth.ExpiresAt.IsZero() {
			s.Auth.ExpiresAt = a.Session.ExpiresAt
		}
	}
	if a.Cart != nil {
		s.Cart.Items = []model.Course{}
		s.Cart.Total = 0
		for _, c := range a.Cart {
			apply(s, CartAdded{Course: c})
		}
	}
}

func ops(s *State, op Op) (m map[Op]Status, loading *bool, errMsg *string) {
	switch op.Slice() {
	case "auth":
		if s.Auth.Ops == nil {
			s.Auth.Ops = map[Op]Status{}
		}
		return s.Auth.Ops, &s.Auth.IsLoading, &s.Auth.Error
	case "courses":
		if s.Courses.Ops == nil {
			s.Courses.Ops = map[Op]Status{}
		}
		return s.Courses.Ops, &s.Courses.IsLoading, &s.Courses.Error
	case "progress":
		if s.Progress.Ops == nil {
			s.Progress.Ops = map[Op]Status{}
		}
		return s.Progress.Ops, &s.Progress.IsLoading, &s.Progress.Error
	}
	return nil, nil, nil
}

func started(s *State, op Op) {
	m, loading, errMsg := ops(s, op)
	if m == nil {
		return
	}
	m[op] = Pending
	if op.tracksLoading() {
		*loading = true
		*errMsg = ""
	}
}

func settle(s *State, op Op) {
	m, loading, _ := ops(s, op)
	if m == nil {
		return
	}
	m[op] = Fulfilled
	if op.tracksLoading() {
		*loading = false
	}
}

func failed(s *State, op Op, msg string) {
	m, loading, errMsg := ops(s, op)
	if m == nil {
		return
	}
	m[op] = Rejected
	if op.tracksLoading() {
		*loading = false
	}
	*errMsg = msg
}

func nonNilCourses(in []model.Course) []model.Course {
	if in == nil {
		return []model.Course{}
	}
	return cloneCourses(in)
}
