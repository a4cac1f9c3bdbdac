package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/repository"
)

type fakeCourses struct {
	courses map[uuid.UUID]model.Course
	lessons map[uuid.UUID][]model.Lesson
	ratings map[uuid.UUID]int

	lastFilter model.CourseFilter
}

var _ repository.CourseRepository = (*fakeCourses)(nil)

func (f *fakeCourses) List(_ context.Context, flt model.CourseFilter) ([]model.Course, error) {
	f.lastFilter = flt
	out := []model.Course{}
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourses) Get(_ context.Context, id uuid.UUID) (*model.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCourses) Lessons(_ context.Context, courseID uuid.UUID) ([]model.Lesson, error) {
	return append([]model.Lesson{}, f.lessons[courseID]...), nil
}

func (f *fakeCourses) Rate(_ context.Context, _, courseID uuid.UUID, rating int) error {
	if _, ok := f.courses[courseID]; !ok {
		return errs.ErrNotFound
	}
	f.ratings[courseID] = rating
	return nil
}

type fakeEnrollments struct {
	enrolled map[uuid.UUID]bool
	lessons  map[uuid.UUID]bool
	quiz     map[string]int

	enrollErr error
}

var _ repository.EnrollmentRepository = (*fakeEnrollments)(nil)

func (f *fakeEnrollments) Enroll(_ context.Context, _, courseID uuid.UUID) error {
	if f.enrollErr != nil {
		return f.enrollErr
	}
	if f.enrolled[courseID] {
		return errs.ErrAlreadyExists
	}
	f.enrolled[courseID] = true
	return nil
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, _, courseID uuid.UUID) (bool, error) {
	return f.enrolled[courseID], nil
}

func (f *fakeEnrollments) ListEnrolled(context.Context, uuid.UUID) ([]model.Course, error) {
	return []model.Course{}, nil
}

func (f *fakeEnrollments) ListProgress(_ context.Context, userID uuid.UUID) ([]model.Progress, error) {
	return []model.Progress{model.NewProgress(userID.String(), "c")}, nil
}

func (f *fakeEnrollments) MarkLesson(_ context.Context, _, _, lessonID uuid.UUID) error {
	if !f.lessons[lessonID] {
		return errs.ErrNotFound
	}
	return nil
}

func (f *fakeEnrollments) SetQuizScore(_ context.Context, _, _ uuid.UUID, quizID string, score int) error {
	f.quiz[quizID] = score
	return nil
}

func newCatalog(t *testing.T) (*CatalogServiceImpl, *fakeCourses, *fakeEnrollments, uuid.UUID) {
	t.Helper()
	cid := uuid.Must(uuid.NewV4())
	courses := &fakeCourses{
		courses: map[uuid.UUID]model.Course{cid: {ID: cid.String(), Title: "Go", Price: 1999}},
		lessons: map[uuid.UUID][]model.Lesson{cid: {{ID: "l1", Order: 1}, {ID: "l2", Order: 2}}},
		ratings: map[uuid.UUID]int{},
	}
	enr := &fakeEnrollments{enrolled: map[uuid.UUID]bool{}, lessons: map[uuid.UUID]bool{}, quiz: map[string]int{}}
	return NewCatalogService(courses, enr), courses, enr, cid
}

func TestCatalog_ListCourses_NormalizesFilter(t *testing.T) {
	t.Parallel()
	s, courses, _, _ := newCatalog(t)
	ctx := context.Background()

	if _, err := s.ListCourses(ctx, model.CourseFilter{Limit: -1}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	cs, err := s.ListCourses(ctx, model.CourseFilter{Query: "  go  ", Limit: 1000})
	if err != nil || len(cs) != 1 {
		t.Fatalf("ListCourses: %v %v", cs, err)
	}
	if courses.lastFilter.Query != "go" || courses.lastFilter.Limit != MaxListLimit {
		t.Fatalf("filter not normalized: %+v", courses.lastFilter)
	}
}

func TestCatalog_GetCourse(t *testing.T) {
	t.Parallel()
	s, _, _, cid := newCatalog(t)
	ctx := context.Background()

	c, err := s.GetCourse(ctx, cid.String())
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(c.Lessons) != 2 {
		t.Fatalf("lessons not attached: %+v", c)
	}

	if _, err := s.GetCourse(ctx, "nope"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	_, err = s.GetCourse(ctx, uuid.Must(uuid.NewV4()).String())
	if !errors.Is(err, errs.ErrNotFound) || err.Error() != "course not found" {
		t.Fatalf("want ErrNotFound with message, got %v", err)
	}
}

func TestCatalog_Enroll(t *testing.T) {
	t.Parallel()
	s, _, enr, cid := newCatalog(t)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	if err := s.Enroll(ctx, uid, cid.String()); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	ok, err := s.IsEnrolled(ctx, uid, cid.String())
	if err != nil || !ok {
		t.Fatalf("IsEnrolled: %v %v", ok, err)
	}
	if err := s.Enroll(ctx, uid, cid.String()); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}

	enr.enrollErr = errs.ErrNotFound
	if err := s.Enroll(ctx, uid, uuid.Must(uuid.NewV4()).String()); err == nil || err.Error() != "course not found" {
		t.Fatalf("want course not found, got %v", err)
	}
	if err := s.Enroll(ctx, uid, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestCatalog_RateCourse(t *testing.T) {
	t.Parallel()
	s, courses, _, cid := newCatalog(t)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	for _, r := range []int{0, 6, -1} {
		if err := s.RateCourse(ctx, uid, cid.String(), r); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("rating %d: want ErrValidation, got %v", r, err)
		}
	}
	if err := s.RateCourse(ctx, uid, cid.String(), 5); err != nil {
		t.Fatalf("RateCourse: %v", err)
	}
	if courses.ratings[cid] != 5 {
		t.Fatalf("rating not stored")
	}
	if err := s.RateCourse(ctx, uid, uuid.Must(uuid.NewV4()).String(), 3); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCatalog_Progress(t *testing.T) {
	t.Parallel()
	s, _, enr, cid := newCatalog(t)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	lid := uuid.Must(uuid.NewV4())
	enr.lessons[lid] = true

	if err := s.MarkLessonComplete(ctx, uid, cid.String(), lid.String()); err != nil {
		t.Fatalf("MarkLessonComplete: %v", err)
	}
	if err := s.MarkLessonComplete(ctx, uid, cid.String(), "x"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if err := s.MarkLessonComplete(ctx, uid, cid.String(), uuid.Must(uuid.NewV4()).String()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	for _, sc := range []int{-1, 101} {
		if err := s.SubmitQuizScore(ctx, uid, cid.String(), "q1", sc); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("score %d: want ErrValidation, got %v", sc, err)
		}
	}
	if err := s.SubmitQuizScore(ctx, uid, cid.String(), " ", 50); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty quiz id: want ErrValidation, got %v", err)
	}
	for _, sc := range []int{0, 100} {
		if err := s.SubmitQuizScore(ctx, uid, cid.String(), "q1", sc); err != nil {
			t.Fatalf("score %d: %v", sc, err)
		}
	}
	if enr.quiz["q1"] != 100 {
		t.Fatalf("last score must win, got %d", enr.quiz["q1"])
	}

	ps, err := s.ListProgress(ctx, uid)
	if err != nil || len(ps) != 1 || ps[0].UserID != uid.String() {
		t.Fatalf("ListProgress: %+v %v", ps, err)
	}
}
