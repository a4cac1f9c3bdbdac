package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
)

func TestFetchUserProgress_ReplacesMapping(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{progress: []model.Progress{
		{UserID: "u1", CourseID: "c1", CompletedLessons: []string{"l1"}, QuizScores: map[string]int{"q1": 80}, OverallProgress: 50},
	}}
	r, _ := newRunner(t, api)
	ctx := context.Background()

	if err := r.MarkLessonComplete(ctx, "u1", "old", "l9"); err != nil {
		t.Fatalf("MarkLessonComplete: %v", err)
	}
	m, err := r.FetchUserProgress(ctx, "u1")
	if err != nil || len(m) != 1 {
		t.Fatalf("FetchUserProgress: %v %v", m, err)
	}
	up := r.Store().State().Progress.UserProgress
	if _, ok := up["old"]; ok || up["c1"].QuizScores["q1"] != 80 {
		t.Fatalf("progress=%+v", up)
	}
}

func TestMarkLessonComplete_Idempotent(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	r, _ := newRunner(t, api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.MarkLessonComplete(ctx, "u1", "c1", "l1"); err != nil {
			t.Fatalf("MarkLessonComplete: %v", err)
		}
	}
	p := r.Store().State().Progress.UserProgress["c1"]
	if len(p.CompletedLessons) != 1 || p.CompletedLessons[0] != "l1" {
		t.Fatalf("completed=%v", p.CompletedLessons)
	}
	if api.marks != 3 {
		t.Fatalf("remote writes=%d", api.marks)
	}
	if err := r.MarkLessonComplete(ctx, "u1", "c1", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestSubmitQuizScore(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	r, _ := newRunner(t, api)
	ctx := context.Background()

	for _, bad := range []int{-1, 101} {
		if err := r.SubmitQuizScore(ctx, "u1", "c1", "q1", bad); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("score %d: %v", bad, err)
		}
	}

	// no local record: the remote write happens, the local score is dropped
	if err := r.SubmitQuizScore(ctx, "u1", "c1", "q1", 85); err != nil {
		t.Fatalf("SubmitQuizScore: %v", err)
	}
	if _, ok := r.Store().State().Progress.UserProgress["c1"]; ok {
		t.Fatalf("record must not be created by a quiz score")
	}

	_ = r.MarkLessonComplete(ctx, "u1", "c1", "l1")
	if err := r.SubmitQuizScore(ctx, "u1", "c1", "q1", 85); err != nil {
		t.Fatalf("SubmitQuizScore: %v", err)
	}
	if got := r.Store().State().Progress.UserProgress["c1"].QuizScores["q1"]; got != 85 {
		t.Fatalf("score=%d", got)
	}

	api.quizErr = errors.New("write failed")
	if err := r.SubmitQuizScore(ctx, "u1", "c1", "q1", 90); err == nil {
		t.Fatalf("want error")
	}
	s := r.Store().State()
	if s.Progress.UserProgress["c1"].QuizScores["q1"] != 85 || s.Progress.Error != "write failed" {
		t.Fatalf("progress=%+v err=%q", s.Progress.UserProgress, s.Progress.Error)
	}
}
