package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/store"
)

// FetchUserProgress replaces the local progress mapping with the backend's.
func (r *Runner) FetchUserProgress(ctx context.Context, userID string) (map[string]model.Progress, error) {
	if err := required("user id", userID); err != nil {
		return nil, err
	}
	return settle(ctx, r, store.OpFetchProgress,
		func(ctx context.Context) (map[string]model.Progress, error) {
			list, err := r.api.ListProgress(ctx, userID)
			if err != nil {
				return nil, err
			}
			m := make(map[string]model.Progress, len(list))
			for _, p := range list {
				m[p.CourseID] = p
			}
			return m, nil
		},
		func(m map[string]model.Progress) store.Action { return store.ProgressLoaded{Progress: m} })
}

// MarkLessonComplete records a completed lesson remotely, then locally.
// Repeating it for the same lesson is harmless.
func (r *Runner) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string) error {
	if err := errors.Join(required("user id", userID), required("course id", courseID), required("lesson id", lessonID)); err != nil {
		return err
	}
	_, err := settle(ctx, r, store.OpMarkLesson,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.api.MarkLessonComplete(ctx, userID, courseID, lessonID)
		},
		func(struct{}) store.Action {
			return store.LessonCompleted{UserID: userID, CourseID: courseID, LessonID: lessonID}
		})
	return err
}

// SubmitQuizScore records a 0..100 score. Locally the score is only kept when
// the course already has a progress record.
func (r *Runner) SubmitQuizScore(ctx context.Context, userID, courseID, quizID string, score int) error {
	if err := errors.Join(required("user id", userID), required("course id", courseID), required("quiz id", quizID)); err != nil {
		return err
	}
	if score < model.MinQuizScore || score > model.MaxQuizScore {
		return errs.Validation(fmt.Sprintf("score must be between %d and %d", model.MinQuizScore, model.MaxQuizScore))
	}
	_, err := settle(ctx, r, store.OpSubmitQuiz,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.api.SubmitQuizScore(ctx, userID, courseID, quizID, score)
		},
		func(struct{}) store.Action {
			return store.QuizScored{UserID: userID, CourseID: courseID, QuizID: quizID, Score: score}
		})
	return err
}
