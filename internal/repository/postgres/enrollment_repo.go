package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
)

// EnrollmentRepo implements EnrollmentRepository using PostgreSQL.
type EnrollmentRepo struct{ db *DB }

// NewEnrollmentRepo constructs an enrollment repository.
func NewEnrollmentRepo(db *DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

// Enroll inserts an active enrollment and bumps the course's student count.
func (r *EnrollmentRepo) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("enrollment id: %w", err)
	}
	const ins = `
INSERT INTO enrollments (id, user_id, course_id, status)
SELECT $1, $2, c.id, 'active' FROM courses c WHERE c.id=$3 AND c.is_published`
	const bump = `UPDATE courses SET total_students = total_students + 1 WHERE id=$1`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, ins, id, userID, courseID)
		switch {
		case isUniqueViolation(err):
			return errs.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return errs.ErrNotFound
		case err != nil:
			return err
		case tag.RowsAffected() == 0:
			return errs.ErrNotFound
		}
		_, err = tx.Exec(ctx, bump, courseID)
		return err
	})
}

// IsEnrolled reports whether the user is enrolled in the course.
func (r *EnrollmentRepo) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id=$1 AND course_id=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, userID, courseID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// ListEnrolled returns the user's courses, most recent enrollment first,
// each with its completion percentage.
func (r *EnrollmentRepo) ListEnrolled(ctx context.Context, userID uuid.UUID) ([]model.Course, error) {
	const q = `
SELECT ` + courseCols + `,
  COALESCE(100.0 * (SELECT count(*) FROM lesson_progress lp WHERE lp.user_id=e.user_id AND lp.course_id=c.id)
    / NULLIF((SELECT count(*) FROM lessons l WHERE l.course_id=c.id), 0), 0)
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id=$1
ORDER BY e.enrolled_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Course{}
	for rows.Next() {
		var pct float64
		c, err := scanCourse(rows, &pct)
		if err != nil {
			return nil, err
		}
		c.Progress = &pct
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListProgress assembles one progress record per enrolled course from the
// completed lessons and quiz scores.
func (r *EnrollmentRepo) ListProgress(ctx context.Context, userID uuid.UUID) ([]model.Progress, error) {
	const qEnrolled = `
SELECT e.course_id::text, (SELECT count(*) FROM lessons l WHERE l.course_id=e.course_id)
FROM enrollments e
WHERE e.user_id=$1
ORDER BY e.enrolled_at ASC`
	const qLessons = `
SELECT course_id::text, lesson_id::text FROM lesson_progress
WHERE user_id=$1
ORDER BY completed_at ASC`
	const qQuiz = `SELECT course_id::text, quiz_id, score FROM quiz_scores WHERE user_id=$1`

	uid := userID.String()
	var (
		order  []string
		recs   = map[string]*model.Progress{}
		totals = map[string]int64{}
	)

	rows, err := r.db.Pool.Query(ctx, qEnrolled, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			courseID string
			total    int64
		)
		if err := rows.Scan(&courseID, &total); err != nil {
			rows.Close()
			return nil, err
		}
		p := model.NewProgress(uid, courseID)
		recs[courseID] = &p
		totals[courseID] = total
		order = append(order, courseID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, qLessons, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var courseID, lessonID string
		if err := rows.Scan(&courseID, &lessonID); err != nil {
			rows.Close()
			return nil, err
		}
		if p, ok := recs[courseID]; ok {
			p.CompletedLessons = append(p.CompletedLessons, lessonID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, qQuiz, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			courseID, quizID string
			score            int
		)
		if err := rows.Scan(&courseID, &quizID, &score); err != nil {
			rows.Close()
			return nil, err
		}
		if p, ok := recs[courseID]; ok {
			p.QuizScores[quizID] = score
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Progress, 0, len(order))
	for _, id := range order {
		p := recs[id]
		p.OverallProgress = percent(len(p.CompletedLessons), totals[id])
		out = append(out, *p)
	}
	return out, nil
}

func percent(done int, total int64) float64 {
	if total <= 0 {
		return 0
	}
	v := float64(done) * 100 / float64(total)
	if v > 100 {
		v = 100
	}
	return v
}

// MarkLesson records a completed lesson of an enrolled course. Marking the
// same lesson twice is a no-op.
func (r *EnrollmentRepo) MarkLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) error {
	const ins = `
INSERT INTO lesson_progress (user_id, course_id, lesson_id)
SELECT e.user_id, l.course_id, l.id
FROM lessons l
JOIN enrollments e ON e.course_id = l.course_id AND e.user_id=$1
WHERE l.course_id=$2 AND l.id=$3
ON CONFLICT (user_id, lesson_id) DO NOTHING`
	const check = `
SELECT EXISTS (SELECT 1 FROM lessons WHERE course_id=$2 AND id=$3),
       EXISTS (SELECT 1 FROM enrollments WHERE user_id=$1 AND course_id=$2)`

	tag, err := r.db.Pool.Exec(ctx, ins, userID, courseID, lessonID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var lessonOK, enrolled bool
	if err := r.db.Pool.QueryRow(ctx, check, userID, courseID, lessonID).Scan(&lessonOK, &enrolled); err != nil {
		return err
	}
	switch {
	case !lessonOK:
		return errs.ErrNotFound
	case !enrolled:
		return errs.WithMessage(errs.ErrForbidden, "not enrolled in this course")
	}
	return nil
}

// SetQuizScore upserts the score of a quiz in an enrolled course.
func (r *EnrollmentRepo) SetQuizScore(ctx context.Context, userID, courseID uuid.UUID, quizID string, score int) error {
	const q = `
INSERT INTO quiz_scores (user_id, course_id, quiz_id, score)
SELECT e.user_id, e.course_id, $3, $4 FROM enrollments e WHERE e.user_id=$1 AND e.course_id=$2
ON CONFLICT (user_id, course_id, quiz_id) DO UPDATE SET score=EXCLUDED.score, updated_at=now()`
	tag, err := r.db.Pool.Exec(ctx, q, userID, courseID, quizID, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.WithMessage(errs.ErrForbidden, "not enrolled in this course")
	}
	return nil
}
