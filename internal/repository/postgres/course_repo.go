package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
)

// CourseRepo implements CourseRepository using PostgreSQL.
type CourseRepo struct{ db *DB }

// NewCourseRepo constructs a course repository.
func NewCourseRepo(db *DB) *CourseRepo { return &CourseRepo{db: db} }

const courseCols = `c.id::text, c.title, c.description, c.instructor, COALESCE(c.instructor_id::text, ''), c.thumbnail,
c.price_cents, c.rating, c.total_ratings, c.total_students, c.duration, c.level, c.category,
c.is_published, c.is_featured, c.created_at, c.updated_at`

// scanCourse reads courseCols followed by extra destinations.
func scanCourse(row pgx.Row, extra ...any) (model.Course, error) {
	var (
		c     model.Course
		price int64
		level string
	)
	dest := []any{
		&c.ID, &c.Title, &c.Description, &c.Instructor, &c.InstructorID, &c.Thumbnail,
		&price, &c.Rating, &c.TotalRatings, &c.TotalStudents, &c.Duration, &level, &c.Category,
		&c.IsPublished, &c.IsFeatured, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Course{}, err
	}
	c.Price = model.Money(price)
	c.Level = model.Level(level)
	return c, nil
}

// likePattern escapes LIKE metacharacters and wraps q in wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// List returns published courses. Search and featured listings are ordered
// by rating, the rest newest first.
func (r *CourseRepo) List(ctx context.Context, f model.CourseFilter) ([]model.Course, error) {
	var (
		where = []string{"c.is_published"}
		args  []any
		order = "c.created_at DESC"
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	switch {
	case f.Query != "":
		p := arg(likePattern(f.Query))
		where = append(where, fmt.Sprintf("(c.title ILIKE %s OR c.description ILIKE %s)", p, p))
		order = "c.rating DESC"
	case f.Featured:
		where = append(where, "c.rating >= "+arg(model.FeaturedMinRating))
		order = "c.rating DESC"
	case f.Category != "":
		where = append(where, "c.category = "+arg(f.Category))
	}
	q := `SELECT ` + courseCols + ` FROM courses c WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + order
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns a published course by id.
func (r *CourseRepo) Get(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	const q = `SELECT ` + courseCols + ` FROM courses c WHERE c.id=$1 AND c.is_published`
	c, err := scanCourse(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Lessons returns the course's lessons ordered by position.
func (r *CourseRepo) Lessons(ctx context.Context, courseID uuid.UUID) ([]model.Lesson, error) {
	const q = `
SELECT id::text, course_id::text, title, description, type, duration, order_index, video_url, content, is_preview
FROM lessons
WHERE course_id=$1
ORDER BY order_index ASC`
	rows, err := r.db.Pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Lesson{}
	for rows.Next() {
		var (
			l   model.Lesson
			typ string
		)
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Description, &typ, &l.Duration, &l.Order, &l.VideoURL, &l.Content, &l.IsPreview); err != nil {
			return nil, err
		}
		l.Type = model.LessonType(typ)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Rate upserts a rating and recomputes the course's average and count.
func (r *CourseRepo) Rate(ctx context.Context, userID, courseID uuid.UUID, rating int) error {
	const ins = `
INSERT INTO course_ratings (user_id, course_id, rating)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, course_id) DO UPDATE SET rating=EXCLUDED.rating, created_at=now()`
	const agg = `
UPDATE courses SET
  rating = (SELECT COALESCE(AVG(rating), 0) FROM course_ratings WHERE course_id=$1),
  total_ratings = (SELECT count(*) FROM course_ratings WHERE course_id=$1),
  updated_at = $2
WHERE id=$1`
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ins, userID, courseID, rating); err != nil {
			if isForeignKeyViolation(err) {
				return errs.ErrNotFound
			}
			return err
		}
		_, err := tx.Exec(ctx, agg, courseID, time.Now().UTC())
		return err
	})
}
