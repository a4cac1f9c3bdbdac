// Package persist snapshots the durable subset of the state (session profile
// and cart) into the KV store and reads it back on startup.
package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/and161185/learnkeeper/internal/model"
)

// Keys written by Save.
const (
	SessionKey = "persist:session"
	CartKey    = "persist:cart"
)

// Version of the snapshot format. Snapshots with another version are ignored.
const Version = 1

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

type userRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionRecord struct {
	Token     string      `json:"token"`
	UserID    string      `json:"user_id,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	User      *userRecord `json:"user,omitempty"`
}

type cartItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Instructor string  `json:"instructor,omitempty"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	Category   string  `json:"category,omitempty"`
	Level      string  `json:"level,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	PriceCents int64   `json:"price_cents"`
}

type cartRecord struct {
	Items []cartItem `json:"items"`
}

// ErrVersion is returned for snapshots written by another format version.
type ErrVersion struct{ Got int }

func (e ErrVersion) Error() string {
	return fmt.Sprintf("persist: unsupported snapshot version %d", e.Got)
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(envelope{V: Version, Data: data})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(raw string, v any) error {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("persist: decode envelope: %w", err)
	}
	if env.V != Version {
		return ErrVersion{Got: env.V}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("persist: decode data: %w", err)
	}
	return nil
}

// EncodeSession encodes the session and the user it belongs to.
func EncodeSession(sess model.Session, u *model.User) (string, error) {
	rec := sessionRecord{Token: sess.Token, UserID: sess.UserID}
	if !sess.ExpiresAt.IsZero() {
		t := sess.ExpiresAt.UTC()
		rec.ExpiresAt = &t
	}
	if u != nil {
		rec.User = &userRecord{
			ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
			CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		}
	}
	return encode(rec)
}

// DecodeSession is the inverse of EncodeSession.
func DecodeSession(raw string) (model.Session, *model.User, error) {
	var rec sessionRecord
	if err := decode(raw, &rec); err != nil {
		return model.Session{}, nil, err
	}
	sess := model.Session{Token: rec.Token, UserID: rec.UserID}
	if rec.ExpiresAt != nil {
		sess.ExpiresAt = *rec.ExpiresAt
	}
	if rec.User == nil {
		return sess, nil, nil
	}
	u := &model.User{
		ID: rec.User.ID, Email: rec.User.Email, Name: rec.User.Name, Role: model.Role(rec.User.Role),
		CreatedAt: rec.User.CreatedAt, UpdatedAt: rec.User.UpdatedAt,
	}
	return sess, u, nil
}

// EncodeCart keeps only what the cart needs to render and total.
func EncodeCart(items []model.Course) (string, error) {
	rec := cartRecord{Items: make([]cartItem, 0, len(items))}
	for _, c := range items {
		rec.Items = append(rec.Items, cartItem{
			ID: c.ID, Title: c.Title, Instructor: c.Instructor, Thumbnail: c.Thumbnail,
			Category: c.Category, Level: string(c.Level), Rating: c.Rating,
			PriceCents: int64(c.Price),
		})
	}
	return encode(rec)
}

// DecodeCart is the inverse of EncodeCart. The result is never nil.
func DecodeCart(raw string) ([]model.Course, error) {
	var rec cartRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	out := make([]model.Course, 0, len(rec.Items))
	for _, it := range rec.Items {
		out = append(out, model.Course{
			ID: it.ID, Title: it.Title, Instructor: it.Instructor, Thumbnail: it.Thumbnail,
			Category: it.Category, Level: model.Level(it.Level), Rating: it.Rating,
			Price: model.Money(it.PriceCents),
		})
	}
	return out, nil
}
