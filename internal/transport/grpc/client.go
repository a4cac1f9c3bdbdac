package grpctransport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/and161185/learnkeeper/internal/backend"
	"github.com/and161185/learnkeeper/internal/model"
)

// TokenSource returns the current session token, "" when signed out.
type TokenSource func() string

// Client implements backend.Client over a gRPC connection.
type Client struct {
	conn    *grpc.ClientConn
	anonKey string
	token   TokenSource
}

var _ backend.Client = (*Client)(nil)

// Dial creates a client for target. Transport credentials and dialers come
// in opts; the anon key and the current token are attached to every call.
func Dial(target, anonKey string, token TokenSource, log *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if token == nil {
		token = func() string { return "" }
	}
	c := &Client{anonKey: anonKey, token: token}
	all := append([]grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithChainUnaryInterceptor(c.authUnary, ClientLoggingUnary(log)),
	}, opts...)
	conn, err := grpc.NewClient(target, all...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) authUnary(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	kv := []string{MDAPIKey, c.anonKey}
	if tok := c.token(); tok != "" {
		kv = append(kv, MDAuthorization, "Bearer "+tok)
	}
	return invoker(metadata.AppendToOutgoingContext(ctx, kv...), method, req, reply, cc, opts...)
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	return fromStatus(c.conn.Invoke(ctx, fullMethod(method), req, resp))
}

// ClientCreds returns transport credentials: plaintext, TLS without
// verification (dev), or TLS against the given CA bundle / system roots.
func ClientCreds(caPath string, skipVerify, plaintext bool) (credentials.TransportCredentials, error) {
	switch {
	case plaintext:
		return insecure.NewCredentials(), nil
	case skipVerify:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // dev only
	case caPath == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.call(ctx, "SignIn", &SignInRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.call(ctx, "SignUp", &SignUpRequest{Email: email, Password: password, Name: name}, &out)
	return out, err
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.call(ctx, "SignOut", &Empty{}, &Empty{})
}

func (c *Client) GetSession(ctx context.Context) (model.Session, error) {
	var out model.Session
	err := c.call(ctx, "GetSession", &Empty{}, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.call(ctx, "GetUser", &Empty{}, &out)
	return out, err
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.call(ctx, "ResetPassword", &ResetPasswordRequest{Email: email}, &Empty{})
}

func (c *Client) UpdateUser(ctx context.Context, upd model.UserUpdate) (model.User, error) {
	var out model.User
	err := c.call(ctx, "UpdateUser", &UpdateUserRequest{Update: upd}, &out)
	return out, err
}

func (c *Client) ListCourses(ctx context.Context, f model.CourseFilter) ([]model.Course, error) {
	var out CoursesResponse
	if err := c.call(ctx, "ListCourses", &ListCoursesRequest{Filter: f}, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Courses), nil
}

func (c *Client) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	var out model.Course
	err := c.call(ctx, "GetCourse", &CourseRequest{CourseID: courseID}, &out)
	return out, err
}

func (c *Client) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	var out LessonsResponse
	if err := c.call(ctx, "ListLessons", &CourseRequest{CourseID: courseID}, &out); err != nil {
		return nil, err
	}
	if out.Lessons == nil {
		return []model.Lesson{}, nil
	}
	return out.Lessons, nil
}

func (c *Client) ListEnrolled(ctx context.Context, userID string) ([]model.Course, error) {
	var out CoursesResponse
	if err := c.call(ctx, "ListEnrolled", &UserRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Courses), nil
}

func (c *Client) Enroll(ctx context.Context, userID, courseID string) error {
	return c.call(ctx, "Enroll", &EnrollmentRequest{UserID: userID, CourseID: courseID}, &Empty{})
}

func (c *Client) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var out BoolResponse
	err := c.call(ctx, "IsEnrolled", &EnrollmentRequest{UserID: userID, CourseID: courseID}, &out)
	return out.Value, err
}

func (c *Client) RateCourse(ctx context.Context, userID, courseID string, rating int) error {
	return c.call(ctx, "RateCourse", &RateRequest{UserID: userID, CourseID: courseID, Rating: rating}, &Empty{})
}

func (c *Client) ListProgress(ctx context.Context, userID string) ([]model.Progress, error) {
	var out ProgressResponse
	if err := c.call(ctx, "ListProgress", &UserRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	if out.Progress == nil {
		return []model.Progress{}, nil
	}
	return out.Progress, nil
}

func (c *Client) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string) error {
	return c.call(ctx, "MarkLessonComplete", &LessonRequest{UserID: userID, CourseID: courseID, LessonID: lessonID}, &Empty{})
}

func (c *Client) SubmitQuizScore(ctx context.Context, userID, courseID, quizID string, score int) error {
	return c.call(ctx, "SubmitQuizScore", &QuizRequest{UserID: userID, CourseID: courseID, QuizID: quizID, Score: score}, &Empty{})
}

func nonNil(cs []model.Course) []model.Course {
	if cs == nil {
		return []model.Course{}
	}
	return cs
}
