package grpctransport

import (
	"context"
	"net"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth    service.AuthService
	catalog service.CatalogService
	log     *zap.Logger
}

var _ API = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, catalog service.CatalogService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, catalog: catalog, log: log}
}

// Register attaches the API to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
}

// remoteIP returns the peer host without its port, so every connection from
// one host shares the sign-in limiter counters.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// fail converts a service error into a status, logging unclassified ones.
func (s *Server) fail(ctx context.Context, op string, err error) error {
	st, ok := toStatus(err)
	if !ok {
		s.log.Error(op, zap.Error(err), zap.String("peer", remoteIP(ctx)))
	}
	return st
}

// session verifies the bearer token.
func (s *Server) session(ctx context.Context) (model.Session, uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return model.Session{}, uuid.Nil, err
	}
	sess, err := s.auth.VerifyToken(tok)
	if err != nil {
		return model.Session{}, uuid.Nil, err
	}
	id, err := uuid.FromString(sess.UserID)
	if err != nil {
		return model.Session{}, uuid.Nil, errs.ErrUnauthorized
	}
	return sess, id, nil
}

// actAs authenticates the caller and checks it is acting for userID.
func (s *Server) actAs(ctx context.Context, userID string) (uuid.UUID, error) {
	_, id, err := s.session(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if userID != id.String() {
		return uuid.Nil, errs.WithMessage(errs.ErrForbidden, "cannot act for another user")
	}
	return id, nil
}

// --- Auth ---

// SignIn authenticates by email and password.
func (s *Server) SignIn(ctx context.Context, req *SignInRequest) (*model.AuthResult, error) {
	res, err := s.auth.SignIn(ctx, req.Email, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, s.fail(ctx, "sign in", err)
	}
	return &res, nil
}

// SignUp registers and signs in.
func (s *Server) SignUp(ctx context.Context, req *SignUpRequest) (*model.AuthResult, error) {
	res, err := s.auth.SignUp(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, s.fail(ctx, "sign up", err)
	}
	return &res, nil
}

// SignOut is accepted with or without a valid token; sessions are stateless
// tokens that simply expire.
func (s *Server) SignOut(ctx context.Context, _ *Empty) (*Empty, error) {
	if _, id, err := s.session(ctx); err == nil {
		s.log.Debug("sign out", zap.String("user_id", id.String()))
	}
	return &Empty{}, nil
}

// GetSession returns the session proven by the bearer token.
func (s *Server) GetSession(ctx context.Context, _ *Empty) (*model.Session, error) {
	sess, _, err := s.session(ctx)
	if err != nil {
		return nil, s.fail(ctx, "get session", err)
	}
	return &sess, nil
}

// GetUser returns the caller's profile.
func (s *Server) GetUser(ctx context.Context, _ *Empty) (*model.User, error) {
	_, id, err := s.session(ctx)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}
	u, err := s.auth.GetUser(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get user", err)
	}
	return &u, nil
}

// ResetPassword requests a reset email.
func (s *Server) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Empty, error) {
	if err := s.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return nil, s.fail(ctx, "reset password", err)
	}
	return &Empty{}, nil
}

// UpdateUser changes the caller's name and/or password.
func (s *Server) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*model.User, error) {
	_, id, err := s.session(ctx)
	if err != nil {
		return nil, s.fail(ctx, "update user", err)
	}
	u, err := s.auth.UpdateUser(ctx, id, req.Update)
	if err != nil {
		return nil, s.fail(ctx, "update user", err)
	}
	return &u, nil
}

// --- Catalog ---

// ListCourses is public.
func (s *Server) ListCourses(ctx context.Context, req *ListCoursesRequest) (*CoursesResponse, error) {
	cs, err := s.catalog.ListCourses(ctx, req.Filter)
	if err != nil {
		return nil, s.fail(ctx, "list courses", err)
	}
	return &CoursesResponse{Courses: cs}, nil
}

// GetCourse is public.
func (s *Server) GetCourse(ctx context.Context, req *CourseRequest) (*model.Course, error) {
	c, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, s.fail(ctx, "get course", err)
	}
	return &c, nil
}

// ListLessons is public.
func (s *Server) ListLessons(ctx context.Context, req *CourseRequest) (*LessonsResponse, error) {
	ls, err := s.catalog.ListLessons(ctx, req.CourseID)
	if err != nil {
		return nil, s.fail(ctx, "list lessons", err)
	}
	return &LessonsResponse{Lessons: ls}, nil
}

func (s *Server) ListEnrolled(ctx context.Context, req *UserRequest) (*CoursesResponse, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "list enrolled", err)
	}
	cs, err := s.catalog.ListEnrolled(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "list enrolled", err)
	}
	return &CoursesResponse{Courses: cs}, nil
}

func (s *Server) Enroll(ctx context.Context, req *EnrollmentRequest) (*Empty, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "enroll", err)
	}
	if err := s.catalog.Enroll(ctx, id, req.CourseID); err != nil {
		return nil, s.fail(ctx, "enroll", err)
	}
	return &Empty{}, nil
}

func (s *Server) IsEnrolled(ctx context.Context, req *EnrollmentRequest) (*BoolResponse, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "is enrolled", err)
	}
	ok, err := s.catalog.IsEnrolled(ctx, id, req.CourseID)
	if err != nil {
		return nil, s.fail(ctx, "is enrolled", err)
	}
	return &BoolResponse{Value: ok}, nil
}

func (s *Server) RateCourse(ctx context.Context, req *RateRequest) (*Empty, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "rate course", err)
	}
	if err := s.catalog.RateCourse(ctx, id, req.CourseID, req.Rating); err != nil {
		return nil, s.fail(ctx, "rate course", err)
	}
	return &Empty{}, nil
}

// --- Progress ---

func (s *Server) ListProgress(ctx context.Context, req *UserRequest) (*ProgressResponse, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "list progress", err)
	}
	ps, err := s.catalog.ListProgress(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "list progress", err)
	}
	return &ProgressResponse{Progress: ps}, nil
}

func (s *Server) MarkLessonComplete(ctx context.Context, req *LessonRequest) (*Empty, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "mark lesson", err)
	}
	if err := s.catalog.MarkLessonComplete(ctx, id, req.CourseID, req.LessonID); err != nil {
		return nil, s.fail(ctx, "mark lesson", err)
	}
	return &Empty{}, nil
}

func (s *Server) SubmitQuizScore(ctx context.Context, req *QuizRequest) (*Empty, error) {
	id, err := s.actAs(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "submit quiz", err)
	}
	if err := s.catalog.SubmitQuizScore(ctx, id, req.CourseID, req.QuizID, req.Score); err != nil {
		return nil, s.fail(ctx, "submit quiz", err)
	}
	return &Empty{}, nil
}
