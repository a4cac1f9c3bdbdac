package grpctransport

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/learnkeeper/internal/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "learnkeeper.v1.LearnKeeper"

// API is the server-side surface registered under ServiceName.
type API interface {
	SignIn(context.Context, *SignInRequest) (*model.AuthResult, error)
	SignUp(context.Context, *SignUpRequest) (*model.AuthResult, error)
	SignOut(context.Context, *Empty) (*Empty, error)
	GetSession(context.Context, *Empty) (*model.Session, error)
	GetUser(context.Context, *Empty) (*model.User, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	UpdateUser(context.Context, *UpdateUserRequest) (*model.User, error)

	ListCourses(context.Context, *ListCoursesRequest) (*CoursesResponse, error)
	GetCourse(context.Context, *CourseRequest) (*model.Course, error)
	ListLessons(context.Context, *CourseRequest) (*LessonsResponse, error)
	ListEnrolled(context.Context, *UserRequest) (*CoursesResponse, error)
	Enroll(context.Context, *EnrollmentRequest) (*Empty, error)
	IsEnrolled(context.Context, *EnrollmentRequest) (*BoolResponse, error)
	RateCourse(context.Context, *RateRequest) (*Empty, error)

	ListProgress(context.Context, *UserRequest) (*ProgressResponse, error)
	MarkLessonComplete(context.Context, *LessonRequest) (*Empty, error)
	SubmitQuizScore(context.Context, *QuizRequest) (*Empty, error)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](name string, call func(API, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			api := srv.(API)
			if interceptor == nil {
				return call(api, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(api, ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the API for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		unary("SignIn", API.SignIn),
		unary("SignUp", API.SignUp),
		unary("SignOut", API.SignOut),
		unary("GetSession", API.GetSession),
		unary("GetUser", API.GetUser),
		unary("ResetPassword", API.ResetPassword),
		unary("UpdateUser", API.UpdateUser),
		unary("ListCourses", API.ListCourses),
		unary("GetCourse", API.GetCourse),
		unary("ListLessons", API.ListLessons),
		unary("ListEnrolled", API.ListEnrolled),
		unary("Enroll", API.Enroll),
		unary("IsEnrolled", API.IsEnrolled),
		unary("RateCourse", API.RateCourse),
		unary("ListProgress", API.ListProgress),
		unary("MarkLessonComplete", API.MarkLessonComplete),
		unary("SubmitQuizScore", API.SubmitQuizScore),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "learnkeeper/v1/learnkeeper.json",
}
