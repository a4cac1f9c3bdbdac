package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/ops"
)

// errUsage is returned for an unknown command or missing arguments.
var errUsage = errors.New("usage")

// app runs commands against one runner. out gets command results, errOut
// gets flag errors and the shell's error lines.
type app struct {
	r       *ops.Runner
	out     io.Writer
	errOut  io.Writer
	timeout time.Duration
	log     *zap.Logger
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// userID returns the signed-in user's id.
func (a *app) userID() (string, error) {
	auth := a.r.Store().State().Auth
	if !auth.IsAuthenticated || auth.UserID == "" {
		return "", errs.WithMessage(errs.ErrUnauthorized, "not signed in, run lk login first")
	}
	return auth.UserID, nil
}

// arg returns args[i] or a usage error naming what is missing.
func arg(args []string, i int, what string) (string, error) {
	if i >= len(args) || strings.TrimSpace(args[i]) == "" {
		return "", fmt.Errorf("%w: need %s", errUsage, what)
	}
	return args[i], nil
}

// run executes one command line. Each command gets its own timeout.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd, rest := args[0], args[1:]
	a.log.Debug("command", zap.String("cmd", cmd))
	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "lk %s (%s)\n", version, buildDate)
		return nil
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.r.Logout(ctx)
		fmt.Fprintln(a.out, "ok")
		return nil
	case "status":
		return a.status(ctx, rest)
	case "profile":
		return a.profile(ctx, rest)
	case "forgot":
		email, err := arg(rest, 0, "email")
		if err != nil {
			return err
		}
		if err := a.r.ForgotPassword(ctx, email); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "if the address is registered, a reset link is on its way")
		return nil

	case "courses":
		return a.courses(ctx, rest)
	case "course":
		id, err := arg(rest, 0, "course id")
		if err != nil {
			return err
		}
		c, err := a.r.FetchByID(ctx, id)
		if err != nil {
			return err
		}
		a.printJSON(c)
		return nil
	case "lessons":
		id, err := arg(rest, 0, "course id")
		if err != nil {
			return err
		}
		ls, err := a.r.FetchLessons(ctx, id)
		if err != nil {
			return err
		}
		a.printJSON(ls)
		return nil
	case "enrolled":
		uid, err := a.userID()
		if err != nil {
			return err
		}
		cs, err := a.r.FetchEnrolled(ctx, uid)
		if err != nil {
			return err
		}
		a.printJSON(cs)
		return nil
	case "enroll":
		return a.withCourse(rest, func(uid, courseID string) error {
			if err := a.r.Enroll(ctx, uid, courseID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "enrolled")
			return nil
		})
	case "is-enrolled":
		return a.withCourse(rest, func(uid, courseID string) error {
			ok, err := a.r.IsEnrolled(ctx, uid, courseID)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok)
			return nil
		})
	case "rate":
		return a.rate(ctx, rest)

	case "progress":
		uid, err := a.userID()
		if err != nil {
			return err
		}
		p, err := a.r.FetchUserProgress(ctx, uid)
		if err != nil {
			return err
		}
		a.printJSON(p)
		return nil
	case "complete":
		return a.complete(ctx, rest)
	case "quiz":
		return a.quiz(ctx, rest)

	case "cart":
		return a.cart(ctx, rest)
	case "checkout":
		uid, err := a.userID()
		if err != nil {
			return err
		}
		done, err := a.r.Checkout(ctx, uid)
		if err != nil {
			if len(done) > 0 {
				fmt.Fprintf(a.out, "enrolled before the failure: %s\n", strings.Join(done, ", "))
			}
			return err
		}
		fmt.Fprintf(a.out, "enrolled in %d course(s)\n", len(done))
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	email := fs.String("e", "", "email")
	name := fs.String("n", "", "full name")
	pw := fs.String("p", "", "password")
	confirm := fs.String("c", "", "password confirmation (defaults to -p)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *confirm == "" {
		*confirm = *pw
	}
	if err := ops.ValidateSignup(*email, *pw, *confirm, *name); err != nil {
		return err
	}
	res, err := a.r.Register(ctx, *email, *pw, *name)
	if err != nil {
		return err
	}
	a.printJSON(res.User)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("e", "", "email")
	pw := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.r.Login(ctx, *email, *pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", res.User.Email)
	return nil
}

// status prints the local auth state; -check revalidates it remotely first.
func (a *app) status(ctx context.Context, args []string) error {
	fs := a.flags("status")
	check := fs.Bool("check", false, "revalidate the session with the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *check && a.r.Store().State().Auth.IsAuthenticated {
		if _, err := a.r.Revalidate(ctx); err != nil && !errors.Is(err, errs.ErrUnauthorized) {
			return err
		}
	}
	auth := a.r.Store().State().Auth
	type view struct {
		Authenticated bool        `json:"authenticated"`
		UserID        string      `json:"user_id,omitempty"`
		User          *model.User `json:"user,omitempty"`
		ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	}
	v := view{Authenticated: auth.IsAuthenticated, UserID: auth.UserID, User: auth.User}
	if !auth.ExpiresAt.IsZero() {
		exp := auth.ExpiresAt
		v.ExpiresAt = &exp
	}
	a.printJSON(v)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := a.flags("profile")
	name := fs.String("n", "", "new name")
	pw := fs.String("p", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.userID(); err != nil {
		return err
	}
	var upd model.UserUpdate
	if *name != "" {
		upd.Name = name
	}
	if *pw != "" {
		upd.Password = pw
	}
	var (
		u   model.User
		err error
	)
	if upd.Name == nil && upd.Password == nil {
		u, err = a.r.Revalidate(ctx)
	} else {
		u, err = a.r.UpdateProfile(ctx, upd)
	}
	if err != nil {
		return err
	}
	a.printJSON(u)
	return nil
}

func (a *app) courses(ctx context.Context, args []string) error {
	fs := a.flags("courses")
	category := fs.String("category", "", "only this category")
	query := fs.String("q", "", "search title and description")
	featured := fs.Bool("featured", false, "top rated courses only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var (
		cs  []model.Course
		err error
	)
	switch {
	case *featured:
		cs, err = a.r.FetchFeatured(ctx)
	case *query != "":
		cs, err = a.r.Search(ctx, *query)
	case *category != "":
		cs, err = a.r.FetchByCategory(ctx, *category)
	default:
		cs, err = a.r.FetchAll(ctx)
	}
	if err != nil {
		return err
	}
	for _, c := range cs {
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%.1f\t%s\n", c.ID, c.Title, c.Category, c.Rating, c.Price)
	}
	return nil
}

// withCourse resolves the signed-in user and the course id in args[0].
func (a *app) withCourse(args []string, fn func(uid, courseID string) error) error {
	uid, err := a.userID()
	if err != nil {
		return err
	}
	id, err := arg(args, 0, "course id")
	if err != nil {
		return err
	}
	return fn(uid, id)
}

func (a *app) rate(ctx context.Context, args []string) error {
	return a.withCourse(args, func(uid, courseID string) error {
		s, err := arg(args, 1, "rating")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return errs.Validation("rating must be a number")
		}
		if err := a.r.Rate(ctx, uid, courseID, n); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "rated")
		return nil
	})
}

func (a *app) complete(ctx context.Context, args []string) error {
	return a.withCourse(args, func(uid, courseID string) error {
		lessonID, err := arg(args, 1, "lesson id")
		if err != nil {
			return err
		}
		if err := a.r.MarkLessonComplete(ctx, uid, courseID, lessonID); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "lesson completed")
		return nil
	})
}

func (a *app) quiz(ctx context.Context, args []string) error {
	return a.withCourse(args, func(uid, courseID string) error {
		quizID, err := arg(args, 1, "quiz id")
		if err != nil {
			return err
		}
		s, err := arg(args, 2, "score")
		if err != nil {
			return err
		}
		score, err := strconv.Atoi(s)
		if err != nil {
			return errs.Validation("score must be a number")
		}
		if err := a.r.SubmitQuizScore(ctx, uid, courseID, quizID, score); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "score saved")
		return nil
	})
}

func (a *app) cart(ctx context.Context, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "add":
		id, err := arg(args, 1, "course id")
		if err != nil {
			return err
		}
		c, err := a.r.FetchByID(ctx, id)
		if err != nil {
			return err
		}
		if err := a.r.AddToCart(ctx, c); err != nil {
			return err
		}
	case "rm":
		id, err := arg(args, 1, "course id")
		if err != nil {
			return err
		}
		a.r.RemoveFromCart(ctx, id)
	case "clear":
		a.r.ClearCart(ctx)
	case "show":
	default:
		return fmt.Errorf("%w: cart add|rm|clear|show", errUsage)
	}
	cart := a.r.Store().State().Cart
	for _, c := range cart.Items {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", c.ID, c.Title, c.Price)
	}
	fmt.Fprintf(a.out, "total\t%s\n", cart.Total)
	return nil
}

// shell reads one command per line until EOF or "exit". Errors are printed
// and do not end the session.
func (a *app) shell(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(a.out, "lk> ")
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		switch {
		case len(fields) == 0:
		case fields[0] == "exit" || fields[0] == "quit":
			return nil
		default:
			if err := a.run(ctx, fields); err != nil {
				fmt.Fprintf(a.errOut, "error: %s\n", describe(err))
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(a.out, "lk> ")
	}
	return sc.Err()
}

// describe renders err the way the backend phrased it.
func describe(err error) string {
	if errors.Is(err, errUsage) {
		return err.Error()
	}
	return errs.Message(err)
}
