// Command lk is the LearnKeeper command line client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/learnkeeper/internal/config"
	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/kv"
	"github.com/and161185/learnkeeper/internal/ops"
	"github.com/and161185/learnkeeper/internal/persist"
	"github.com/and161185/learnkeeper/internal/session"
	"github.com/and161185/learnkeeper/internal/store"
	grpctransport "github.com/and161185/learnkeeper/internal/transport/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `lk CLI
Usage:
  lk [-addr HOST:PORT] [-cacert file | -insecure | -plaintext] [-storage file|redis|memory] <cmd> [args]

Commands:
  version
  register    -e <email> -n <name> -p <password> [-c <confirm>]
  login       -e <email> -p <password>          (saves the session)
  logout
  status      [-check]
  profile     [-n <name>] [-p <password>]
  forgot      <email>
  courses     [-category <c> | -q <text> | -featured]
  course      <course id>
  lessons     <course id>
  enrolled
  enroll      <course id>
  is-enrolled <course id>
  rate        <course id> <1..5>
  progress
  complete    <course id> <lesson id>
  quiz        <course id> <quiz id> <0..100>
  cart        [add <course id> | rm <course id> | clear | show]
  checkout
  shell                                         (one command per line)
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	os.Exit(2)
}

// main wires the client stack and runs one command, or the shell.
func main() {
	cfg, args, err := config.LoadClient(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		usage()
	}
	if err != nil {
		fail(err)
	}
	if len(args) == 0 {
		usage()
	}

	logger, err := cfg.Logger()
	if err != nil {
		fail(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("config", zap.Any("cfg", cfg.Redacted()))
	if cfg.DefaultAnonKey {
		logger.Warn("no anon key configured, using the public development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kvs, err := kv.Open(ctx, cfg.KV())
	if err != nil {
		fail(err)
	}
	st := store.New(logger, store.Initial())

	creds, err := grpctransport.ClientCreds(cfg.CACert, cfg.Insecure, cfg.Plaintext)
	if err != nil {
		fail(err)
	}
	api, err := grpctransport.Dial(cfg.BackendURL, cfg.AnonKey, st.Token, logger,
		grpc.WithTransportCredentials(creds))
	if err != nil {
		fail(err)
	}

	session.Bootstrap(ctx, st, kvs, logger)
	if err := persist.Restore(ctx, kvs, st, logger); err != nil {
		logger.Warn("restore state", zap.Error(err))
	}
	saver := persist.NewSaver(st, kvs, logger)
	saveCtx, stopSaver := context.WithCancel(ctx)
	go saver.Run(saveCtx)

	a := &app{
		r:       ops.New(st, api, kvs, logger),
		out:     os.Stdout,
		errOut:  os.Stderr,
		timeout: cfg.Timeout,
		log:     logger,
	}
	if args[0] == "shell" {
		err = a.shell(ctx, os.Stdin)
	} else {
		err = a.run(ctx, args)
	}

	stopSaver()
	fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if ferr := saver.Flush(fctx); ferr != nil {
		logger.Warn("flush state", zap.Error(ferr))
	}
	cancel()
	st.Close()
	_ = api.Close()
	_ = kvs.Close()

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		usage()
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		fail(err)
	}
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrForbidden),
		errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrRateLimited):
		fmt.Fprintf(os.Stderr, "error: %s\n", errs.Message(err))
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
