package config

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/learnkeeper/internal/kv"
)

// Client configures the lk command.
type Client struct {
	BackendURL    string        `yaml:"backend_url"`
	AnonKey       string        `yaml:"anon_key"`
	Storage       string        `yaml:"storage"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	StateDir      string        `yaml:"state_dir"`
	LogLevel      string        `yaml:"log_level"`
	CACert        string        `yaml:"ca_cert"`
	Insecure      bool          `yaml:"insecure"`
	Plaintext     bool          `yaml:"plaintext"`
	Timeout       time.Duration `yaml:"timeout"`

	// DefaultAnonKey is set when no anon key was configured anywhere.
	DefaultAnonKey bool `yaml:"-"`
}

// DefaultClient returns the built-in client defaults.
func DefaultClient() Client {
	return Client{
		BackendURL: "localhost:8443",
		Storage:    kv.DriverFile,
		LogLevel:   "warn",
		Timeout:    30 * time.Second,
	}
}

// DefaultClientFile is $STATE_DIR/config.yaml.
func DefaultClientFile() string {
	return filepath.Join(kv.DefaultDir(), "config.yaml")
}

// LoadClient resolves the client configuration and returns the arguments
// left after the flags (the command and its arguments).
func LoadClient(args []string, stderr io.Writer) (Client, []string, error) {
	fs := flag.NewFlagSet("lk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file      = fs.String("config", "", "YAML config file (default $LK_CONFIG or <state dir>/config.yaml)")
		addr      = fs.String("addr", "", "backend address host:port")
		anonKey   = fs.String("anon-key", "", "backend anon key")
		storage   = fs.String("storage", "", "state storage: file, redis or memory")
		redisAddr = fs.String("redis-addr", "", "redis address for -storage redis")
		stateDir  = fs.String("state-dir", "", "directory for the state file")
		logLevel  = fs.String("log-level", "", "log level: debug, info, warn, error")
		caCert    = fs.String("cacert", "", "CA cert (PEM)")
		insecure  = fs.Bool("insecure", false, "skip cert verify (dev)")
		plaintext = fs.Bool("plaintext", false, "connect without TLS (dev)")
		timeout   = fs.Duration("timeout", 0, "per-command timeout")
	)
	if err := fs.Parse(args); err != nil {
		return Client{}, nil, err
	}

	e, err := loadEnv(".env")
	if err != nil {
		return Client{}, nil, err
	}

	cfg := DefaultClient()
	path, required := *file, *file != ""
	if !required {
		if v, ok := e.lookup("LK_CONFIG"); ok && v != "" {
			path, required = v, true
		} else {
			path = DefaultClientFile()
		}
	}
	if err := loadYAML(path, required, &cfg); err != nil {
		return Client{}, nil, err
	}

	e.str("LK_BACKEND_URL", &cfg.BackendURL)
	e.str("LK_ANON_KEY", &cfg.AnonKey)
	e.str("LK_STORAGE", &cfg.Storage)
	e.str("LK_REDIS_ADDR", &cfg.RedisAddr)
	e.str("LK_REDIS_PASSWORD", &cfg.RedisPassword)
	e.str("LK_STATE_DIR", &cfg.StateDir)
	e.str("LK_LOG_LEVEL", &cfg.LogLevel)
	e.str("LK_CACERT", &cfg.CACert)
	for _, err := range []error{
		e.integer("LK_REDIS_DB", &cfg.RedisDB),
		e.boolean("LK_INSECURE", &cfg.Insecure),
		e.boolean("LK_PLAINTEXT", &cfg.Plaintext),
		e.duration("LK_TIMEOUT", &cfg.Timeout),
	} {
		if err != nil {
			return Client{}, nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.BackendURL = *addr
		case "anon-key":
			cfg.AnonKey = *anonKey
		case "storage":
			cfg.Storage = *storage
		case "redis-addr":
			cfg.RedisAddr = *redisAddr
		case "state-dir":
			cfg.StateDir = *stateDir
		case "log-level":
			cfg.LogLevel = *logLevel
		case "cacert":
			cfg.CACert = *caCert
		case "insecure":
			cfg.Insecure = *insecure
		case "plaintext":
			cfg.Plaintext = *plaintext
		case "timeout":
			cfg.Timeout = *timeout
		}
	})

	if cfg.AnonKey == "" {
		cfg.AnonKey = DefaultAnonKey
		cfg.DefaultAnonKey = true
	}
	if err := cfg.validate(); err != nil {
		return Client{}, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c Client) validate() error {
	switch c.Storage {
	case kv.DriverFile, kv.DriverRedis, kv.DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.Storage == kv.DriverRedis && c.RedisAddr == "" {
		return fmt.Errorf("config: storage redis needs a redis address")
	}
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("config: backend address is empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// KV returns the options for kv.Open.
func (c Client) KV() kv.Options {
	return kv.Options{
		Driver:        c.Storage,
		Dir:           c.StateDir,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// Logger builds a console logger on stderr at the configured level.
func (c Client) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	return zc.Build()
}

// Redacted returns a copy safe to print.
func (c Client) Redacted() Client {
	if c.AnonKey != "" {
		c.AnonKey = "***"
	}
	if c.RedisPassword != "" {
		c.RedisPassword = "***"
	}
	return c
}

