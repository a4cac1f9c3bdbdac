// Package config loads client and server settings. Sources are applied in
// order, later ones winning: built-in defaults, an optional YAML file, a
// .env file, the process environment, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAnonKey is the public development key. Using it is allowed but
// logged as a warning.
const DefaultAnonKey = "lk-dev-anon-key"

// env resolves variables from the process environment first, then from a
// .env file. The .env values never leak into the process environment.
type env struct {
	dotenv map[string]string
}

func loadEnv(dotenvPath string) (env, error) {
	m, err := godotenv.Read(dotenvPath)
	if errors.Is(err, fs.ErrNotExist) {
		return env{}, nil
	}
	if err != nil {
		return env{}, fmt.Errorf("read %s: %w", dotenvPath, err)
	}
	return env{dotenv: m}, nil
}

func (e env) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := e.dotenv[key]
	return v, ok
}

func (e env) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e env) boolean(key string, dst *bool) error {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func (e env) integer(key string, dst *int) error {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func (e env) duration(key string, dst *time.Duration) error {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// loadYAML decodes path into cfg. A missing file is not an error unless
// required is set.
func loadYAML(path string, required bool, cfg any) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML config file %s: %w", path, err)
	}
	return nil
}
