// Package config loads wishrank settings.
//
// Values are layered, later layers winning:
//
//	defaults -> YAML file -> .env file -> WISHRANK_* environment -> overrides
//
// The merged result is checked against an embedded CUE schema before use.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/wishrank/internal/key"
)

//go:embed schema.cue
var schemaSource string

// Config is the full wishrank configuration.
type Config struct {
	Database Database `yaml:"database" json:"database"`
	HTTP     HTTP     `yaml:"http" json:"http"`
	Ordering Ordering `yaml:"ordering" json:"ordering"`
	Redis    Redis    `yaml:"redis" json:"redis"`
	Log      Log      `yaml:"log" json:"log"`
}

// Database selects the store driver and data source.
type Database struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// HTTP configures the API server.
type HTTP struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Ordering holds the engine parameters. Step and Epsilon are decimal
// strings so they survive YAML without float rounding.
type Ordering struct {
	Step            string `yaml:"step" json:"step"`
	Epsilon         string `yaml:"epsilon" json:"epsilon"`
	DefaultPageSize int    `yaml:"default_page_size" json:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size" json:"max_page_size"`
	AutoRebalance   bool   `yaml:"auto_rebalance" json:"auto_rebalance"`
}

// Redis enables the cross-process rebalance lock when Addr is set.
type Redis struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Log configures the log level: debug, info, warn or error.
type Log struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite3", DSN: "wishrank.db"},
		HTTP:     HTTP{Addr: ":8080"},
		Ordering: Ordering{
			Step:            "1024",
			Epsilon:         "0.000000001",
			DefaultPageSize: 20,
			MaxPageSize:     50,
			AutoRebalance:   true,
		},
		Log: Log{Level: "info"},
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks c against the schema. Step and epsilon must also be
// strictly positive.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var problems []string
	v := schema.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
	}

	for _, f := range []struct{ name, value string }{
		{"ordering.step", c.Ordering.Step},
		{"ordering.epsilon", c.Ordering.Epsilon},
	} {
		k, err := key.Parse(f.value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.name, err))
			continue
		}
		if k.Sign() <= 0 {
			problems = append(problems, fmt.Sprintf("%s: must be positive, got %s", f.name, f.value))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Keys parses the ordering step and epsilon.
func (o Ordering) Keys() (step, epsilon key.Key, err error) {
	if step, err = key.Parse(o.Step); err != nil {
		return key.Key{}, key.Key{}, fmt.Errorf("ordering.step: %w", err)
	}
	if epsilon, err = key.Parse(o.Epsilon); err != nil {
		return key.Key{}, key.Key{}, fmt.Errorf("ordering.epsilon: %w", err)
	}
	return step, epsilon, nil
}

// SlogLevel returns the configured level, or info if it does not parse.
func (l Log) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
