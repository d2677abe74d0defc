package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "WISHRANK_"

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is a YAML file. Empty skips the file layer; a named file that
	// does not exist is an error.
	Path string

	// EnvFile is a dotenv file. A missing file is skipped. Variables set in
	// the real environment take precedence over the file.
	EnvFile string

	// LookupEnv reads the environment. Default: os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Override runs last, before validation. The CLI applies its flags here.
	Override func(*Config)
}

// Load builds a validated Config from the layers in opts.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := loadYAML(opts.Path, &cfg); err != nil {
			return Config{}, err
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.EnvFile != "" {
		fileEnv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
		}
		lookup = layered(lookup, fileEnv)
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if opts.Override != nil {
		opts.Override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// layered consults the environment first and falls back to file values.
func layered(env func(string) (string, bool), file map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := env(name); ok {
			return v, true
		}
		v, ok := file[name]
		return v, ok
	}
}

type envBinding struct {
	name string
	set  func(cfg *Config, v string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

var envBindings = []envBinding{
	{"DATABASE_DRIVER", setString(func(c *Config) *string { return &c.Database.Driver })},
	{"DATABASE_DSN", setString(func(c *Config) *string { return &c.Database.DSN })},
	{"HTTP_ADDR", setString(func(c *Config) *string { return &c.HTTP.Addr })},
	{"ORDERING_STEP", setString(func(c *Config) *string { return &c.Ordering.Step })},
	{"ORDERING_EPSILON", setString(func(c *Config) *string { return &c.Ordering.Epsilon })},
	{"ORDERING_DEFAULT_PAGE_SIZE", setInt(func(c *Config) *int { return &c.Ordering.DefaultPageSize })},
	{"ORDERING_MAX_PAGE_SIZE", setInt(func(c *Config) *int { return &c.Ordering.MaxPageSize })},
	{"ORDERING_AUTO_REBALANCE", setBool(func(c *Config) *bool { return &c.Ordering.AutoRebalance })},
	{"REDIS_ADDR", setString(func(c *Config) *string { return &c.Redis.Addr })},
	{"LOG_LEVEL", setString(func(c *Config) *string { return &c.Log.Level })},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}
