// Package config holds the application configuration for the frummy web
// template. Two values are non negotiable and come from the environment:
// the backend URL and the public API key. Everything else has a default
// that works out of the box.
package config

import (
	"context"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

const (
	EnvBackendURL = "SUPABASE_URL"
	EnvAnonKey    = "SUPABASE_ANON_KEY"
	EnvPort       = "PORT"
	EnvDSN        = "FRUMMY_DB"
	EnvEnv        = "FRUMMY_ENV"
)

type App struct {
	Name string `json:"name"`
	Env  string `json:"env"`
	Port int    `json:"port"`
}

type Backend struct {
	URL     string `json:"url"`
	AnonKey string `json:"anon_key"`
}

type Auth struct {
	CookieName           string `json:"cookie_name"`
	CookieDuration       int    `json:"cookie_duration"`
	LoginPath            string `json:"login_path"`
	RejectedRouteKey     string `json:"rejected_route_key"`
	RejectedRouteDefault string `json:"rejected_route_default"`
}

type Persistence struct {
	DSN string `json:"dsn"`
}

type Views struct {
	Dir      string `json:"dir"`
	Assets   string `json:"assets"`
	DistDir  string `json:"dist_dir"`
	Embedded bool   `json:"embedded"`
}

type BaseConfig struct {
	App         App         `json:"app"`
	Backend     Backend     `json:"backend"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
	Views       Views       `json:"views"`
}

func Default() *BaseConfig {
	return &BaseConfig{
		App: App{
			Name: "frummy",
			Env:  "development",
			Port: 5173,
		},
		Auth: Auth{
			CookieName:           "frummy_session",
			CookieDuration:       24,
			LoginPath:            "/auth/login",
			RejectedRouteKey:     "rejected_route",
			RejectedRouteDefault: "/app",
		},
		Views: Views{
			Dir:     "views",
			Assets:  "public",
			DistDir: "dist",
		},
	}
}

// Load builds the runtime configuration: defaults, optional config file
// through go-config, then environment overrides. Validation failures are
// fatal to the caller, a template with no backend to talk to cannot limp.
func Load(ctx context.Context, lgr *glog.BaseLogger) (*BaseConfig, error) {
	base := Default()

	container := gconfig.New(base)
	if lgr != nil {
		container = container.WithLogger(lgr.GetLogger("config"))
	}

	if err := container.Load(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load configuration")
	}

	cfg := container.Raw()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid configuration").
			WithTextCode("CONFIG_INVALID")
	}

	return cfg, nil
}

// ApplyEnv copies recognized environment variables over the loaded values.
func (c *BaseConfig) ApplyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvAnonKey); v != "" {
		c.Backend.AnonKey = v
	}
	if v := os.Getenv(EnvEnv); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.Persistence.DSN = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.App.Port = port
		}
	}
}

// Validate enforces the two required backend values and sanity checks the
// rest.
func (c *BaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Backend,
				validation.Field(&c.Backend.URL, validation.Required, is.URL),
				validation.Field(&c.Backend.AnonKey, validation.Required),
			)
		})),
		validation.Field(&c.App, validation.By(func(any) error {
			return validation.ValidateStruct(&c.App,
				validation.Field(&c.App.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			)
		})),
	)
}

func (c *BaseConfig) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *BaseConfig) GetBackendURL() string { return c.Backend.URL }

func (c *BaseConfig) GetAnonKey() string { return c.Backend.AnonKey }

func (c *BaseConfig) GetCookieName() string { return c.Auth.CookieName }

func (c *BaseConfig) GetCookieDuration() int { return c.Auth.CookieDuration }

func (c *BaseConfig) GetLoginPath() string { return c.Auth.LoginPath }

func (c *BaseConfig) GetRejectedRouteKey() string { return c.Auth.RejectedRouteKey }

func (c *BaseConfig) GetRejectedRouteDefault() string { return c.Auth.RejectedRouteDefault }
