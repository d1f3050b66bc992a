// Package config resolves the tool's runtime configuration: target
// environment, server locations, and credentials. Values come from flags,
// UCX_-prefixed environment variables, and an optional ucx.yaml, in that
// order of precedence. Required values are validated up front so a
// misconfigured run aborts before touching either external system.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Environment is the remote-settings deployment target.
type Environment string

const (
	EnvDev   Environment = "dev"
	EnvStage Environment = "stage"
	EnvProd  Environment = "prod"
)

// Remote-settings collection coordinates.
const (
	Bucket     = "main-workspace"
	Collection = "url-classifier-exceptions"
)

// Bugzilla search scope for ETP site report bugs.
const (
	DefaultProduct   = "Web Compatibility"
	DefaultComponent = "Privacy: Site Reports"
)

// Config is the resolved configuration threaded through every component.
// There is no global state; each client receives the values it needs.
type Config struct {
	Env            Environment
	ServerLocation string // remote-settings writer API base URL
	PublishedURL   string // read-side records endpoint for the environment
	AuthToken      string
	BugzillaAPIKey string
	BugzillaURL    string
	Product        string
	Component      string
}

// Options carries the raw CLI inputs into Load.
type Options struct {
	Server         string // dev | stage | prod
	ServerLocation string // explicit override of the writer URL
	AuthToken      string
	// RequireBugzillaKey is set for commands that mutate Bugzilla; the
	// key's absence is then a startup error rather than a late failure.
	RequireBugzillaKey bool
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("ucx")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("UCX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// BZ_API_KEY predates this tool; keep reading it unprefixed.
	_ = v.BindEnv("bz-api-key", "BZ_API_KEY", "UCX_BZ_API_KEY")
	_ = v.BindEnv("auth-token", "UCX_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// Load resolves and validates configuration. All validation failures here
// are fatal: nothing has been processed yet, so aborting is safe.
func Load(opts Options) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	env := Environment(strings.ToLower(opts.Server))
	switch env {
	case EnvDev, EnvStage, EnvProd:
	case "":
		return nil, fmt.Errorf("missing required --server (dev, stage, or prod)")
	default:
		return nil, fmt.Errorf("invalid server %q (want dev, stage, or prod)", opts.Server)
	}

	locations := loadLocations(v.GetString("locations-file"))

	cfg := &Config{
		Env:            env,
		ServerLocation: opts.ServerLocation,
		PublishedURL:   locations.published(env),
		AuthToken:      opts.AuthToken,
		BugzillaAPIKey: v.GetString("bz-api-key"),
		BugzillaURL:    v.GetString("bugzilla-url"),
		Product:        DefaultProduct,
		Component:      DefaultComponent,
	}
	if cfg.ServerLocation == "" {
		cfg.ServerLocation = locations.writer(env)
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = v.GetString("auth-token")
	}
	if product := v.GetString("product"); product != "" {
		cfg.Product = product
	}
	if component := v.GetString("component"); component != "" {
		cfg.Component = component
	}

	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing required auth token (--auth or UCX_AUTH_TOKEN)")
	}
	if opts.RequireBugzillaKey && cfg.BugzillaAPIKey == "" {
		return nil, fmt.Errorf("missing required Bugzilla API key (BZ_API_KEY)")
	}

	return cfg, nil
}

// BugzillaConfig is the subset used by the bz-* commands, which never
// touch the remote-settings store and so need no server or auth token.
type BugzillaConfig struct {
	APIKey  string
	BaseURL string
}

// LoadBugzilla resolves the Bugzilla-only configuration.
func LoadBugzilla(requireKey bool) (*BugzillaConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg := &BugzillaConfig{
		APIKey:  v.GetString("bz-api-key"),
		BaseURL: v.GetString("bugzilla-url"),
	}
	if requireKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("missing required Bugzilla API key (BZ_API_KEY)")
	}
	return cfg, nil
}

// IsProd reports whether lifecycle advancement (closing bugs, needinfo)
// is permitted. Only production syncs may touch bug state.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev reports whether the target is the dev server, which has the
// review step disabled.
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}
