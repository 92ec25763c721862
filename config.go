package rest

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings that shape every route registered on a Router.
type Config struct {
	// Name is the service name, used as the document title when the
	// router has none.
	Name string `yaml:"name"`
	// Debug adds request and response bodies to audit records.
	Debug bool `yaml:"debug"`

	Route     RouteConfig     `yaml:"route"`
	BasicAuth BasicAuthConfig `yaml:"basic_auth"`
	RateLimit RateConfig      `yaml:"rate_limit"`
	Limits    LimitConfig     `yaml:"limits"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Health    HealthConfig    `yaml:"health"`
}

// RouteConfig selects the decorators applied to convention routes.
type RouteConfig struct {
	// Converters lists the path converters in effect. "uuid" rejects
	// malformed identifiers of uuid namespaces with 404.
	Converters          []string `yaml:"converters"`
	EnableAudit         bool     `yaml:"enable_audit"`
	EnableBasicAuth     bool     `yaml:"enable_basic_auth"`
	EnableContextLogger bool     `yaml:"enable_context_logger"`
	EnableCORS          bool     `yaml:"enable_cors"`
	EnableMetrics       bool     `yaml:"enable_metrics"`
}

// HasConverter reports whether the named converter is enabled.
func (c RouteConfig) HasConverter(name string) bool {
	return slices.Contains(c.Converters, name)
}

// BasicAuthConfig holds the credentials accepted by the basic auth decorator.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Realm    string `yaml:"realm"`
}

// RateConfig enables per-client rate limiting when Rate is positive.
type RateConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// DiscoveryConfig configures the discovery convention.
type DiscoveryConfig struct {
	Name       string   `yaml:"name"`
	Operations []string `yaml:"operations"`
}

// HealthConfig configures the health convention.
type HealthConfig struct {
	PathPrefix string `yaml:"path_prefix"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Route: RouteConfig{
			Converters:          []string{"uuid"},
			EnableAudit:         true,
			EnableContextLogger: true,
			EnableCORS:          true,
		},
		BasicAuth: BasicAuthConfig{Realm: "Restricted"},
		Discovery: DiscoveryConfig{
			Name:       "all",
			Operations: []string{Search.Name()},
		},
		Health: HealthConfig{PathPrefix: DefaultPath},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables:
//
//	SERVICE_NAME, DEBUG,
//	ROUTE_CONVERTERS (comma separated), ROUTE_ENABLE_AUDIT,
//	ROUTE_ENABLE_BASIC_AUTH, ROUTE_ENABLE_CONTEXT_LOGGER,
//	ROUTE_ENABLE_CORS, ROUTE_ENABLE_METRICS,
//	BASIC_AUTH_USERNAME, BASIC_AUTH_PASSWORD,
//	RATE_LIMIT_RATE, RATE_LIMIT_BURST,
//	MAX_BODY_BYTES, REQUEST_TIMEOUT (a time.Duration string)
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	str("SERVICE_NAME", &c.Name)
	boolean("DEBUG", &c.Debug)

	if v, ok := lookup("ROUTE_CONVERTERS"); ok {
		c.Route.Converters = nil
		for conv := range strings.SplitSeq(v, ",") {
			if conv = strings.TrimSpace(conv); conv != "" {
				c.Route.Converters = append(c.Route.Converters, conv)
			}
		}
	}
	boolean("ROUTE_ENABLE_AUDIT", &c.Route.EnableAudit)
	boolean("ROUTE_ENABLE_BASIC_AUTH", &c.Route.EnableBasicAuth)
	boolean("ROUTE_ENABLE_CONTEXT_LOGGER", &c.Route.EnableContextLogger)
	boolean("ROUTE_ENABLE_CORS", &c.Route.EnableCORS)
	boolean("ROUTE_ENABLE_METRICS", &c.Route.EnableMetrics)

	str("BASIC_AUTH_USERNAME", &c.BasicAuth.Username)
	str("BASIC_AUTH_PASSWORD", &c.BasicAuth.Password)

	if v, ok := lookup("RATE_LIMIT_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RATE: %w", err))
		} else {
			c.RateLimit.Rate = f
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
		} else {
			c.RateLimit.Burst = n
		}
	}

	if v, ok := lookup("MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_BODY_BYTES: %w", err))
		} else {
			c.Limits.MaxBodyBytes = n
		}
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
		} else {
			c.Limits.Timeout = d
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config from environment: %w", err)
	}
	return nil
}
