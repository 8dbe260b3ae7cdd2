package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile         = ".env"
	defaultHTTPAddr        = ":8080"
	defaultBasePath        = "/admin"
	defaultEnvironment     = "local"
	defaultAPITimeout      = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
)

// Config captures the admin console runtime configuration organised by concern.
type Config struct {
	HTTP        HTTPConfig
	Environment string
	API         APIConfig
	Session     SessionConfig
	Firebase    FirebaseConfig
	Modules     map[string]ModuleConfig
	LogLevel    string
}

// HTTPConfig configures the console listener.
type HTTPConfig struct {
	Address         string
	BasePath        string
	ShutdownTimeout time.Duration
}

// APIConfig points the console at the CRM REST API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	// SessionCookie is the name of the upstream session cookie forwarded with every request.
	SessionCookie string
}

// SessionConfig holds the securecookie keys for the staff session.
type SessionConfig struct {
	HashKey  string
	BlockKey string
}

// FirebaseConfig enables Firebase ID token verification when ProjectID is set.
type FirebaseConfig struct {
	ProjectID string
	// WebAPIKey is the public key the login page uses to exchange a password for an ID token.
	WebAPIKey string
}

// ModuleConfig overrides one CRM module's endpoint or paging.
type ModuleConfig struct {
	Path        string `yaml:"path"`
	PageSubpath string `yaml:"pageSubpath"`
	PageSize    int    `yaml:"pageSize"`
	Paging      string `yaml:"paging"`
}

type modulesFile struct {
	Modules map[string]ModuleConfig `yaml:"modules"`
}

// Local reports whether the console runs on a developer machine.
func (c Config) Local() bool {
	return c.Environment == "" || c.Environment == "local" || c.Environment == "development"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment and
// explicit overrides, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultHTTPAddr),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Environment: strings.ToLower(stringWithDefault(lookup, "ADMIN_ENVIRONMENT", defaultEnvironment)),
		API: APIConfig{
			BaseURL:       strings.TrimSpace(stringWithDefault(lookup, "CRM_API_BASE_URL", "")),
			Timeout:       durationWithDefault(lookup, "CRM_API_TIMEOUT", defaultAPITimeout),
			SessionCookie: strings.TrimSpace(stringWithDefault(lookup, "CRM_API_SESSION_COOKIE", "")),
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, "ADMIN_SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, "ADMIN_SESSION_BLOCK_KEY", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID: strings.TrimSpace(stringWithDefault(lookup, "FIREBASE_PROJECT_ID", "")),
			WebAPIKey: strings.TrimSpace(stringWithDefault(lookup, "FIREBASE_WEB_API_KEY", "")),
		},
		LogLevel: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
	}

	if path := strings.TrimSpace(stringWithDefault(lookup, "ADMIN_MODULES_FILE", "")); path != "" {
		modules, err := LoadModules(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Modules = modules
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadModules reads module overrides from a YAML file of the form
//
//	modules:
//	  payments:
//	    paging: server
//	    pageSubpath: paginate
func LoadModules(path string) (map[string]ModuleConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read modules file %s: %w", path, err)
	}
	var doc modulesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse modules file %s: %w", path, err)
	}
	out := make(map[string]ModuleConfig, len(doc.Modules))
	for key, module := range doc.Modules {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = module
	}
	return out, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.HTTP.Address) == "" {
		missing = append(missing, "HTTP.Address")
	}
	if !strings.HasPrefix(cfg.HTTP.BasePath, "/") {
		missing = append(missing, "HTTP.BasePath")
	}
	if u, err := url.Parse(cfg.API.BaseURL); cfg.API.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		missing = append(missing, "API.BaseURL")
	}
	if cfg.API.Timeout <= 0 {
		missing = append(missing, "API.Timeout")
	}
	if !cfg.Local() && len(cfg.Session.HashKey) < 32 {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "LogLevel")
	}
	for key, module := range cfg.Modules {
		switch strings.ToLower(strings.TrimSpace(module.Paging)) {
		case "", "server", "client":
		default:
			missing = append(missing, fmt.Sprintf("Modules[%s].Paging", key))
		}
		if module.PageSize < 0 {
			missing = append(missing, fmt.Sprintf("Modules[%s].PageSize", key))
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
