package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"CRM_API_BASE_URL": "http://localhost:5000/api",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTP.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.HTTP.Address)
	}
	if cfg.HTTP.BasePath != "/admin" {
		t.Errorf("expected default base path /admin, got %s", cfg.HTTP.BasePath)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("unexpected api timeout: %s", cfg.API.Timeout)
	}
	if cfg.Environment != "local" || !cfg.Local() {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", cfg.LogLevel)
	}
	if len(cfg.Modules) != 0 {
		t.Errorf("expected no module overrides, got %v", cfg.Modules)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"ADMIN_HTTP_ADDR":         ":9000",
		"ADMIN_BASE_PATH":         "/crm",
		"ADMIN_ENVIRONMENT":       "Production",
		"CRM_API_BASE_URL":        "https://crm.example.com/api",
		"CRM_API_TIMEOUT":         "5s",
		"CRM_API_SESSION_COOKIE":  "connect.sid",
		"ADMIN_SESSION_HASH_KEY":  "0123456789abcdef0123456789abcdef",
		"ADMIN_SESSION_BLOCK_KEY": "0123456789abcdef",
		"FIREBASE_PROJECT_ID":     "travel-prod",
		"FIREBASE_WEB_API_KEY":    "web-key",
		"LOG_LEVEL":               "DEBUG",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTP.Address != ":9000" || cfg.HTTP.BasePath != "/crm" {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Environment != "production" || cfg.Local() {
		t.Errorf("expected production environment, got %s", cfg.Environment)
	}
	if cfg.API.Timeout != 5*time.Second || cfg.API.SessionCookie != "connect.sid" {
		t.Errorf("unexpected api config: %+v", cfg.API)
	}
	if cfg.Firebase.ProjectID != "travel-prod" || cfg.Firebase.WebAPIKey != "web-key" {
		t.Errorf("unexpected firebase project: %s", cfg.Firebase.ProjectID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"ADMIN_BASE_PATH":         "admin",
		"ADMIN_ENVIRONMENT":       "staging",
		"CRM_API_BASE_URL":        "crm.example.com",
		"ADMIN_SESSION_BLOCK_KEY": "short",
		"LOG_LEVEL":               "verbose",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	want := map[string]bool{
		"HTTP.BasePath":    true,
		"API.BaseURL":      true,
		"Session.HashKey":  true,
		"Session.BlockKey": true,
		"LogLevel":         true,
	}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected field %s", f)
		}
	}
}

func TestLoadReadsDotEnvAndModulesFile(t *testing.T) {
	dir := t.TempDir()
	modulesPath := filepath.Join(dir, "modules.yaml")
	if err := os.WriteFile(modulesPath, []byte(`
modules:
  payments:
    paging: server
    pageSubpath: paginate
    pageSize: 25
  local-support:
    path: v2/local-support
`), 0o600); err != nil {
		t.Fatalf("write modules file: %v", err)
	}

	envPath := filepath.Join(dir, ".env")
	content := "# local overrides\nexport CRM_API_BASE_URL=\"http://127.0.0.1:5000/api\"\nADMIN_MODULES_FILE=" + modulesPath + "\nLOG_LEVEL=warn\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{"LOG_LEVEL": "error"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:5000/api" {
		t.Errorf("expected base url from .env, got %s", cfg.API.BaseURL)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("expected env map to win over .env, got %s", cfg.LogLevel)
	}
	payments := cfg.Modules["payments"]
	if payments.Paging != "server" || payments.PageSubpath != "paginate" || payments.PageSize != 25 {
		t.Errorf("unexpected payments override: %+v", payments)
	}
	if cfg.Modules["local-support"].Path != "v2/local-support" {
		t.Errorf("unexpected local-support override: %+v", cfg.Modules["local-support"])
	}
}

func TestLoadModulesRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	if err := os.WriteFile(path, []byte("modules: ["), 0o600); err != nil {
		t.Fatalf("write modules file: %v", err)
	}
	if _, err := LoadModules(path); err == nil {
		t.Fatal("expected parse error")
	}
}
