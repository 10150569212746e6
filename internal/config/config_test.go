package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入 %s 失败: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsAndCredentialOverlay(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "creds.env", "API_KEY_2=DEMO_API_KEY_2\nAPI_SECRET_2=API_SECRET_2\nAPI_ACCOUNT_2=ACC2\n")
	cfgPath := writeFile(t, dir, "config.yaml", `
app:
  env_file: `+envFile+`
exchange:
  base_url: http://localhost:8000
database:
  in_memory: true
credentials:
  - api_key: DEMO_API_KEY_1
    api_secret: API_SECRET_1
    account: ACC1
`)

	t.Setenv("API_SECRET_1", "FROM_ENV")
	t.Setenv("LISTER_RUN_DRY_RUN", "false")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Run.RateLimit != 10 || cfg.Run.BackoffFactor != 2 || cfg.Run.RetryAttempts != 3 {
		t.Errorf("unexpected run defaults: %+v", cfg.Run)
	}
	if cfg.Run.DryRun {
		t.Errorf("expected LISTER_RUN_DRY_RUN to disable dry run")
	}
	if cfg.Exchange.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %s", cfg.Exchange.Timeout)
	}

	first := cfg.Credential(1)
	if first.APIKey != "DEMO_API_KEY_1" || first.APISecret != "FROM_ENV" || first.Account != "ACC1" {
		t.Errorf("unexpected slot 1 credential: %+v", first)
	}
	second := cfg.Credential(2)
	if !second.Complete() || second.Account != "ACC2" {
		t.Errorf("expected slot 2 from env file, got %+v", second)
	}
	if cfg.Credential(3).Complete() {
		t.Errorf("slot 3 should be empty")
	}
	if cfg.Credential(0).Complete() {
		t.Errorf("slot 0 should be empty")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Config{
		App:      AppConfig{Environment: "test"},
		Exchange: ExchangeConfig{BaseURL: "localhost", Timeout: time.Second},
		Run:      RunConfig{RateLimit: 0, BackoffFactor: 0.5, RetryAttempts: 0},
		Input:    InputConfig{OrdersPath: "o.csv", PrecisionPath: "p.csv"},
		Database: DatabaseConfig{InMemory: true, MaxOpenConns: 1},
		Logging: LoggingConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"exchange.base_url", "run.rate_limit", "run.backoff_factor", "run.retry_attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}
