package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[documents]
chunk_size = 500

[sql_agent]
read_only = true
max_pools = 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("SQL_AGENT_READ_ONLY", "false")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.App.Port)
	}
	if cfg.Documents.ChunkSize != 500 {
		t.Errorf("chunk_size = %d, want file value 500", cfg.Documents.ChunkSize)
	}
	if cfg.SQLAgent.ReadOnly {
		t.Errorf("read_only should be overridden to false")
	}
	if cfg.SQLAgent.MaxPools != 4 {
		t.Errorf("max_pools = %d, want 4", cfg.SQLAgent.MaxPools)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.JWTExpiration() != 1440*time.Minute {
		t.Errorf("jwt expiration = %v, want 24h default", cfg.JWTExpiration())
	}
}

func TestEnvFileLoaded(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LLM_MODEL=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "none.toml"))
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "from-dotenv" {
		t.Errorf("model = %q, want value from .env", cfg.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty secret")
	}
	cfg = defaultConfig()
	cfg.Documents.ChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
