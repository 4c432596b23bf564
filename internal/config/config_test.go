package config

import "testing"

func clearRelayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATABASE_URL", "MONGODB_URL", "REDIS_URL", "DOWNSTREAM_URL", "SECRET_KEY", "NUM_WORKERS", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_PATH"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	clearRelayEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_AcceptsLegacyMongoDBURL(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("MONGODB_URL", "postgres://localhost/webhooks")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SECRET_KEY", "secret")
	t.Setenv("DOWNSTREAM_URL", "http://localhost:9090/downstream/receive")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/webhooks" {
		t.Fatalf("expected DatabaseURL from MONGODB_URL fallback, got %q", cfg.DatabaseURL)
	}
}

func TestLoad_DatabaseURLTakesPrecedence(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("DATABASE_URL", "postgres://primary/webhooks")
	t.Setenv("MONGODB_URL", "postgres://legacy/webhooks")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SECRET_KEY", "secret")
	t.Setenv("DOWNSTREAM_URL", "http://localhost:9090/downstream/receive")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://primary/webhooks" {
		t.Fatalf("expected DATABASE_URL to win, got %q", cfg.DatabaseURL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/webhooks")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("SECRET_KEY", "secret")
	t.Setenv("DOWNSTREAM_URL", "http://localhost:9090/downstream/receive")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.NumWorkers != 50 {
		t.Errorf("expected default 50 workers, got %d", cfg.NumWorkers)
	}
}

func TestLoadDownstream_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("PORT", "")
	t.Setenv("DOWNSTREAM_FAILURE_RATE", "")
	t.Setenv("DOWNSTREAM_FORCE_OUTCOME", "")

	cfg, err := LoadDownstream()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected default port 9090, got %q", cfg.Port)
	}
	if cfg.FailureRate != 0.20 {
		t.Errorf("expected default failure rate 0.20, got %v", cfg.FailureRate)
	}
}

func TestLoadDownstream_MissingRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	if _, err := LoadDownstream(); err == nil {
		t.Fatal("expected error when REDIS_URL is unset")
	}
}
