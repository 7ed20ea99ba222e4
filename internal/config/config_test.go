package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("chemstore", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.Database.Backend != BackendDuckDB {
		t.Fatalf("Database.Backend = %q", cfg.Database.Backend)
	}
	if cfg.Database.Path != "data/chemstore.db" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Auth.DefaultAdminUser != "admin" {
		t.Fatalf("Auth.DefaultAdminUser = %q", cfg.Auth.DefaultAdminUser)
	}
	if cfg.DocStore.Backend != "local" {
		t.Fatalf("DocStore.Backend = %q", cfg.DocStore.Backend)
	}
	if cfg.DocStore.Endpoint != "localhost:9000" {
		t.Fatalf("DocStore.Endpoint = %q", cfg.DocStore.Endpoint)
	}
	if cfg.PubChem.Timeout != 15*time.Second {
		t.Fatalf("PubChem.Timeout = %v", cfg.PubChem.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHEMSTORE_PROFILE": "prod"})
	cfg, err := Load("chemstore", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.DocStore.UseSSL {
		t.Fatal("DocStore.UseSSL should default to true in prod")
	}
	if cfg.DocStore.AutoCreateBucket {
		t.Fatal("DocStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"CHEMSTORE_DB_BACKEND":              "postgres",
		"CHEMSTORE_DB_DSN":                  "postgres://app:secret@db:5432/inventory",
		"CHEMSTORE_AUTH_DEFAULT_ADMIN_USER": "root",
		"CHEMSTORE_AUTH_BCRYPT_COST":        "12",
		"CHEMSTORE_DOCSTORE_BACKEND":        "s3",
		"CHEMSTORE_DOCSTORE_BUCKET":         "sds-sheets",
		"CHEMSTORE_PUBCHEM_TIMEOUT":         "3s",
		"CHEMSTORE_LOG_JSON":                "false",
		"CHEMSTORE_LOG_LEVEL":               "warn",
	})
	cfg, err := Load("chemstore", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Backend != BackendPostgres {
		t.Fatalf("Database.Backend = %q", cfg.Database.Backend)
	}
	if cfg.Database.DSN != "postgres://app:secret@db:5432/inventory" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Auth.DefaultAdminUser != "root" {
		t.Fatalf("Auth.DefaultAdminUser = %q", cfg.Auth.DefaultAdminUser)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("Auth.BcryptCost = %d", cfg.Auth.BcryptCost)
	}
	if cfg.DocStore.Bucket != "sds-sheets" {
		t.Fatalf("DocStore.Bucket = %q", cfg.DocStore.Bucket)
	}
	if cfg.PubChem.Timeout != 3*time.Second {
		t.Fatalf("PubChem.Timeout = %v", cfg.PubChem.Timeout)
	}
	if cfg.Observability.LogJSON {
		t.Fatal("LogJSON should be overridden to false")
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHEMSTORE_PROFILE": "staging"})
	if _, err := Load("chemstore", lookup); err == nil {
		t.Fatal("expected error for invalid profile")
	}
}

func TestLoadRejectsInvalidBackend(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHEMSTORE_DB_BACKEND": "oracle"})
	if _, err := Load("chemstore", lookup); err == nil {
		t.Fatal("expected error for invalid backend")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHEMSTORE_DB_BACKEND": "postgres"})
	if _, err := Load("chemstore", lookup); err == nil {
		t.Fatal("expected error when postgres backend has no DSN")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHEMSTORE_PUBCHEM_TIMEOUT": "soon"})
	if _, err := Load("chemstore", lookup); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
