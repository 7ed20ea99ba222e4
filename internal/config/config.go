package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Backend string

const (
	BackendDuckDB   Backend = "duckdb"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	DocStore      DocStoreConfig
	PubChem       PubChemConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type DatabaseConfig struct {
	Backend Backend
	// Path is the database file for the duckdb backend.
	Path string
	// DSN is the connection string for the postgres backend.
	DSN string
}

type AuthConfig struct {
	DefaultAdminUser     string
	DefaultAdminPassword string
	BcryptCost           int
}

type DocStoreConfig struct {
	// Backend is "local" or "s3".
	Backend          string
	LocalDir         string
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type PubChemConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("CHEMSTORE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid CHEMSTORE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "CHEMSTORE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}

	var backend string
	if err := applyString(lookup, "CHEMSTORE_DB_BACKEND", &backend); err != nil {
		return Config{}, err
	}
	if backend != "" {
		cfg.Database.Backend = Backend(strings.ToLower(backend))
	}
	if err := applyString(lookup, "CHEMSTORE_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DB_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "CHEMSTORE_AUTH_DEFAULT_ADMIN_USER", &cfg.Auth.DefaultAdminUser); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_AUTH_DEFAULT_ADMIN_PASSWORD", &cfg.Auth.DefaultAdminPassword); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHEMSTORE_AUTH_BCRYPT_COST", &cfg.Auth.BcryptCost); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_BACKEND", &cfg.DocStore.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_DIR", &cfg.DocStore.LocalDir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_ENDPOINT", &cfg.DocStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_REGION", &cfg.DocStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_BUCKET", &cfg.DocStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_ACCESS_KEY", &cfg.DocStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_SECRET_KEY", &cfg.DocStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHEMSTORE_DOCSTORE_USE_SSL", &cfg.DocStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHEMSTORE_DOCSTORE_PREFIX", &cfg.DocStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHEMSTORE_DOCSTORE_AUTO_CREATE_BUCKET", &cfg.DocStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "CHEMSTORE_PUBCHEM_BASE_URL", &cfg.PubChem.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHEMSTORE_PUBCHEM_TIMEOUT", &cfg.PubChem.Timeout); err != nil {
		return Config{}, err
	}

	if err := applyBool(lookup, "CHEMSTORE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "CHEMSTORE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	switch cfg.Database.Backend {
	case BackendDuckDB:
		if cfg.Database.Path == "" {
			return Config{}, fmt.Errorf("CHEMSTORE_DB_PATH is required for the duckdb backend")
		}
	case BackendPostgres:
		if cfg.Database.DSN == "" {
			return Config{}, fmt.Errorf("CHEMSTORE_DB_DSN is required for the postgres backend")
		}
	default:
		return Config{}, fmt.Errorf("invalid CHEMSTORE_DB_BACKEND: %q", cfg.Database.Backend)
	}
	if cfg.Auth.DefaultAdminUser == "" {
		return Config{}, fmt.Errorf("default admin username is required")
	}
	if cfg.Auth.DefaultAdminPassword == "" {
		return Config{}, fmt.Errorf("default admin password is required")
	}

	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "chemstore"},
		Database: DatabaseConfig{
			Backend: BackendDuckDB,
			Path:    "data/chemstore.db",
		},
		Auth: AuthConfig{
			DefaultAdminUser:     "admin",
			DefaultAdminPassword: "admin1234",
			BcryptCost:           0,
		},
		DocStore: DocStoreConfig{
			Backend:          "local",
			LocalDir:         "data/sds",
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "chemstore-sds",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		PubChem: PubChemConfig{
			BaseURL: "https://pubchem.ncbi.nlm.nih.gov/rest/pug",
			Timeout: 15 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.DocStore.UseSSL = true
		cfg.DocStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
