// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
//
// Keys are dotted paths such as "db.host"; the matching environment variable
// upper-cases the path and replaces dots with underscores (DB_HOST).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/fantasylifeleague/healthapi/internal/database"
	"github.com/fantasylifeleague/healthapi/internal/telemetry"
	"github.com/fantasylifeleague/healthapi/internal/verification"
)

// Backend and sink names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendStatic   = "static"

	SinkLog      = "log"
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
	SinkPubSub   = "pubsub"
)

// Config is the complete service configuration.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	OTel         telemetry.Config        `mapstructure:"otel"`
	DB           database.Config         `mapstructure:"db"`
	Auth         AuthConfig              `mapstructure:"auth"`
	State        StateConfig             `mapstructure:"state"`
	Keys         KeysConfig              `mapstructure:"keys"`
	Audit        AuditConfig             `mapstructure:"audit"`
	PubSub       PubSubConfig            `mapstructure:"pubsub"`
	FeatureFlags FeatureFlagsConfig      `mapstructure:"featureflags"`
	Verification verification.Thresholds `mapstructure:"verification"`
	Worker       WorkerConfig            `mapstructure:"worker"`
}

// AppConfig configures the HTTP server.
type AppConfig struct {
	Name              string        `mapstructure:"name" validate:"required"`
	Env               string        `mapstructure:"env"`
	Port              string        `mapstructure:"port" validate:"required"`
	LogLevel          string        `mapstructure:"log_level"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	RequireTLS        bool          `mapstructure:"require_tls"`
}

// AuthConfig configures bearer token authentication of player endpoints.
type AuthConfig struct {
	Required       bool          `mapstructure:"required"`
	JWTSigningKey  string        `mapstructure:"jwt_signing_key" validate:"required_if=Required true"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	AdminAPIKey    string        `mapstructure:"admin_api_key"`
}

// StateConfig selects the per-user state store.
type StateConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory postgres"`
}

// KeysConfig selects the signing key store. Static entries have the form
// "userID=key".
type KeysConfig struct {
	Backend string   `mapstructure:"backend" validate:"oneof=static postgres"`
	Static  []string `mapstructure:"static"`
}

// AuditConfig selects where submission audit records go.
type AuditConfig struct {
	Sink string `mapstructure:"sink" validate:"oneof=log memory postgres pubsub"`
}

// PubSubConfig configures the audit topic and the worker subscription.
type PubSubConfig struct {
	ProjectID         string `mapstructure:"project_id"`
	AuditTopic        string `mapstructure:"audit_topic"`
	AuditSubscription string `mapstructure:"audit_subscription"`
}

// FeatureFlagsConfig configures the feature flag repository.
type FeatureFlagsConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=memory postgres"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// WorkerConfig configures the audit worker's health endpoint.
type WorkerConfig struct {
	Port string `mapstructure:"port"`
}

// Load reads configuration. path names an optional YAML file; when empty the
// CONFIG_FILE environment variable is consulted.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variables shared with other tooling.
	_ = v.BindEnv("app.port", "APP_PORT", "PORT")
	_ = v.BindEnv("otel.otlp_endpoint", "OTEL_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("pubsub.project_id", "PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.OTel.ServiceName = cfg.App.Name
	cfg.OTel.Environment = cfg.App.Env

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "health-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 15*time.Second)
	v.SetDefault("app.idle_timeout", 60*time.Second)
	v.SetDefault("app.shutdown_timeout", 30*time.Second)
	v.SetDefault("app.requests_per_minute", 120)
	v.SetDefault("app.require_tls", false)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.metric_interval", 15*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "health")
	v.SetDefault("db.password", "localdev")
	v.SetDefault("db.name", "health")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.required", false)
	v.SetDefault("auth.jwt_signing_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.admin_api_key", "")

	v.SetDefault("state.backend", BackendMemory)

	v.SetDefault("keys.backend", BackendStatic)
	v.SetDefault("keys.static", []string{})

	v.SetDefault("audit.sink", SinkLog)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.audit_topic", "health-submission-audit")
	v.SetDefault("pubsub.audit_subscription", "health-submission-audit-worker")

	v.SetDefault("featureflags.backend", BackendMemory)
	v.SetDefault("featureflags.cache_ttl", time.Minute)

	t := verification.DefaultThresholds()
	v.SetDefault("verification.min_submission_interval", t.MinSubmissionInterval)
	v.SetDefault("verification.step_distance_min_steps", t.StepDistanceMinSteps)
	v.SetDefault("verification.step_to_distance_ratio", t.StepToDistanceRatio)
	v.SetDefault("verification.step_distance_variance_threshold", t.StepDistanceVarianceThreshold)
	v.SetDefault("verification.inactive_steps_threshold", t.InactiveStepsThreshold)
	v.SetDefault("verification.max_workout_duration", t.MaxWorkoutDuration)
	v.SetDefault("verification.max_calories_per_minute", t.MaxCaloriesPerMinute)
	v.SetDefault("verification.min_heart_rate", t.MinHeartRate)
	v.SetDefault("verification.max_heart_rate", t.MaxHeartRate)
	v.SetDefault("verification.max_submission_age", t.MaxSubmissionAge)
	v.SetDefault("verification.min_valid_score", t.MinValidScore)
	v.SetDefault("verification.z_score_threshold", t.ZScoreThreshold)
	v.SetDefault("verification.min_anomaly_samples", t.MinAnomalySamples)
	v.SetDefault("verification.enable_statistical_analysis", t.EnableStatisticalAnalysis)
	v.SetDefault("verification.trusted_sources", t.TrustedSources)

	v.SetDefault("worker.port", "8081")
}

// Validate checks backend names and the settings each backend depends on.
func (c *Config) Validate() error {
	var errs []error

	if err := validator.New().Struct(c); err != nil {
		errs = append(errs, err)
	}

	if c.Audit.Sink == SinkPubSub {
		if c.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("pubsub.project_id is required for the pubsub audit sink"))
		}
		if c.PubSub.AuditTopic == "" {
			errs = append(errs, errors.New("pubsub.audit_topic is required for the pubsub audit sink"))
		}
	}

	if c.Verification.MinValidScore < 0 || c.Verification.MinValidScore > verification.MaxScore {
		errs = append(errs, fmt.Errorf("verification.min_valid_score must be between 0 and %d", verification.MaxScore))
	}
	if c.Verification.MinSubmissionInterval < 0 {
		errs = append(errs, errors.New("verification.min_submission_interval must not be negative"))
	}
	if c.Verification.MinAnomalySamples < 1 {
		errs = append(errs, errors.New("verification.min_anomaly_samples must be at least 1"))
	}

	return errors.Join(errs...)
}

// UsesPostgres reports whether any store is backed by PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.State.Backend == BackendPostgres ||
		c.Keys.Backend == BackendPostgres ||
		c.Audit.Sink == SinkPostgres ||
		c.FeatureFlags.Backend == BackendPostgres
}
