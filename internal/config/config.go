package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/gregtusar/predictdesk/pkg/caesar"
	"github.com/gregtusar/predictdesk/pkg/research"
	"github.com/gregtusar/predictdesk/pkg/secrets"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Caesar   CaesarConfig   `mapstructure:"caesar"`
	Research ResearchConfig `mapstructure:"research"`
	Data     DataConfig     `mapstructure:"data"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	GCP      GCPConfig      `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CaesarConfig struct {
	BaseURL string `mapstructure:"base_url"`

	// Bearer authentication
	APIKey string `mapstructure:"api_key"`

	// JWT authentication
	AuthType  string `mapstructure:"auth_type"` // "bearer" or "jwt"
	KeyID     string `mapstructure:"key_id"`
	JWTSecret string `mapstructure:"jwt_secret"`

	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// Configured reports whether enough credentials are present to talk to the
// live research provider.
func (c CaesarConfig) Configured() bool {
	if caesar.AuthType(c.AuthType) == caesar.AuthTypeJWT {
		return c.KeyID != "" && c.JWTSecret != ""
	}
	return c.APIKey != ""
}

func (c CaesarConfig) ClientConfig() caesar.Config {
	return caesar.Config{
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		AuthType:  c.AuthType,
		KeyID:     c.KeyID,
		JWTSecret: c.JWTSecret,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimit,
		Burst:     c.Burst,
	}
}

type ResearchConfig struct {
	PendingFor      time.Duration `mapstructure:"pending_for"`
	ProcessingUntil time.Duration `mapstructure:"processing_until"`
	MaxJobAge       time.Duration `mapstructure:"max_job_age"`
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout"`
}

func (r ResearchConfig) ServiceConfig() research.Config {
	cfg := research.DefaultConfig()
	if r.PendingFor > 0 && r.ProcessingUntil > r.PendingFor {
		cfg.Timeline = research.Timeline{
			PendingFor:      r.PendingFor,
			ProcessingUntil: r.ProcessingUntil,
		}
	}
	cfg.MaxJobAge = r.MaxJobAge
	if r.SubmitTimeout > 0 {
		cfg.SubmitTimeout = r.SubmitTimeout
	}
	return cfg
}

type DataConfig struct {
	// SeedFile replaces the built-in sample markets when set.
	SeedFile string `mapstructure:"seed_file"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/predictdesk")
	}

	v.SetEnvPrefix("PREDICTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Caesar defaults
	v.SetDefault("caesar.base_url", caesar.DefaultBaseURL)
	v.SetDefault("caesar.api_key", "")
	v.SetDefault("caesar.auth_type", string(caesar.AuthTypeBearer))
	v.SetDefault("caesar.key_id", "")
	v.SetDefault("caesar.jwt_secret", "")
	v.SetDefault("caesar.timeout", 30*time.Second)
	v.SetDefault("caesar.rate_limit", 5.0)
	v.SetDefault("caesar.burst", 10)

	// Research defaults
	researchDefaults := research.DefaultConfig()
	v.SetDefault("research.pending_for", researchDefaults.Timeline.PendingFor)
	v.SetDefault("research.processing_until", researchDefaults.Timeline.ProcessingUntil)
	v.SetDefault("research.max_job_age", researchDefaults.MaxJobAge)
	v.SetDefault("research.submit_timeout", researchDefaults.SubmitTimeout)

	v.SetDefault("data.seed_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.caesar_api_key", secretNames.CaesarAPIKey)
	v.SetDefault("gcp.secret_names.caesar_key_id", secretNames.CaesarKeyID)
	v.SetDefault("gcp.secret_names.caesar_jwt_secret", secretNames.CaesarJWTSecret)
}

func overrideFromEnv(config *Config) {
	if apiKey := os.Getenv("CAESAR_API_KEY"); apiKey != "" {
		config.Caesar.APIKey = apiKey
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
	if credentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentials != "" && config.GCP.CredentialsFile == "" {
		config.GCP.CredentialsFile = credentials
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	// Only load secrets if they're not already set
	if config.Caesar.APIKey == "" {
		config.Caesar.APIKey = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.CaesarAPIKey, "")
	}
	if config.Caesar.KeyID == "" {
		config.Caesar.KeyID = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.CaesarKeyID, "")
	}
	if config.Caesar.JWTSecret == "" {
		config.Caesar.JWTSecret = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.CaesarJWTSecret, "")
	}

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// NewLogger builds the process logger from the logging section. The returned
// closer releases the log file, if any.
func NewLogger(cfg LoggingConfig) (*logrus.Logger, func() error, error) {
	logger := logrus.New()

	switch strings.ToLower(cfg.Format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	closer := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f.Close
	}

	return logger, closer, nil
}
