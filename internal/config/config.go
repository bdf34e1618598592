package config

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
		MinConns int32  `mapstructure:"min_conns"`
		SeedDemo bool   `mapstructure:"seed_demo"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Enabled            bool   `mapstructure:"enabled"`
		Addr               string `mapstructure:"addr"`
		Password           string `mapstructure:"password"`
		DB                 int    `mapstructure:"db"`
		ShortageTTLSeconds int    `mapstructure:"shortage_ttl_seconds"`
	} `mapstructure:"redis"`

	Alerts struct {
		WebhookURL     string `mapstructure:"webhook_url"`
		Channel        string `mapstructure:"channel"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"alerts"`

	Storage struct {
		Enabled   bool   `mapstructure:"enabled"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Prefix    string `mapstructure:"prefix"`
	} `mapstructure:"storage"`

	Schedule struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"schedule"`

	Metrics struct {
		CollectIntervalSeconds int `mapstructure:"collect_interval_seconds"`
	} `mapstructure:"metrics"`
}

// Load reads configs/config.yaml (optional), the environment and .env. It
// exits on an unusable configuration.
func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	cfg, err := load("configs/config.yaml")
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	return cfg
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	// Auto bind environment variables (server.port -> SERVER_PORT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "factory_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "factory-backend")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.shortage_ttl_seconds", 120)
	v.SetDefault("alerts.timeout_seconds", 10)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.prefix", "schedules/")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("metrics.collect_interval_seconds", 30)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	applyEnvOverrides(&cfg)

	switch cfg.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = ""
		if cfg.Storage.Enabled {
			log.Printf("[Config] JWT_SECRET not set, fetching from object storage...")
			cfg.JWT.Secret = fetchJWTSecretFromStorage(&cfg)
		}
		if cfg.JWT.Secret == "" {
			if cfg.Database.Driver == DriverPostgres {
				return nil, fmt.Errorf("JWT_SECRET not found in environment or object storage")
			}
			log.Printf("[Config] WARNING: JWT_SECRET not set, using an insecure development secret")
			cfg.JWT.Secret = "factory-dev-secret"
		}
	}

	return &cfg, nil
}

// applyEnvOverrides maps the short deployment variable names onto the config
func applyEnvOverrides(cfg *Config) {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setInt := func(env string, dst *int) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	setString("DB_DRIVER", &cfg.Database.Driver)
	setString("DB_HOST", &cfg.Database.Host)
	setInt("DB_PORT", &cfg.Database.Port)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PASSWORD", &cfg.Database.Password)
	setString("DB_NAME", &cfg.Database.Name)
	setString("JWT_SECRET", &cfg.JWT.Secret)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("ALERT_WEBHOOK_URL", &cfg.Alerts.WebhookURL)
	setString("S3_ENDPOINT", &cfg.Storage.Endpoint)
	setString("S3_BUCKET", &cfg.Storage.Bucket)
	setString("S3_ACCESS_KEY", &cfg.Storage.AccessKey)
	setString("S3_SECRET_KEY", &cfg.Storage.SecretKey)
	setString("FACTORY_TZ", &cfg.Schedule.Timezone)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled, _ = strconv.ParseBool(v)
	}
}

// DatabaseURL is the pgx connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

func (c *Config) ShortageTTL() time.Duration {
	return time.Duration(c.Redis.ShortageTTLSeconds) * time.Second
}

func (c *Config) AlertTimeout() time.Duration {
	return time.Duration(c.Alerts.TimeoutSeconds) * time.Second
}

// fetchJWTSecretFromStorage reads config/jwt_secret.txt from the bucket for
// disaster recovery
func fetchJWTSecretFromStorage(c *Config) string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.Storage.AccessKey,
			c.Storage.SecretKey,
			"",
		)),
		awsconfig.WithRegion(c.Storage.Region),
	)
	if err != nil {
		log.Printf("[Config] Failed to configure storage client: %v", err)
		return ""
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Storage.Endpoint)
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.Storage.Bucket),
		Key:    aws.String("config/jwt_secret.txt"),
	})
	if err != nil {
		log.Printf("[Config] Failed to fetch JWT secret from storage: %v", err)
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.Printf("[Config] Failed to read JWT secret: %v", err)
		return ""
	}

	return strings.TrimSpace(string(secret))
}
