package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	liststr "securetransfer/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr           string        `yaml:"addr"`
	LogLevel       string        `yaml:"logLevel"`
	LogFormat      string        `yaml:"logFormat"`
	StorageDir     string        `yaml:"storageDir"`
	Identities     []string      `yaml:"identities"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	UploadsPerMin  int           `yaml:"uploadsPerMinute"`
	JWTSigningKey  string        `yaml:"jwtSigningKey"`
	TokenTTL       time.Duration `yaml:"tokenTTL"`
	Nonce          NonceConfig   `yaml:"nonce"`
	Redis          RedisConfig   `yaml:"redis"`
	DatabaseURL    string        `yaml:"databaseURL"`
	Kafka          KafkaConfig   `yaml:"kafka"`
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`
}

// NonceConfig selects the replay registry. Backend is "memory", "redis" or "postgres".
type NonceConfig struct {
	Backend       string        `yaml:"backend"`
	Validity      time.Duration `yaml:"validity"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"poolSize"`
	MinIdleConns int           `yaml:"minIdleConns"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AuditTopic string   `yaml:"auditTopic"`
}

const devSigningKey = "dev-secret-key-change-in-production"

// Default returns the configuration used when nothing is overridden.
func Default() Server {
	return Server{
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "json",
		StorageDir:     "uploads",
		Identities:     []string{"alice", "bob", "charlie"},
		MaxUploadBytes: 32 << 20,
		UploadsPerMin:  30,
		JWTSigningKey:  devSigningKey,
		TokenTTL:       time.Hour,
		Nonce: NonceConfig{
			Backend:       "memory",
			Validity:      5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka:         KafkaConfig{AuditTopic: "securetransfer.audit"},
		ShutdownGrace: 30 * time.Second,
	}
}

// FromEnv builds a Server config from the optional TRANSFER_CONFIG YAML file
// and then environment variables, so main stays lean. Environment wins.
func FromEnv() (Server, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("TRANSFER_CONFIG")); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Server{}, err
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Server{}, err
	}
	cfg.Identities = liststr.DedupeLower(cfg.Identities)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Server) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Server, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	list := func(key string, dst *[]string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = liststr.SplitList(v)
		}
	}

	str("TRANSFER_ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("STORAGE_DIR", &cfg.StorageDir)
	list("IDENTITIES", &cfg.Identities)
	str("JWT_SIGNING_KEY", &cfg.JWTSigningKey)
	str("NONCE_BACKEND", &cfg.Nonce.Backend)
	str("REDIS_URL", &cfg.Redis.URL)
	str("DATABASE_URL", &cfg.DatabaseURL)
	list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("KAFKA_AUDIT_TOPIC", &cfg.Kafka.AuditTopic)

	if v := strings.TrimSpace(getenv("MAX_UPLOAD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := strings.TrimSpace(getenv("UPLOADS_PER_MINUTE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPLOADS_PER_MINUTE: %w", err)
		}
		cfg.UploadsPerMin = n
	}
	for key, dst := range map[string]*time.Duration{
		"TOKEN_TTL":            &cfg.TokenTTL,
		"NONCE_VALIDITY":       &cfg.Nonce.Validity,
		"NONCE_SWEEP_INTERVAL": &cfg.Nonce.SweepInterval,
		"SHUTDOWN_GRACE":       &cfg.ShutdownGrace,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects combinations the server cannot start with.
func (c Server) Validate() error {
	if len(c.Identities) == 0 {
		return fmt.Errorf("at least one identity is required")
	}
	if c.Nonce.Validity <= 0 || c.Nonce.SweepInterval <= 0 {
		return fmt.Errorf("nonce validity and sweep interval must be positive")
	}
	switch c.Nonce.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("nonce backend redis requires REDIS_URL")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("nonce backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown nonce backend %q", c.Nonce.Backend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	return nil
}

// UsesDevSigningKey reports whether tokens are signed with the built-in key.
func (c Server) UsesDevSigningKey() bool {
	return c.JWTSigningKey == devSigningKey
}
