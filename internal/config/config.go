// Package config читает настройки из окружения (и .env, если он есть).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config настройки сервиса
type Config struct {
	HTTPAddr    string
	ServiceName string
	Environment string
	LogLevel    string

	Storage       string
	MongoURI      string
	MongoDatabase string

	// RedisAddr пустой - корзины и сессии checkout в памяти процесса
	RedisAddr string

	// KafkaBrokers пустой - события не публикуются
	KafkaBrokers []string
	KafkaTopic   string

	// HistoryPath пустой - журнал статусов отключён
	HistoryPath string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	MediaDir     string
	MediaBaseURL string

	VerificationTTL time.Duration
	CartTTL         time.Duration
	LoginRPS        float64
	LoginBurst      int

	OTelEnabled  bool
	OTelEndpoint string
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":9091")
	v.SetDefault("SERVICE_NAME", "storefront")
	v.SetDefault("ENVIRONMENT", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE", StorageMemory)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "storefront")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "order-events")
	v.SetDefault("HISTORY_PATH", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_EMAIL", "admin@iphonehub.com")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("MEDIA_DIR", "./media")
	v.SetDefault("MEDIA_BASE_URL", "/media")
	v.SetDefault("VERIFICATION_TTL", "180s")
	v.SetDefault("CART_TTL", "720h")
	v.SetDefault("LOGIN_RPS", 1.0)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
}

// Load подхватывает .env (если файла нет - не ошибка) и переменные окружения
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ServiceName:     v.GetString("SERVICE_NAME"),
		Environment:     v.GetString("ENVIRONMENT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Storage:         strings.ToLower(v.GetString("STORAGE")),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TOPIC"),
		HistoryPath:     v.GetString("HISTORY_PATH"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AdminEmail:      v.GetString("ADMIN_EMAIL"),
		AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		MediaDir:        v.GetString("MEDIA_DIR"),
		MediaBaseURL:    v.GetString("MEDIA_BASE_URL"),
		VerificationTTL: v.GetDuration("VERIFICATION_TTL"),
		CartTTL:         v.GetDuration("CART_TTL"),
		LoginRPS:        v.GetFloat64("LOGIN_RPS"),
		LoginBurst:      v.GetInt("LOGIN_BURST"),
		OTelEnabled:     v.GetBool("OTEL_ENABLED"),
		OTelEndpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверка согласованности настроек
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 6 {
		errs = append(errs, errors.New("ADMIN_PASSWORD of at least 6 characters is required when ADMIN_EMAIL is set"))
	}
	if c.Storage != StorageMemory && c.Storage != StorageMongo {
		errs = append(errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StorageMongo, c.Storage))
	}
	if c.VerificationTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TTL must be positive"))
	}
	if c.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	if c.LoginRPS <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, errors.New("LOGIN_RPS and LOGIN_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
