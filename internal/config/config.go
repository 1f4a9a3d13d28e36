package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Paymentwall PaymentwallConfig
	Store       StoreConfig
	Kafka       KafkaConfig
	Cron        CronConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
	// TrustedProxies lists the addresses/CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is the client address.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver  string // "mysql" or "sqlite"
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	Path    string // sqlite file
}

type RedisConfig struct {
	Addr     string
	Pass     string
	DB       int
	DedupTTL time.Duration
}

type PaymentwallConfig struct {
	ProjectKey           string
	SecretKey            string
	Widget               string
	TestMode             bool
	StrictIP             bool
	AllowedIPs           []string
	SignVersion          int
	DeliveryConfirmation bool
	DeliveryURL          string
}

type StoreConfig struct {
	BaseURL              string
	SubscriptionsEnabled bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CronConfig struct {
	DueActions string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_PATH", "pwgateway.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PINGBACK_DEDUP_TTL", "24h")
	viper.SetDefault("PAYMENTWALL_WIDGET", "p1_1")
	viper.SetDefault("PAYMENTWALL_TEST_MODE", false)
	viper.SetDefault("PAYMENTWALL_STRICT_IP", true)
	viper.SetDefault("PAYMENTWALL_SIGN_VERSION", 3)
	viper.SetDefault("PAYMENTWALL_DELIVERY_CONFIRMATION", false)
	viper.SetDefault("PAYMENTWALL_DELIVERY_URL", "https://api.paymentwall.com/api/delivery")
	viper.SetDefault("SUBSCRIPTIONS_ENABLED", true)
	viper.SetDefault("KAFKA_TOPIC", "paymentwall.orders")
	viper.SetDefault("CRON_DUE_ACTIONS", "0 * * * * *")

	dedupTTL, err := time.ParseDuration(viper.GetString("PINGBACK_DEDUP_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid PINGBACK_DEDUP_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetInt("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			TrustedProxies: splitList(viper.GetString("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			Driver:  strings.ToLower(viper.GetString("DB_DRIVER")),
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
			Path:    viper.GetString("DB_PATH"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Pass:     viper.GetString("REDIS_PASS"),
			DB:       viper.GetInt("REDIS_DB"),
			DedupTTL: dedupTTL,
		},
		Paymentwall: PaymentwallConfig{
			ProjectKey:           viper.GetString("PAYMENTWALL_PROJECT_KEY"),
			SecretKey:            viper.GetString("PAYMENTWALL_SECRET_KEY"),
			Widget:               viper.GetString("PAYMENTWALL_WIDGET"),
			TestMode:             viper.GetBool("PAYMENTWALL_TEST_MODE"),
			StrictIP:             viper.GetBool("PAYMENTWALL_STRICT_IP"),
			AllowedIPs:           splitList(viper.GetString("PAYMENTWALL_ALLOWED_IPS")),
			SignVersion:          viper.GetInt("PAYMENTWALL_SIGN_VERSION"),
			DeliveryConfirmation: viper.GetBool("PAYMENTWALL_DELIVERY_CONFIRMATION"),
			DeliveryURL:          viper.GetString("PAYMENTWALL_DELIVERY_URL"),
		},
		Store: StoreConfig{
			BaseURL:              strings.TrimRight(viper.GetString("STORE_BASE_URL"), "/"),
			SubscriptionsEnabled: viper.GetBool("SUBSCRIPTIONS_ENABLED"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Cron: CronConfig{
			DueActions: viper.GetString("CRON_DUE_ACTIONS"),
		},
	}

	switch cfg.Database.Driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if sv := cfg.Paymentwall.SignVersion; sv != 2 && sv != 3 {
		return nil, fmt.Errorf("PAYMENTWALL_SIGN_VERSION must be 2 or 3, got %d", sv)
	}

	if cfg.Database.Driver == "mysql" && cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Paymentwall.SecretKey == "" {
		log.Println("WARNING: PAYMENTWALL_SECRET_KEY is not set, every pingback will fail signature checks")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database settings, for schema bootstrap runs
// that should not require payment credentials.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_PATH", "pwgateway.db")

	cfg := &DatabaseConfig{
		Driver:  strings.ToLower(viper.GetString("DB_DRIVER")),
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
		Path:    viper.GetString("DB_PATH"),
	}
	if cfg.Driver != "mysql" && cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	return cfg, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
