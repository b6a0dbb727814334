package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token           string  `yaml:"token" env:"BOT_TOKEN"`
	Mode            string  `yaml:"mode" validate:"oneof=polling noop"` // polling | noop (logs instead of sending)
	Username        string  `yaml:"username" env:"BOT_USERNAME"`
	Workers         int     `yaml:"workers" validate:"gte=1"` // update workers
	AdminIDs        []int64 `yaml:"admin_ids" env:"ADMIN_IDS" envSeparator:","`
	ContactUsername string  `yaml:"contact_username" env:"CONTACT_USERNAME"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT" validate:"gte=1,lte=65535"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" validate:"oneof=postgres mongo memory"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL" validate:"required_if=Driver postgres"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply migrations on serve
	Driver   string `yaml:"-"`
}

type MongoConfig struct {
	URL      string `yaml:"url" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // channel cache ttl
}

type PaymentConfig struct {
	UPIID    string `yaml:"upi_id" env:"UPI_ID" validate:"required"`
	Payee    string `yaml:"payee" env:"UPI_PAYEE"`
	Currency string `yaml:"currency"`
	Note     string `yaml:"note"`
	QRSize   int    `yaml:"qr_size"`
}

type SweeperConfig struct {
	Interval  time.Duration `yaml:"interval" env:"SWEEP_INTERVAL"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batch_size"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	LockFile string         `yaml:"lock_file" env:"LOCK_FILE"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file (optional when every required value comes from
// the environment), applies .env and environment overrides, defaults and validation.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall through to environment only
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "postgres"
	}
	cfg.Database.Driver = cfg.Storage.Driver
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "sub_management"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	if cfg.Payment.Note == "" {
		cfg.Payment.Note = "Subscription"
	}
	if cfg.Payment.QRSize <= 0 {
		cfg.Payment.QRSize = 300
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = 10 * time.Minute
	}
	if cfg.Sweeper.Timeout <= 0 {
		cfg.Sweeper.Timeout = 2 * time.Minute
	}
	if cfg.Sweeper.BatchSize <= 0 {
		cfg.Sweeper.BatchSize = 500
	}
	if cfg.LockFile == "" {
		cfg.LockFile = os.TempDir() + "/channel-subscription-bot.lock"
	}
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// Minimal cross-field validation
	if cfg.Bot.Mode == "polling" && cfg.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if len(cfg.Bot.AdminIDs) == 0 {
		return errors.New("bot.admin_ids must list at least one administrator")
	}
	if cfg.Storage.Driver == "mongo" && cfg.Mongo.URL == "" {
		return errors.New("mongo.url is required for storage.driver=mongo")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
