package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// Config holds all configuration for the application
type Config struct {
	Environment   string            `mapstructure:"environment" validate:"required"`
	LogLevel      string            `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Server        ServerConfig      `mapstructure:"server"`
	Tronscan      TronscanConfig    `mapstructure:"tronscan"`
	Monitoring    MonitoringConfig  `mapstructure:"monitoring"`
	Notifier      NotifierConfig    `mapstructure:"notifier"`
	Telegram      TelegramConfig    `mapstructure:"telegram"`
	Email         EmailConfig       `mapstructure:"email"`
	Report        ReportConfig      `mapstructure:"report"`
	Redis         RedisConfig       `mapstructure:"redis"`
	Kafka         KafkaConfig       `mapstructure:"kafka"`
	Tracing       TracingConfig     `mapstructure:"tracing"`
	Wallets       []entities.Wallet `mapstructure:"wallets"`
	WatchlistPath string            `mapstructure:"watchlist_path"`
}

// ServerConfig contains admin HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`

	// AdminToken protects the /api/v1 routes when set
	AdminToken      string `mapstructure:"admin_token"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min" validate:"min=0"`
}

// TronscanConfig contains ledger indexer configuration
type TronscanConfig struct {
	TransfersURL      string        `mapstructure:"transfers_url" validate:"required,url"`
	BalanceURL        string        `mapstructure:"balance_url" validate:"required,url"`
	StreamURL         string        `mapstructure:"stream_url"`
	APIKeys           []string      `mapstructure:"api_keys"`
	PageSize          int           `mapstructure:"page_size" validate:"min=1,max=50"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
}

// MonitoringConfig contains activity source configuration
type MonitoringConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Strategy          string        `mapstructure:"strategy" validate:"oneof=polling streaming"`
	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	WalletDelay       time.Duration `mapstructure:"wallet_delay" validate:"gte=0"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" validate:"gt=0"`
	EmitUnmatched     bool          `mapstructure:"emit_unmatched"`
	SeenCapacity      int           `mapstructure:"seen_capacity" validate:"min=2"`
	SeenFlushInterval time.Duration `mapstructure:"seen_flush_interval" validate:"gte=0"`
	StateBackend      string        `mapstructure:"state_backend" validate:"oneof=file redis"`
	StateDir          string        `mapstructure:"state_dir"`
}

// NotifierConfig contains dispatcher configuration
type NotifierConfig struct {
	Channel         string        `mapstructure:"channel" validate:"oneof=telegram email"`
	MinInterval     time.Duration `mapstructure:"min_interval" validate:"gte=0"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown" validate:"gte=0"`
}

// TelegramConfig contains bot configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url" validate:"omitempty,url"`
}

// EmailConfig contains SendGrid configuration
type EmailConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email" validate:"omitempty,email"`
	FromName  string `mapstructure:"from_name"`
	ToEmail   string `mapstructure:"to_email" validate:"omitempty,email"`
}

// ReportConfig contains balance report schedule
type ReportConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Time        string        `mapstructure:"time" validate:"hhmm"`
	Timezone    string        `mapstructure:"timezone" validate:"timezone"`
	WalletDelay time.Duration `mapstructure:"wallet_delay" validate:"gte=0"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig contains event sink configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// HourMinute returns the parsed report time
func (r ReportConfig) HourMinute() (int, int) {
	hour, _ := strconv.Atoi(r.Time[:2])
	minute, _ := strconv.Atoi(r.Time[3:])
	return hour, minute
}

// Location returns the report timezone
func (r ReportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads config.yaml from ./configs or the working directory, applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile is Load with an explicit config file path
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// TRONWATCH_MONITORING_STRATEGY overrides monitoring.strategy
	v.SetEnvPrefix("TRONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Tronscan.APIKeys = cleanList(config.Tronscan.APIKeys)
	config.Kafka.Brokers = cleanList(config.Kafka.Brokers)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.rate_limit_per_min", 120)

	v.SetDefault("tronscan.transfers_url", "https://apilist.tronscan.org/api/filter/trc20/transfers")
	v.SetDefault("tronscan.balance_url", "https://apilist.tronscanapi.com/api/account/token_asset_overview")
	v.SetDefault("tronscan.stream_url", "")
	v.SetDefault("tronscan.api_keys", []string{})
	v.SetDefault("tronscan.page_size", 20)
	v.SetDefault("tronscan.request_timeout", "15s")
	v.SetDefault("tronscan.requests_per_second", 5)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.strategy", "polling")
	v.SetDefault("monitoring.poll_interval", "10s")
	v.SetDefault("monitoring.wallet_delay", "300ms")
	v.SetDefault("monitoring.reconnect_interval", "5s")
	v.SetDefault("monitoring.emit_unmatched", true)
	v.SetDefault("monitoring.seen_capacity", 1000)
	v.SetDefault("monitoring.seen_flush_interval", "30s")
	v.SetDefault("monitoring.state_backend", "file")
	v.SetDefault("monitoring.state_dir", "./data")

	v.SetDefault("notifier.channel", "telegram")
	v.SetDefault("notifier.min_interval", "3s")
	v.SetDefault("notifier.failure_cooldown", "5s")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_url", "https://api.telegram.org")

	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "Tronwatch")
	v.SetDefault("email.to_email", "")

	v.SetDefault("report.enabled", true)
	v.SetDefault("report.time", "08:00")
	v.SetDefault("report.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("report.wallet_delay", "500ms")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "tronwatch")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "tron-transfers")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_url", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("watchlist_path", "./data/watchlist.yaml")
}

func overrideFromEnv(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("server.port", p)
		}
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		v.Set("log_level", strings.ToLower(level))
	}

	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		v.Set("server.admin_token", token)
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		v.Set("telegram.bot_token", token)
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		v.Set("telegram.chat_id", chatID)
	}

	if keys := os.Getenv("TRONSCAN_API_KEYS"); keys != "" {
		v.Set("tronscan.api_keys", strings.Split(keys, ","))
	}
	if streamURL := os.Getenv("TRONSCAN_STREAM_URL"); streamURL != "" {
		v.Set("tronscan.stream_url", streamURL)
	}

	if sendgridKey := os.Getenv("SENDGRID_API_KEY"); sendgridKey != "" {
		v.Set("email.api_key", sendgridKey)
	}
	if to := os.Getenv("EMAIL_TO"); to != "" {
		v.Set("email.to_email", to)
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if u, err := url.Parse(redisURL); err == nil {
			v.Set("redis.host", u.Hostname())
			if p, err := strconv.Atoi(u.Port()); err == nil {
				v.Set("redis.port", p)
			}
			if password, ok := u.User.Password(); ok {
				v.Set("redis.password", password)
			}
			if db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/")); err == nil {
				v.Set("redis.db", db)
			}
		}
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		v.Set("kafka.brokers", strings.Split(brokers, ","))
		v.Set("kafka.enabled", true)
	}
}

func validate(config *Config) error {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	if err := v.Struct(config); err != nil {
		return err
	}

	if config.Notifier.Channel == "email" && (config.Email.APIKey == "" || config.Email.FromEmail == "") {
		return fmt.Errorf("email api key and sender are required for the email channel")
	}

	if config.Monitoring.Strategy == "streaming" && config.Tronscan.StreamURL == "" {
		return fmt.Errorf("tronscan stream url is required for the streaming strategy")
	}

	if config.Kafka.Enabled && (len(config.Kafka.Brokers) == 0 || config.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}

	seen := make(map[string]struct{}, len(config.Wallets))
	for i, w := range config.Wallets {
		if err := ValidateTronAddress(w.Address); err != nil {
			return fmt.Errorf("wallets[%d]: %w", i, err)
		}
		key := w.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("wallets[%d]: duplicate address %s", i, w.Address)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
