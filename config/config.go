package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config ilovaning konfiguratsiyasi
type Config struct {
	App        AppConfig
	Telegram   TelegramConfig
	DB         DBConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTP       HTTPConfig
	JWT        JWTConfig
	Storefront StorefrontConfig
}

type AppConfig struct {
	Env               string `envconfig:"APP_ENV" default:"development"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	AllowEmptySecrets bool   `envconfig:"ALLOW_EMPTY_SECRETS" default:"false"`
	Timezone          string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
}

type TelegramConfig struct {
	Token          string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	OperatorIDs    OperatorIDs   `envconfig:"OPERATOR_IDS"`
	WebAppURL      string        `envconfig:"WEBAPP_URL" default:"https://bekker6v.beget.tech/"`
	SupportContact string        `envconfig:"SUPPORT_CONTACT" default:"@CMOLEHCK"`
	PollTimeout    int           `envconfig:"POLL_TIMEOUT" default:"30"`
	PollRetryDelay time.Duration `envconfig:"POLL_RETRY_DELAY" default:"5s"`
	APIBaseURL     string        `envconfig:"TELEGRAM_API_BASE" default:"https://api.telegram.org"`
}

type DBConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"DB_DSN"`

	PostgresHost     string `envconfig:"POSTGRES_HOST"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	ConnectAttempts int           `envconfig:"DB_CONNECT_MAX_ATTEMPTS" default:"20"`
	ConnectDelay    time.Duration `envconfig:"DB_CONNECT_RETRY_DELAY" default:"2s"`
}

type RedisConfig struct {
	URL      string        `envconfig:"REDIS_URL"`
	StateTTL time.Duration `envconfig:"CHAT_STATE_TTL" default:"24h"`
}

type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	OrderTopic string   `envconfig:"KAFKA_ORDER_TOPIC" default:"cartech.orders"`
	GroupID    string   `envconfig:"KAFKA_GROUP_ID" default:"cartech-bot"`
}

// Enabled kafka brokerlari berilganmi
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type HTTPConfig struct {
	StorefrontAddr string `envconfig:"STOREFRONT_ADDR" default:":8080"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
	AllowedOrigin  string `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"cartech"`
	TTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`
}

type StorefrontConfig struct {
	InitDataMaxAge time.Duration `envconfig:"INIT_DATA_MAX_AGE" default:"24h"`
}

// OperatorIDs is a comma separated list of Telegram ids allowed to operate the shop.
type OperatorIDs []int64

// Decode implements envconfig.Decoder. Inline comments after "#" are ignored.
func (o *OperatorIDs) Decode(value string) error {
	if idx := strings.Index(value, "#"); idx >= 0 {
		value = value[:idx]
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("operator id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	*o = ids
	return nil
}

// Contains checks membership.
func (o OperatorIDs) Contains(id int64) bool {
	for _, v := range o {
		if v == id {
			return true
		}
	}
	return false
}

// Load konfiguratsiyani yuklash
func Load() (*Config, error) {
	// .env faylini yuklash (mavjud bo'lsa)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateBot checks what the bot process cannot run without.
func (c *Config) ValidateBot() error {
	if c.App.AllowEmptySecrets {
		return nil
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable bo'sh")
	}
	if len(c.Telegram.OperatorIDs) == 0 {
		return fmt.Errorf("OPERATOR_IDS environment variable bo'sh")
	}
	return nil
}

// ValidateStorefront checks the API process requirements.
func (c *Config) ValidateStorefront() error {
	if err := c.ValidateBot(); err != nil {
		return err
	}
	if c.App.AllowEmptySecrets {
		return nil
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET environment variable bo'sh")
	}
	return nil
}

func (d *DBConfig) ensureDSN() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case "", "sqlite", "sqlite3":
		d.Driver = "sqlite"
		if strings.TrimSpace(d.DSN) == "" {
			d.DSN = "cartech.db"
		}
		return nil
	case "postgres", "postgresql":
		d.Driver = "postgres"
		if strings.TrimSpace(d.DSN) == "" {
			d.DSN = d.buildPostgresDSN()
		}
		if d.DSN == "" {
			return fmt.Errorf("DB_DSN yoki POSTGRES_HOST/POSTGRES_USER/POSTGRES_DB kerak")
		}
		return nil
	default:
		return fmt.Errorf("DB_DRIVER noto'g'ri: %q (sqlite yoki postgres)", d.Driver)
	}
}

func (d DBConfig) buildPostgresDSN() string {
	host := strings.TrimSpace(d.PostgresHost)
	user := strings.TrimSpace(d.PostgresUser)
	db := strings.TrimPrefix(strings.TrimSpace(d.PostgresDB), "/")
	if host == "" || user == "" || db == "" {
		return ""
	}
	port := strings.TrimSpace(d.PostgresPort)
	if port == "" {
		port = "5432"
	}
	sslmode := strings.TrimSpace(d.PostgresSSLMode)
	if sslmode == "" {
		sslmode = "disable"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	if d.PostgresPassword == "" {
		u.User = url.User(user)
	} else {
		u.User = url.UserPassword(user, d.PostgresPassword)
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
