package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	TextGen  TextGenConfig  `mapstructure:"textgen"`
	Artwork  ArtworkConfig  `mapstructure:"artwork"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the driver and its connection settings.
// For postgres either URL or the discrete host fields are used.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		// Connection options apply to every pooled connection. Immediate
		// transactions take the write lock at BEGIN so concurrent ledger
		// writers queue on busy_timeout instead of failing mid-transaction.
		return c.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1&_txlock=immediate"
	}
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// TextGenConfig configures the hosted text model used for card content.
type TextGenConfig struct {
	Provider  string        `mapstructure:"provider"` // gemini, openai
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst int           `mapstructure:"rate_burst"`
}

// ArtworkConfig configures the image generator.
type ArtworkConfig struct {
	Provider   string        `mapstructure:"provider"` // process, imagen
	Command    string        `mapstructure:"command"`
	Args       []string      `mapstructure:"args"`
	Credential string        `mapstructure:"credential"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CardWidth  int           `mapstructure:"card_width"`
	CardHeight int           `mapstructure:"card_height"`
}

// StorageConfig configures optional remote blob storage for image bytes.
// When disabled, bytes are kept in the image_metadata table.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type PricingConfig struct {
	CardGenerationCost  int    `mapstructure:"card_generation_cost"`
	CreditsPerMegapixel int    `mapstructure:"credits_per_megapixel"`
	DefaultImageSize    string `mapstructure:"default_image_size"`
	MaxImageDimension   int    `mapstructure:"max_image_dimension"`
}

type CacheConfig struct {
	ImageTTL        time.Duration `mapstructure:"image_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment-specific values use their conventional names
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("auth.jwt_secret", "AUTH_SECRET")
	v.BindEnv("textgen.api_key", "GEMINI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("textgen.base_url", "TEXTGEN_BASE_URL")
	v.BindEnv("textgen.model", "TEXTGEN_MODEL")
	v.BindEnv("artwork.credential", "ARTWORK_CREDENTIAL", "GEMINI_API_KEY")
	v.BindEnv("artwork.provider", "ARTWORK_PROVIDER")
	v.BindEnv("artwork.command", "ARTWORK_COMMAND")
	v.BindEnv("storage.enabled", "S3_ENABLED")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/cardsmith.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "cardsmith")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.issuer", "cardsmith")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("textgen.provider", "gemini")
	v.SetDefault("textgen.model", "gemini-1.5-flash")
	v.SetDefault("textgen.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("textgen.timeout", 60*time.Second)
	v.SetDefault("textgen.rate_limit", 5.0)
	v.SetDefault("textgen.rate_burst", 4)

	// The process provider needs an operator-supplied generator, so the
	// hosted API is the default.
	v.SetDefault("artwork.provider", "imagen")
	v.SetDefault("artwork.args", []string{})
	v.SetDefault("artwork.model", "imagen-3.0-generate-002")
	v.SetDefault("artwork.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("artwork.timeout", 120*time.Second)
	v.SetDefault("artwork.card_width", 400)
	v.SetDefault("artwork.card_height", 400)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "cardsmith-images")
	v.SetDefault("storage.prefix", "images")

	v.SetDefault("pricing.card_generation_cost", 10)
	v.SetDefault("pricing.credits_per_megapixel", 5)
	v.SetDefault("pricing.default_image_size", "1024x576")
	v.SetDefault("pricing.max_image_dimension", 2048)

	v.SetDefault("cache.image_ttl", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Hour)
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: jwt_secret is required (set AUTH_SECRET)")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	switch c.TextGen.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("textgen: unknown provider %q", c.TextGen.Provider)
	}
	switch c.Artwork.Provider {
	case "process":
		if c.Artwork.Command == "" {
			return fmt.Errorf("artwork: command is required for the process provider")
		}
	case "imagen":
		if c.Artwork.Credential == "" {
			return fmt.Errorf("artwork: credential is required for the imagen provider (set GEMINI_API_KEY)")
		}
	default:
		return fmt.Errorf("artwork: unknown provider %q", c.Artwork.Provider)
	}
	if c.Pricing.CardGenerationCost <= 0 {
		return fmt.Errorf("pricing: card_generation_cost must be positive")
	}
	if c.Pricing.CreditsPerMegapixel <= 0 {
		return fmt.Errorf("pricing: credits_per_megapixel must be positive")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage: bucket is required when storage is enabled")
	}
	return nil
}
