package config

import (
	"time"

	"example.com/sqliteblog/internal/logger"
	"github.com/spf13/viper"
)

// DefaultJWTSecret signs sessions when JWT_SECRET is unset. Anyone who knows it can
// forge a session, so it is only fit for local development.
const DefaultJWTSecret = "dev"

type Config struct {
	// App mode & server
	Mode         string
	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	StubRoutes   bool
	LogLevel     string

	// SQLite
	DatabasePath        string
	DatabaseBusyTimeout time.Duration

	// Sessions
	JWTSecret     string
	SessionTTL    time.Duration
	SessionCookie string

	// Kafka
	KafkaEnabled bool
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string
	KafkaReadTO  time.Duration
	KafkaWriteTO time.Duration
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	viper.SetDefault("MODE", "server")
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("STUB_ROUTES", true)
	viper.SetDefault("LOG_LEVEL", "info")
	// Optional: TLS_CERT_FILE/TLS_KEY_FILE, plain HTTP when empty

	viper.SetDefault("DATABASE_PATH", "blog.sqlite")
	viper.SetDefault("DATABASE_BUSY_TIMEOUT", "5s")

	viper.SetDefault("JWT_SECRET", DefaultJWTSecret)
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("SESSION_COOKIE", "session")

	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_BROKER", "localhost:29092")
	viper.SetDefault("KAFKA_TOPIC", "post-events")
	viper.SetDefault("KAFKA_GROUP_ID", "blog-activity")
	viper.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	viper.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	// Load env variables
	viper.AutomaticEnv()

	// Optional config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // ignore error if no file

	cfg = &Config{
		Mode:                viper.GetString("MODE"),
		ServerAddr:          viper.GetString("SERVER_ADDR"),
		ReadTimeout:         parseDuration(viper.GetString("SERVER_READ_TIMEOUT"), 10*time.Second),
		WriteTimeout:        parseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"), 10*time.Second),
		TLSCertFile:         viper.GetString("TLS_CERT_FILE"),
		TLSKeyFile:          viper.GetString("TLS_KEY_FILE"),
		StubRoutes:          viper.GetBool("STUB_ROUTES"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		DatabasePath:        viper.GetString("DATABASE_PATH"),
		DatabaseBusyTimeout: parseDuration(viper.GetString("DATABASE_BUSY_TIMEOUT"), 5*time.Second),
		JWTSecret:           viper.GetString("JWT_SECRET"),
		SessionTTL:          parseDuration(viper.GetString("SESSION_TTL"), 24*time.Hour),
		SessionCookie:       viper.GetString("SESSION_COOKIE"),
		KafkaEnabled:        viper.GetBool("KAFKA_ENABLED"),
		KafkaBroker:         viper.GetString("KAFKA_BROKER"),
		KafkaTopic:          viper.GetString("KAFKA_TOPIC"),
		KafkaGroupID:        viper.GetString("KAFKA_GROUP_ID"),
		KafkaReadTO:         parseDuration(viper.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:        parseDuration(viper.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
	}

	if cfg.DefaultSecret() {
		logger.New().Warn("config", "JWT_SECRET is not set, sessions are signed with the public development secret")
	}
	return cfg
}

// DefaultSecret reports whether sessions are signed with DefaultJWTSecret.
func (c *Config) DefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
