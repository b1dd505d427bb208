package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig    `mapstructure:"SERVER"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
	CORS           CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Brokers            []string `mapstructure:"BROKERS"`
	ClientID           string   `mapstructure:"CLIENT_ID"`
	MessagesTopic      string   `mapstructure:"MESSAGES_TOPIC"`       // persisted messages fanned out to websocket sessions
	RequestEventsTopic string   `mapstructure:"REQUEST_EVENTS_TOPIC"` // request lifecycle events (created / decided)
	ConsumerGroup      string   `mapstructure:"CONSUMER_GROUP"`
	Protocol           string   `mapstructure:"PROTOCOL"`
}

// AuthConfig holds configuration for authentication (JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// LoadConfig reads configuration from file or environment variables.
// Every key has a default so the binary can start without a config file.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "LifeShare")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")

	// Server defaults
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB
	v.SetDefault("SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"})
	v.SetDefault("SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("SERVER.CORS.MAX_AGE", 300) // 5 minutes

	// Database defaults (PostgreSQL)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "lifeshare_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	// Kafka defaults
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "lifeshare-server")
	v.SetDefault("KAFKA.MESSAGES_TOPIC", "lifeshare-messages")
	v.SetDefault("KAFKA.REQUEST_EVENTS_TOPIC", "lifeshare-request-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "lifeshare-server-group")

	// Auth defaults
	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 24*time.Hour)

	// Redis defaults
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// WebSocket defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 4096)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv() // e.g. SERVER_PORT overrides SERVER.PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// No config file found; defaults plus env vars apply.
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
