package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/unihub/notify-svc/pkg/logger"
)

// Config holds the full service configuration. It is built once at startup
// and passed by reference into components so that nothing reads process-wide
// state at call sites.
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Email    EmailConfig
	FCM      FCMConfig
	Jaeger   JaegerConfig
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port             string
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	MigrationsPath string
}

// RabbitMQConfig holds the optional queue trigger settings.
type RabbitMQConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	Queue       string
	ConsumerTag string
}

// EmailConfig holds email provider settings.
type EmailConfig struct {
	APIKey      string
	From        string
	BaseURL     string
	MaxAttempts int
	// BaseDelay is the first backoff step when the provider rate-limits.
	BaseDelay time.Duration
	// SendDelay is the pause between consecutive email sends in one fan-out.
	SendDelay time.Duration
}

// FCMConfig holds push gateway settings.
type FCMConfig struct {
	// ServiceAccountJSON is the raw service account credential blob.
	// Empty means push sending fails closed.
	ServiceAccountJSON string
	Endpoint           string
}

// JaegerConfig holds tracing exporter settings.
type JaegerConfig struct {
	Endpoint string
}

// MustInit loads .env and config.yaml, sets up the default logger and
// returns the assembled configuration.
func MustInit() *Config {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Warn("No .env file loaded", "error", err)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/notify-svc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()

	return &Config{
		HTTP: HTTPConfig{
			Port:             viper.GetString("server.http.port"),
			AllowedOrigins:   viper.GetStringSlice("server.http.cors.allowed_origins"),
			AllowedMethods:   viper.GetStringSlice("server.http.cors.allowed_methods"),
			AllowedHeaders:   viper.GetStringSlice("server.http.cors.allowed_headers"),
			ExposedHeaders:   viper.GetStringSlice("server.http.cors.exposed_headers"),
			AllowCredentials: viper.GetBool("server.http.cors.allow_credentials"),
			MaxAge:           viper.GetInt("server.http.cors.max_age"),
		},
		Postgres: PostgresConfig{
			Host:           os.Getenv("NOTIFY_PG_HOST"),
			Port:           viper.GetInt("postgres.port"),
			User:           os.Getenv("NOTIFY_PG_USER"),
			Password:       os.Getenv("NOTIFY_PG_PASSWORD"),
			Database:       os.Getenv("NOTIFY_PG_DB"),
			MigrationsPath: viper.GetString("postgres.migrations_path"),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:     viper.GetBool("rabbitmq.enabled"),
			Host:        viper.GetString("rabbitmq.host"),
			Port:        viper.GetInt("rabbitmq.port"),
			User:        os.Getenv("RABBITMQ_DEFAULT_USER"),
			Password:    os.Getenv("RABBITMQ_DEFAULT_PASS"),
			Queue:       viper.GetString("rabbitmq.queue"),
			ConsumerTag: viper.GetString("rabbitmq.consumer_tag"),
		},
		Email: EmailConfig{
			APIKey:      os.Getenv("RESEND_API_KEY"),
			From:        viper.GetString("email.from"),
			BaseURL:     viper.GetString("email.base_url"),
			MaxAttempts: viper.GetInt("email.max_attempts"),
			BaseDelay:   viper.GetDuration("email.base_delay"),
			SendDelay:   viper.GetDuration("email.send_delay"),
		},
		FCM: FCMConfig{
			ServiceAccountJSON: os.Getenv("FCM_SERVICE_ACCOUNT_JSON"),
			Endpoint:           viper.GetString("fcm.endpoint"),
		},
		Jaeger: JaegerConfig{
			Endpoint: viper.GetString("jaeger.endpoint"),
		},
	}
}

// SetupLogger installs the service-wide slog handler.
func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}
