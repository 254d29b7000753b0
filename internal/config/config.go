package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Verify   VerifyConfig
	Notify   NotifyConfig
	Env      string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type ServerConfig struct {
	Port string
}

type JWTConfig struct {
	Secret string
}

type RedisConfig struct {
	URL string
}

// VerifyConfig holds the per-channel daily issuance caps for
// verification codes. The window is a trailing 24 hours, not a
// calendar day.
type VerifyConfig struct {
	MaxEmailPerDay int
	MaxPhonePerDay int
	MaxXmppPerDay  int
}

type NotifyConfig struct {
	// Enabled controls whether outbound messages actually hit the
	// transports. Message records are written either way.
	Enabled bool

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	XmppJID      string
	XmppServer   string
	XmppPassword string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "sparkles"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-default-secret-key"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Verify: VerifyConfig{
			MaxEmailPerDay: getEnvInt("AUTH_MAX_EMAIL_DAY", 2),
			MaxPhonePerDay: getEnvInt("AUTH_MAX_PHONE_DAY", 2),
			MaxXmppPerDay:  getEnvInt("AUTH_MAX_XMPP_DAY", 4),
		},
		Notify: NotifyConfig{
			Enabled:      getEnv("NOTIFY_ENABLED", "false") == "true",
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASSWORD", ""),
			EmailFrom:    getEnv("EMAIL_FROM", "noreply@sparkles.org"),
			TwilioSID:    getEnv("TWILIO_SID", ""),
			TwilioToken:  getEnv("TWILIO_TOKEN", ""),
			TwilioFrom:   getEnv("TWILIO_PHONE", ""),
			XmppJID:      getEnv("XMPP_JID", ""),
			XmppServer:   getEnv("XMPP_SERVER", ""),
			XmppPassword: getEnv("XMPP_PASSWORD", ""),
		},
		Env: getEnv("ENVIRONMENT", "development"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: %s is not a number, using default %d", key, defaultValue)
	}
	return defaultValue
}
