package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process wide configuration, loaded once on start.
var Conf = NewConfig()

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		SubmitRateLimit           int
		SubmitRateWindow          time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	EmailConfig struct {
		Backend           string // console | sendgrid | smtp
		SendgridAPIKey    string
		SMTPHost          string
		SMTPPort          int
		SMTPUser          string
		SMTPPassword      string
		SMTPSkipTLSVerify bool
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Email    EmailConfig
		Redis    RedisConfig
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig reads the configuration from defaults, `config/.env.<env>` and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_NAME", "SIMAGANG")
	v.SetDefault("BUILD", "dev")
	v.SetDefault("DEBUG", true)
	v.SetDefault("TEST_MODE", false)
	v.SetDefault("SECRET_KEY", "x7#kq0m!v2-pl9+ra&8e$zt@u4d^w1(ng)c6j3bsy5ho=fi")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_FROM_EMAIL", "noreply@localhost")
	v.SetDefault("DEFAULT_FROM_NAME", "SIMAGANG")
	v.SetDefault("ROLLBAR_TOKEN", "")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_DEBUG_HOST", "0.0.0.0:4000")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("JWT_EXPIRATION_DELTA", time.Hour)
	v.SetDefault("JWT_REFRESH_EXPIRATION_DELTA", 7*24*time.Hour)
	v.SetDefault("SUBMIT_RATE_LIMIT", 3)
	v.SetDefault("SUBMIT_RATE_WINDOW", time.Minute)

	v.SetDefault("DATABASE_ENGINE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "simagang")
	v.SetDefault("DATABASE_USER", "simagang")
	v.SetDefault("DATABASE_PASSWORD", "simagang")
	v.SetDefault("DATABASE_ADMIN_USER", "postgres")
	v.SetDefault("DATABASE_ADMIN_PASSWORD", "")
	v.SetDefault("DATABASE_DISABLE_TLS", true)
	v.SetDefault("DATABASE_PATH", "simagang.db")

	v.SetDefault("EMAIL_BACKEND", "console")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)

	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("TEST_MODE", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(ProjectRoot(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("APP_NAME"),
		Env:             env,
		Build:           v.GetString("BUILD"),
		Debug:           v.GetBool("DEBUG"),
		TestMode:        v.GetBool("TEST_MODE"),
		SecretKey:       v.GetString("SECRET_KEY"),
		FrontendBaseURL: strings.TrimRight(v.GetString("FRONTEND_BASE_URL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("DEFAULT_FROM_NAME"),
			Address: v.GetString("DEFAULT_FROM_EMAIL"),
		},
		RollbarToken: v.GetString("ROLLBAR_TOKEN"),
		Server: ServerConfig{
			Host:                      v.GetString("SERVER_HOST"),
			Port:                      v.GetString("SERVER_PORT"),
			DebugHost:                 v.GetString("SERVER_DEBUG_HOST"),
			ShutdownTimeout:           v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			JWTExpirationDelta:        v.GetDuration("JWT_EXPIRATION_DELTA"),
			JWTRefreshExpirationDelta: v.GetDuration("JWT_REFRESH_EXPIRATION_DELTA"),
			SubmitRateLimit:           v.GetInt("SUBMIT_RATE_LIMIT"),
			SubmitRateWindow:          v.GetDuration("SUBMIT_RATE_WINDOW"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("DATABASE_ENGINE"),
			Host:          v.GetString("DATABASE_HOST"),
			Port:          v.GetString("DATABASE_PORT"),
			Name:          v.GetString("DATABASE_NAME"),
			User:          v.GetString("DATABASE_USER"),
			Password:      v.GetString("DATABASE_PASSWORD"),
			AdminUser:     v.GetString("DATABASE_ADMIN_USER"),
			AdminPassword: v.GetString("DATABASE_ADMIN_PASSWORD"),
			DisableTLS:    v.GetBool("DATABASE_DISABLE_TLS"),
			Path:          v.GetString("DATABASE_PATH"),
		},
		Email: EmailConfig{
			Backend:           strings.ToLower(v.GetString("EMAIL_BACKEND")),
			SendgridAPIKey:    v.GetString("SENDGRID_API_KEY"),
			SMTPHost:          v.GetString("SMTP_HOST"),
			SMTPPort:          v.GetInt("SMTP_PORT"),
			SMTPUser:          v.GetString("SMTP_USER"),
			SMTPPassword:      v.GetString("SMTP_PASSWORD"),
			SMTPSkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}
}
