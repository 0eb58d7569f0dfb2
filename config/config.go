package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RabbitMQ     RabbitMQConfig
	Notification NotificationConfig
	Scheduling   SchedulingConfig
	LogLevel     string
}

type AppConfig struct {
	Port          string
	Env           string
	Timezone      string
	PublicBaseURL string
	CORSOrigin    string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessExpiry time.Duration
}

type RabbitMQConfig struct {
	Enabled  bool
	URL      string
	Exchange string
}

// NotificationConfig is handed to the notification collaborator only.
type NotificationConfig struct {
	OwnerPhone  string
	AdminEmail  string
	SendTimeout time.Duration
}

type SchedulingConfig struct {
	InspectionDuration int
	ExpiringSoonDays   int
	SweepInterval      time.Duration
	LockTTL            time.Duration
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "local"
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment alone may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:          viper.GetString("APP_PORT"),
			Env:           viper.GetString("APP_ENV"),
			Timezone:      viper.GetString("APP_TIMEZONE"),
			PublicBaseURL: viper.GetString("APP_PUBLIC_BASE_URL"),
			CORSOrigin:    viper.GetString("APP_CORS_ORIGIN"),
		},
		DB: DBConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Name:         viper.GetString("DB_NAME"),
			SSLMode:      viper.GetString("DB_SSLMODE"),
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			Issuer:       viper.GetString("JWT_ISSUER"),
			AccessExpiry: parseDuration("JWT_ACCESS_EXPIRY", 12*time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:  viper.GetBool("RABBITMQ_ENABLED"),
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("RABBITMQ_EXCHANGE"),
		},
		Notification: NotificationConfig{
			OwnerPhone:  viper.GetString("NOTIFY_OWNER_PHONE"),
			AdminEmail:  viper.GetString("NOTIFY_ADMIN_EMAIL"),
			SendTimeout: parseDuration("NOTIFY_SEND_TIMEOUT", 10*time.Second),
		},
		Scheduling: SchedulingConfig{
			InspectionDuration: viper.GetInt("SCHEDULING_INSPECTION_DURATION"),
			ExpiringSoonDays:   viper.GetInt("SCHEDULING_EXPIRING_SOON_DAYS"),
			SweepInterval:      parseDuration("SCHEDULING_SWEEP_INTERVAL", 24*time.Hour),
			LockTTL:            parseDuration("SCHEDULING_LOCK_TTL", 10*time.Second),
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "Europe/Bucharest")
	viper.SetDefault("APP_PUBLIC_BASE_URL", "http://localhost:8080")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ISSUER", "itp-scheduler")
	viper.SetDefault("RABBITMQ_EXCHANGE", "itp.notifications")
	viper.SetDefault("SCHEDULING_INSPECTION_DURATION", 30)
	viper.SetDefault("SCHEDULING_EXPIRING_SOON_DAYS", 30)
	viper.SetDefault("LOG_LEVEL", "info")
}

func parseDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
