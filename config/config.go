package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config defines the app configuration.
type Config struct {
	Server struct {
		Port int    `yaml:"port" env:"PORT" env-default:"4000"`
		Env  string `yaml:"env" env:"ENV" env-default:"development"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" env:"LOGLEVEL" env-default:"info"`
	} `yaml:"log"`
	Database struct {
		DSN          string `yaml:"dsn" env:"DSN"`
		MaxOpenConns int    `yaml:"max_open_conns" env:"MAXOPENCONNS" env-default:"25"`
		MaxIdleConns int    `yaml:"max_idle_conns" env:"MAXIDLECONNS" env-default:"25"`
		MaxIdleTime  string `yaml:"max_idle_time" env:"MAXIDLETIME" env-default:"15m"`
	} `yaml:"database"`
	Smtp struct {
		Host     string `yaml:"host" env:"SMTPHOST" env-default:"localhost"`
		Port     int    `yaml:"port" env:"SMTPPORT" env-default:"25"`
		Username string `yaml:"username" env:"SMTPUSERNAME"`
		Password string `yaml:"password" env:"SMTPPASSWORD"`
		Sender   string `yaml:"sender" env:"SMTPSENDER" env-default:"Bibliotheca <no-reply@bibliotheca.local>"`
	} `yaml:"smtp"`
	S3 struct {
		AccessKeyID     string `yaml:"access_key_id" env:"ACCESSKEYID"`
		SecretAccessKey string `yaml:"secret_access_key" env:"SECRETACCESSKEY"`
		Region          string `yaml:"region" env:"REGION" env-default:"us-east-1"`
		Bucket          string `yaml:"bucket" env:"BUCKET"`
	} `yaml:"s3"`
	Limiter struct {
		RPS     float64 `yaml:"rps" env:"RPS" env-default:"2"`
		Burst   int     `yaml:"burst" env:"BURST" env-default:"4"`
		Enabled bool    `yaml:"enabled" env:"LENABLED" env-default:"true"`
	} `yaml:"limiter"`
	Cors struct {
		TrustedOrigins []string `yaml:"trusted_origins" env:"TRUSTEDORIGINS" env-separator:" "`
	} `yaml:"cors"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env:"MENABLED"`
	} `yaml:"metrics"`
	BasicAuth struct {
		Username     string `yaml:"username" env:"USERNAME" env-default:"admin"`
		PasswordHash string `yaml:"password_hash" env:"PASSWORDHASH"`
	} `yaml:"basic_auth"`
	Lending struct {
		Locale              string        `yaml:"locale" env:"LOCALE" env-default:"es"`
		SweepInterval       time.Duration `yaml:"sweep_interval" env:"SWEEPINTERVAL" env-default:"1h"`
		NotificationChannel string        `yaml:"notification_channel" env:"NOTIFICATIONCHANNEL" env-default:"log"`
		WebhookURL          string        `yaml:"webhook_url" env:"WEBHOOKURL"`
		DownloadLinkTTL     time.Duration `yaml:"download_link_ttl" env:"DOWNLOADLINKTTL" env-default:"15m"`
		SeedFile            string        `yaml:"seed_file" env:"SEEDFILE"`
	} `yaml:"lending"`
}

// Notification channels accepted by Lending.NotificationChannel.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
	ChannelLog     = "log"
)

// Decode reads the YAML file named by $CONFIG_PATH, if set, and applies
// environment overrides and defaults on top of it.
func Decode() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, err
		}
		return cfg, cfg.validate()
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	if cfg.Lending.SweepInterval <= 0 {
		return fmt.Errorf("lending.sweep_interval must be positive, got %s", cfg.Lending.SweepInterval)
	}
	if cfg.Lending.DownloadLinkTTL <= 0 {
		return fmt.Errorf("lending.download_link_ttl must be positive, got %s", cfg.Lending.DownloadLinkTTL)
	}
	return nil
}
