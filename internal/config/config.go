package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Photos   PhotosConfig   `yaml:"photos"`
	Queue    QueueConfig    `yaml:"queue"`
	Printer  PrinterConfig  `yaml:"printer"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Share    ShareConfig    `yaml:"share"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path         string `yaml:"path"`
	ArchivePath  string `yaml:"archive_path"`
	ArchiveDays  int    `yaml:"archive_days"`
	ArchivePrune bool   `yaml:"archive_prune"`
}

type PhotosConfig struct {
	Dir string `yaml:"dir"`
}

type QueueConfig struct {
	Capacity     int           `yaml:"capacity"`
	WorkerCount  int           `yaml:"worker_count"`
	MaxAttempts  int           `yaml:"max_attempts"`
	PrintTimeout time.Duration `yaml:"print_timeout"`
}

type PrinterConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	UseTLS         bool          `yaml:"use_tls"`
	DefaultName    string        `yaml:"default_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type AlertsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	GotifyURL   string        `yaml:"gotify_url"`
	GotifyToken string        `yaml:"gotify_token"`
	Cooldown    time.Duration `yaml:"cooldown"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type ShareConfig struct {
	CountryPrefix  string          `yaml:"country_prefix"`
	MinPhoneDigits int             `yaml:"min_phone_digits"`
	Greeting       string          `yaml:"greeting"`
	Hosts          []string        `yaml:"hosts"`
	ZeroXZero      ZeroXZeroConfig `yaml:"zeroxzero"`
	ImgBB          ImgBBConfig     `yaml:"imgbb"`
	S3             S3Config        `yaml:"s3"`
	SMS            SMSConfig       `yaml:"sms"`
}

type ZeroXZeroConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	UserAgent    string        `yaml:"user_agent"`
	ExpiresHours int           `yaml:"expires_hours"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ImgBBConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"api_key"`
	ExpirationSeconds int           `yaml:"expiration_seconds"`
	Timeout           time.Duration `yaml:"timeout"`
}

type S3Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	KeyPrefix       string        `yaml:"key_prefix"`
	Expiry          string        `yaml:"expiry"`
	Timeout         time.Duration `yaml:"timeout"`
}

type SMSConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "./data/boothd.db",
			ArchivePath:  "./data/archives",
			ArchiveDays:  30,
			ArchivePrune: false,
		},
		Photos: PhotosConfig{
			Dir: "./data/photos",
		},
		Queue: QueueConfig{
			Capacity:     100,
			WorkerCount:  2,
			MaxAttempts:  2,
			PrintTimeout: 2 * time.Minute,
		},
		Printer: PrinterConfig{
			Host:           "localhost",
			Port:           631,
			ConnectTimeout: 10 * time.Second,
		},
		Alerts: AlertsConfig{
			Enabled:     true,
			Cooldown:    5 * time.Minute,
			SendTimeout: 10 * time.Second,
		},
		Share: ShareConfig{
			CountryPrefix:  "+1",
			MinPhoneDigits: 10,
			Hosts:          []string{"zeroxzero"},
			ZeroXZero: ZeroXZeroConfig{
				Endpoint:     "https://0x0.st",
				UserAgent:    "boothd/1.0 (photo sharing)",
				ExpiresHours: 24,
				Timeout:      30 * time.Second,
			},
			ImgBB: ImgBBConfig{
				Endpoint:          "https://api.imgbb.com/1/upload",
				ExpirationSeconds: 86400,
				Timeout:           30 * time.Second,
			},
			S3: S3Config{
				Region:  "auto",
				Expiry:  "30 days",
				Timeout: 30 * time.Second,
			},
			SMS: SMSConfig{
				Timeout: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path, layered over defaults. A missing
// file is not an error; the defaults stand.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv overrides individual fields from BOOTH_* environment
// variables. Called after Load so the environment wins over the file.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("BOOTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("BOOTH_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("BOOTH_ARCHIVE_PATH"); v != "" {
		c.Database.ArchivePath = v
	}

	if v := os.Getenv("BOOTH_PHOTOS_DIR"); v != "" {
		c.Photos.Dir = v
	}

	if v := os.Getenv("BOOTH_PRINTER_HOST"); v != "" {
		c.Printer.Host = v
	}

	if v := os.Getenv("BOOTH_GOTIFY_URL"); v != "" {
		c.Alerts.GotifyURL = v
	}

	if v := os.Getenv("BOOTH_GOTIFY_TOKEN"); v != "" {
		c.Alerts.GotifyToken = v
	}

	if v := os.Getenv("BOOTH_IMGBB_API_KEY"); v != "" {
		c.Share.ImgBB.APIKey = v
	}

	if v := os.Getenv("BOOTH_S3_ACCESS_KEY_ID"); v != "" {
		c.Share.S3.AccessKeyID = v
	}

	if v := os.Getenv("BOOTH_S3_SECRET_ACCESS_KEY"); v != "" {
		c.Share.S3.SecretAccessKey = v
	}

	if v := os.Getenv("BOOTH_SMS_URL"); v != "" {
		c.Share.SMS.URL = v
	}

	if v := os.Getenv("BOOTH_SMS_USERNAME"); v != "" {
		c.Share.SMS.Username = v
	}

	if v := os.Getenv("BOOTH_SMS_PASSWORD"); v != "" {
		c.Share.SMS.Password = v
	}

	if v := os.Getenv("BOOTH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Database.ArchiveDays < 0 {
		return fmt.Errorf("archive days must be non-negative")
	}

	if c.Photos.Dir == "" {
		return fmt.Errorf("photos dir is required")
	}

	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue capacity must be at least 1")
	}

	if c.Queue.WorkerCount < 1 {
		return fmt.Errorf("queue worker count must be at least 1")
	}

	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue max attempts must be at least 1")
	}

	if c.Queue.PrintTimeout <= 0 {
		return fmt.Errorf("queue print timeout must be positive")
	}

	if c.Printer.Port < 1 || c.Printer.Port > 65535 {
		return fmt.Errorf("printer port must be between 1 and 65535, got %d", c.Printer.Port)
	}

	if c.Alerts.Cooldown < 0 {
		return fmt.Errorf("alert cooldown must be non-negative")
	}

	if c.Alerts.Enabled && c.Alerts.GotifyURL != "" && c.Alerts.GotifyToken == "" {
		return fmt.Errorf("gotify token is required when a gotify url is set")
	}

	if c.Share.MinPhoneDigits < 1 {
		return fmt.Errorf("share min phone digits must be at least 1")
	}

	for _, host := range c.Share.Hosts {
		switch host {
		case "zeroxzero":
		case "imgbb":
			if c.Share.ImgBB.APIKey == "" {
				return fmt.Errorf("imgbb api key is required when imgbb is a configured host")
			}
		case "s3":
			if c.Share.S3.Bucket == "" || c.Share.S3.Endpoint == "" {
				return fmt.Errorf("s3 bucket and endpoint are required when s3 is a configured host")
			}
			if c.Share.S3.AccessKeyID == "" || c.Share.S3.SecretAccessKey == "" {
				return fmt.Errorf("s3 credentials are required when s3 is a configured host")
			}
		default:
			return fmt.Errorf("unknown hosting backend: %s (valid: zeroxzero, imgbb, s3)", host)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
