// Package config loads runtime settings from defaults, an optional YAML file,
// a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	MediaLocal      = "local"
	MediaCloudinary = "cloudinary"
)

type Config struct {
	Port           int           `yaml:"port"`
	MongoURI       string        `yaml:"mongo_uri"`
	DBName         string        `yaml:"db_name"`
	StoreDriver    string        `yaml:"store_driver"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	AllowOverdraft bool          `yaml:"allow_overdraft"`
	BcryptCost     int           `yaml:"bcrypt_cost"`

	Media MediaConfig `yaml:"media"`
	Email EmailConfig `yaml:"email"`
	Log   LogConfig   `yaml:"log"`
}

type MediaConfig struct {
	Driver    string `yaml:"driver"`
	UploadDir string `yaml:"upload_dir"`
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

type EmailConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
}

// Enabled reports whether enough is configured to send mail.
func (e EmailConfig) Enabled() bool {
	return e.APIURL != "" && e.APIKey != "" && e.From != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns settings suitable for local development.
func Default() *Config {
	return &Config{
		Port:           8080,
		MongoURI:       "mongodb://localhost:27017",
		DBName:         "campuspay",
		StoreDriver:    StoreMongo,
		JWTSecret:      "dev-secret-change-me",
		TokenTTL:       24 * time.Hour,
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    []string{"*"},
		AllowOverdraft: true,
		Media: MediaConfig{
			Driver:    MediaLocal,
			UploadDir: "./uploads",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

var defaultFiles = []string{"app.yaml", "config/app.yaml"}

// Load builds the configuration. A missing YAML or .env file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		for _, p := range defaultFiles {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setInt("PORT", &c.Port)
	setString("MONGO_URI", &c.MongoURI)
	setString("DB_NAME", &c.DBName)
	setString("STORE_DRIVER", &c.StoreDriver)
	setString("JWT_SECRET", &c.JWTSecret)
	setDuration("TOKEN_TTL", &c.TokenTTL)
	setDuration("REQUEST_TIMEOUT", &c.RequestTimeout)
	setBool("ALLOW_OVERDRAFT", &c.AllowOverdraft)
	setInt("BCRYPT_COST", &c.BcryptCost)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	setString("MEDIA_DRIVER", &c.Media.Driver)
	setString("UPLOAD_DIR", &c.Media.UploadDir)
	setString("CLOUDINARY_CLOUD_NAME", &c.Media.CloudName)
	setString("CLOUDINARY_API_KEY", &c.Media.APIKey)
	setString("CLOUDINARY_API_SECRET", &c.Media.APISecret)

	setString("ZEPTO_API_URL", &c.Email.APIURL)
	setString("ZEPTO_API_KEY", &c.Email.APIKey)
	setString("EMAIL_FROM", &c.Email.From)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" || c.DBName == "" {
			errs = append(errs, errors.New("mongo uri and db name are required"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	switch c.Media.Driver {
	case MediaLocal:
		if c.Media.UploadDir == "" {
			errs = append(errs, errors.New("upload dir is required for local media"))
		}
	case MediaCloudinary:
		if c.Media.CloudName == "" || c.Media.APIKey == "" || c.Media.APISecret == "" {
			errs = append(errs, errors.New("cloudinary credentials are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media driver %q", c.Media.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
