// This file contains the service configuration. Values are resolved in order: built-in defaults, then an optional
// YAML file, then an optional .env file, then the process environment. Later sources win.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingMongoURI      = errors.New("mongo uri is not set")
	ErrMissingMongoDatabase = errors.New("mongo database is not set")
	ErrInvalidBcryptCost    = errors.New("bcrypt cost out of range")
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig is optional; an empty Addr disables the user list cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// RabbitMQConfig is optional; an empty URL disables user event publishing.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type AuthConfig struct {
	// AccessTokenSecret enables the bearer token guard on user routes when set.
	AccessTokenSecret string `yaml:"access_token_secret"`
	BcryptCost        int    `yaml:"bcrypt_cost"`
}

type LogConfig struct {
	Development bool     `yaml:"development"`
	Debug       bool     `yaml:"debug"`
	OutputPaths []string `yaml:"output_paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 5000,
		},
		Mongo: MongoConfig{
			Database: "technotes",
		},
		Redis: RedisConfig{
			TTL: time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "users",
		},
		Auth: AuthConfig{
			BcryptCost: bcrypt.DefaultCost,
		},
		Log: LogConfig{
			OutputPaths: []string{"user-service.log"},
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by USER_SERVICE_CONFIG (default config.yaml),
// the dotenv file named by USER_SERVICE_ENV (default secrets/.env) and the environment.
// Missing files are skipped. The result is validated.
func Load() (*Config, error) {
	cfg := Default()

	configFile := getEnv("USER_SERVICE_CONFIG", "config.yaml")
	if err := cfg.MergeFile(configFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	envFile := getEnv("USER_SERVICE_ENV", "secrets/.env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile merges a YAML file over the current values.
func (c *Config) MergeFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// ApplyEnv overrides values with any environment variables that are set.
func (c *Config) ApplyEnv() error {
	c.Server.IP = getEnv("WEBSERVER_IP", c.Server.IP)

	var err error
	if c.Server.Port, err = getEnvInt("WEBSERVER_PORT", c.Server.Port); err != nil {
		return err
	}

	// Same variables the mongo docker image is initialised with
	if ip, ok := os.LookupEnv("MONGO_IP"); ok {
		c.Mongo.URI = fmt.Sprintf("mongodb://%s:%s@%s:27017",
			os.Getenv("MONGO_INITDB_ROOT_USERNAME"),
			os.Getenv("MONGO_INITDB_ROOT_PASSWORD"),
			ip)
	}
	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASS", c.Redis.Password)
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if ttl, ok := os.LookupEnv("REDIS_TTL"); ok {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid duration for REDIS_TTL: %w", err)
		}
		c.Redis.TTL = d
	}

	c.RabbitMQ.URL = getEnv("RABBITMQ_URL", c.RabbitMQ.URL)
	c.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", c.RabbitMQ.Exchange)

	c.Auth.AccessTokenSecret = getEnv("ACCESS_TOKEN_SECRET", c.Auth.AccessTokenSecret)
	if c.Auth.BcryptCost, err = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost); err != nil {
		return err
	}

	if c.Log.Development, err = getEnvBool("LOG_DEVELOPMENT", c.Log.Development); err != nil {
		return err
	}
	if c.Log.Debug, err = getEnvBool("LOG_DEBUG", c.Log.Debug); err != nil {
		return err
	}
	if out, ok := os.LookupEnv("LOG_OUTPUT"); ok && out != "" {
		c.Log.OutputPaths = strings.Split(out, ",")
	}

	return nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return ErrMissingMongoURI
	}
	if c.Mongo.Database == "" {
		return ErrMissingMongoDatabase
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: %d", ErrInvalidBcryptCost, c.Auth.BcryptCost)
	}
	return nil
}

// Address returns the listen address of the web server.
func (c *Config) Address() string {
	return c.Server.IP + ":" + strconv.Itoa(c.Server.Port)
}

// String masks secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, Mongo DB: %s, Redis: %q, RabbitMQ set: %t, Token guard: %t}",
		c.Address(), c.Mongo.Database, c.Redis.Addr, c.RabbitMQ.URL != "", c.Auth.AccessTokenSecret != "")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}
