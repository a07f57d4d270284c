package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// QueueDriverBeanstalk selects the beanstalkd work queue
	QueueDriverBeanstalk = "beanstalk"
	// QueueDriverRabbitMQ selects the RabbitMQ emulation of the work queue
	QueueDriverRabbitMQ = "rabbitmq"

	DefaultFetcherBaseURL  = "http://www.xe.com/currencyconverter/convert/"
	DefaultFetcherTimeout  = 10 * time.Second
	DefaultTable           = "exchange_rates"
	DefaultTTR             = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration of the rate API
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URI             string        `yaml:"uri"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	Table           string        `yaml:"table"`
	MigrationsPath  string        `yaml:"migrations_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// QueueConfig holds work queue configuration. Host, port and tube apply to
// both drivers; for rabbitmq the tube is the queue name.
type QueueConfig struct {
	Driver         string           `yaml:"driver"`
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	Tube           string           `yaml:"tube"`
	ReserveTimeout time.Duration    `yaml:"reserve_timeout"`
	User           string           `yaml:"user"`
	Password       string           `yaml:"password"`
	VHost          string           `yaml:"vhost"`
	Exchange       string           `yaml:"exchange"`
	Connection     ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds queue connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// FetcherConfig holds settings of the outbound rate request
type FetcherConfig struct {
	BaseURL     string        `yaml:"base_url"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds the worker pool and job lifecycle settings.
// Delays are Go duration strings such as "3s".
type WorkerConfig struct {
	Parallelism          int           `yaml:"parallelism"`
	FailedDelay          time.Duration `yaml:"failed_delay"`
	FailedAttemptLimit   int           `yaml:"failed_attempt_limit"`
	SuccessDelay         time.Duration `yaml:"success_delay"`
	SuccessAttemptTarget int           `yaml:"success_attempt_target"`
	TTR                  time.Duration `yaml:"ttr"`
	MetricsPort          int           `yaml:"metrics_port"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file and fills defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Driver == "" {
		c.Queue.Driver = QueueDriverBeanstalk
	}
	if c.Database.Table == "" {
		c.Database.Table = DefaultTable
	}
	if c.Fetcher.BaseURL == "" {
		c.Fetcher.BaseURL = DefaultFetcherBaseURL
	}
	if c.Fetcher.IdleTimeout == 0 {
		c.Fetcher.IdleTimeout = DefaultFetcherTimeout
	}
	if c.Worker.TTR == 0 {
		c.Worker.TTR = DefaultTTR
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// ValidateQueueConfig checks the settings shared by every queue user
func (c *Config) ValidateQueueConfig() error {
	switch c.Queue.Driver {
	case QueueDriverBeanstalk, QueueDriverRabbitMQ:
	default:
		return fmt.Errorf("unknown queue driver: %q", c.Queue.Driver)
	}

	if c.Queue.Host == "" {
		return fmt.Errorf("queue host is required")
	}

	if c.Queue.Port < MinPort || c.Queue.Port > MaxPort {
		return fmt.Errorf("invalid queue port: %d (must be between %d and %d)", c.Queue.Port, MinPort, MaxPort)
	}

	if c.Queue.Tube == "" {
		return fmt.Errorf("queue tube is required")
	}

	return nil
}

// ValidateDatabaseConfig checks the store settings
func (c *Config) ValidateDatabaseConfig() error {
	if c.Database.URI == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}

		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}

		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if !identifierPattern.MatchString(c.Database.Table) {
		return fmt.Errorf("invalid database table name: %q", c.Database.Table)
	}

	return nil
}

// ValidateAPIConfig checks the configuration of the rate API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.ValidateDatabaseConfig(); err != nil {
		return err
	}

	return c.ValidateQueueConfig()
}

// ValidateWorkerConfig checks the configuration of the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.ValidateDatabaseConfig(); err != nil {
		return err
	}

	if err := c.ValidateQueueConfig(); err != nil {
		return err
	}

	if c.Worker.Parallelism < 1 {
		return fmt.Errorf("worker parallelism must be at least 1")
	}

	if c.Worker.FailedDelay < 0 {
		return fmt.Errorf("worker failed_delay must not be negative")
	}

	if c.Worker.SuccessDelay < 0 {
		return fmt.Errorf("worker success_delay must not be negative")
	}

	if c.Worker.FailedAttemptLimit < 1 {
		return fmt.Errorf("worker failed_attempt_limit must be at least 1")
	}

	if c.Worker.SuccessAttemptTarget < 1 {
		return fmt.Errorf("worker success_attempt_target must be at least 1")
	}

	if c.Worker.MetricsPort != 0 && (c.Worker.MetricsPort < MinPort || c.Worker.MetricsPort > MaxPort) {
		return fmt.Errorf("invalid worker metrics port: %d (must be between %d and %d)", c.Worker.MetricsPort, MinPort, MaxPort)
	}

	if c.Fetcher.IdleTimeout <= 0 {
		return fmt.Errorf("fetcher idle_timeout must be greater than 0")
	}

	return nil
}
