package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, "xe-rate-worker", cfg.App.Name)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "rates_db", cfg.Database.Database)
			assert.Equal(t, QueueDriverBeanstalk, cfg.Queue.Driver)
			assert.Equal(t, 11300, cfg.Queue.Port)
			assert.Equal(t, "clarenceki", cfg.Queue.Tube)
			assert.Equal(t, 10, cfg.Worker.Parallelism)
			assert.Equal(t, 3*time.Second, cfg.Worker.FailedDelay)
			assert.Equal(t, 3, cfg.Worker.FailedAttemptLimit)
			assert.Equal(t, 60*time.Second, cfg.Worker.SuccessDelay)
			assert.Equal(t, 10, cfg.Worker.SuccessAttemptTarget)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, DefaultTable, cfg.Database.Table)
	assert.Equal(t, DefaultFetcherBaseURL, cfg.Fetcher.BaseURL)
	assert.Equal(t, DefaultFetcherTimeout, cfg.Fetcher.IdleTimeout)
	assert.Equal(t, DefaultTTR, cfg.Worker.TTR)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Worker.ShutdownTimeout)
}

func TestLoad_RabbitMQWithURI(t *testing.T) {
	cfg, err := Load("testdata/rabbitmq_uri.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateWorkerConfig())

	assert.Equal(t, QueueDriverRabbitMQ, cfg.Queue.Driver)
	assert.Equal(t, "xe_currency", cfg.Database.Table)
	assert.Equal(t, "postgres://rates:rates@db:5432/rates_db?sslmode=disable", cfg.Database.URI)
	assert.Equal(t, 2*time.Second, cfg.Fetcher.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Worker.TTR)
	assert.Equal(t, 9100, cfg.Worker.MetricsPort)
}

func validWorkerConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Database: "rates_db"},
		Queue:    QueueConfig{Host: "localhost", Port: 11300, Tube: "clarenceki"},
		Worker: WorkerConfig{
			Parallelism:          2,
			FailedDelay:          3 * time.Second,
			FailedAttemptLimit:   3,
			SuccessDelay:         60 * time.Second,
			SuccessAttemptTarget: 10,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "zero delays are allowed", mutate: func(c *Config) {
			c.Worker.FailedDelay = 0
			c.Worker.SuccessDelay = 0
		}},
		{name: "uri replaces host fields", mutate: func(c *Config) {
			c.Database = DatabaseConfig{URI: "postgres://localhost/rates", Table: DefaultTable}
		}},
		{name: "empty database host", mutate: func(c *Config) { c.Database.Host = "" }, errString: "database host is required"},
		{name: "empty database name", mutate: func(c *Config) { c.Database.Database = "" }, errString: "database name is required"},
		{name: "bad database port", mutate: func(c *Config) { c.Database.Port = 70000 }, errString: "invalid database port"},
		{name: "bad table name", mutate: func(c *Config) { c.Database.Table = "rates; DROP TABLE x" }, errString: "invalid database table name"},
		{name: "unknown driver", mutate: func(c *Config) { c.Queue.Driver = "kafka" }, errString: "unknown queue driver"},
		{name: "empty queue host", mutate: func(c *Config) { c.Queue.Host = "" }, errString: "queue host is required"},
		{name: "bad queue port", mutate: func(c *Config) { c.Queue.Port = 0 }, errString: "invalid queue port"},
		{name: "empty tube", mutate: func(c *Config) { c.Queue.Tube = "" }, errString: "queue tube is required"},
		{name: "zero parallelism", mutate: func(c *Config) { c.Worker.Parallelism = 0 }, errString: "parallelism must be at least 1"},
		{name: "negative failed delay", mutate: func(c *Config) { c.Worker.FailedDelay = -time.Second }, errString: "failed_delay must not be negative"},
		{name: "negative success delay", mutate: func(c *Config) { c.Worker.SuccessDelay = -time.Second }, errString: "success_delay must not be negative"},
		{name: "zero failed limit", mutate: func(c *Config) { c.Worker.FailedAttemptLimit = 0 }, errString: "failed_attempt_limit must be at least 1"},
		{name: "zero success target", mutate: func(c *Config) { c.Worker.SuccessAttemptTarget = 0 }, errString: "success_attempt_target must be at least 1"},
		{name: "bad metrics port", mutate: func(c *Config) { c.Worker.MetricsPort = 65536 }, errString: "invalid worker metrics port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validWorkerConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	cfg := validWorkerConfig()
	cfg.Server.Port = 8080
	require.NoError(t, cfg.ValidateAPIConfig())

	cfg.Server.Port = 0
	err := cfg.ValidateAPIConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with zero parallelism", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_parallelism.yaml")
		require.NoError(t, err)

		err = cfg.ValidateWorkerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parallelism must be at least 1")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateWorkerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
