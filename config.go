package jobq

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// RetryConfig is the serializable form of a RetryPolicy.
type RetryConfig struct {
	BaseDelayMs  int      `yaml:"base_delay_ms"`
	MaxDelayMs   int      `yaml:"max_delay_ms"`
	NonRetryable []string `yaml:"non_retryable"`
}

// Config is the recognized configuration surface for running a pool.
type Config struct {
	QueueName           string      `yaml:"queue_name"`
	WorkerCount         int         `yaml:"worker_count"`
	PollIntervalMs      int         `yaml:"poll_interval_ms"`
	ScheduledIntervalMs int         `yaml:"scheduled_interval_ms"`
	Retry               RetryConfig `yaml:"retry"`
}

// LoadConfig reads a YAML config file, applies JOBQ_* environment
// overrides and validates the result. A missing file is not an error;
// defaults and environment still apply.
func LoadConfig(path string) (*Config, error) {
	defaultPolicy := DefaultRetryPolicy()
	config := &Config{
		QueueName:           "default",
		WorkerCount:         1,
		PollIntervalMs:      1000,
		ScheduledIntervalMs: 5000,
		Retry: RetryConfig{
			BaseDelayMs:  int(defaultPolicy.BaseDelay / time.Millisecond),
			MaxDelayMs:   int(defaultPolicy.MaxDelay / time.Millisecond),
			NonRetryable: defaultPolicy.NonRetryable,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		err = yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("unmarshal config file: %w", err)
		}
	}

	if queueName, exists := os.LookupEnv("JOBQ_QUEUE_NAME"); exists {
		config.QueueName = queueName
	}
	if workerCount, exists := os.LookupEnv("JOBQ_WORKER_COUNT"); exists {
		if val, err := strconv.Atoi(workerCount); err == nil {
			config.WorkerCount = val
		}
	}
	if pollInterval, exists := os.LookupEnv("JOBQ_POLL_INTERVAL_MS"); exists {
		if val, err := strconv.Atoi(pollInterval); err == nil {
			config.PollIntervalMs = val
		}
	}
	if scheduledInterval, exists := os.LookupEnv("JOBQ_SCHEDULED_INTERVAL_MS"); exists {
		if val, err := strconv.Atoi(scheduledInterval); err == nil {
			config.ScheduledIntervalMs = val
		}
	}

	if config.QueueName == "" {
		return nil, ErrQueueIsRequired
	}
	if config.WorkerCount < 1 {
		return nil, fmt.Errorf("worker_count must be at least 1, got %d", config.WorkerCount)
	}
	if config.PollIntervalMs < 1 {
		return nil, fmt.Errorf("poll_interval_ms must be positive, got %d", config.PollIntervalMs)
	}
	if config.ScheduledIntervalMs < 1 {
		return nil, fmt.Errorf("scheduled_interval_ms must be positive, got %d", config.ScheduledIntervalMs)
	}

	return config, nil
}

// PoolConfig converts the configuration into pool sizing.
func (c *Config) PoolConfig() PoolConfig {
	return PoolConfig{
		QueueName:         c.QueueName,
		WorkerCount:       c.WorkerCount,
		PollInterval:      time.Duration(c.PollIntervalMs) * time.Millisecond,
		ScheduledInterval: time.Duration(c.ScheduledIntervalMs) * time.Millisecond,
	}
}

// RetryPolicy converts the retry section into a policy.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:    time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
		NonRetryable: c.Retry.NonRetryable,
	}
}
