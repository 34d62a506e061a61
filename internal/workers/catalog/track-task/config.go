// internal/workers/catalog/track-task/config.go
package tracktask

import "time"

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Timeout      time.Duration
	// MaxPolls fails a task still pending after this many checks. Zero
	// polls forever.
	MaxPolls int
}

func LoadConfig() *Config {
	return &Config{
		PollInterval: 5 * time.Second,
		BatchSize:    50,
		Timeout:      10 * time.Second,
		MaxPolls:     720,
	}
}
