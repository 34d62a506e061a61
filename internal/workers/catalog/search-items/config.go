// internal/workers/catalog/search-items/config.go
package searchitems

import "time"

type Config struct {
	Timeout time.Duration
	// SearchLimit is the number of hits requested from the index.
	SearchLimit int
	// MaxResults is the number of hits listed in the reply.
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		SearchLimit: 5,
		MaxResults:  3,
	}
}
