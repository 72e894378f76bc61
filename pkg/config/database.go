package config

import (
	"fmt"
	"strings"
	"time"
)

type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connectTimeout"`
	QueryTimeout   time.Duration `koanf:"queryTimeout"`
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", c.URL)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("invalid database connect timeout: %v", c.ConnectTimeout)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("invalid database query timeout: %v", c.QueryTimeout)
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}
