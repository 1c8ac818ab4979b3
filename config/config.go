package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds bridge configuration.
type Config struct {
	Endpoint           string
	Token              string
	UserAgent          string
	DeliveryTimeout    time.Duration
	StatusTimeout      time.Duration
	MaxAttempts        int
	RetryBackoff       time.Duration
	HeartbeatInterval  time.Duration
	HeartbeatDelay     time.Duration
	Workers            int
	QueueSize          int
	BackupDir          string
	ArchiveDir         string
	QuarantineDir      string
	DeleteOnSuccess    bool
	NotifySuccess      bool
	AcceptedExtensions []string
	VocabularyFile     string
	LogLevel           string
	LogFormat          string // text, json, or auto
	MetricsAddr        string
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	Verbose            bool
}

// DefaultConfig returns the production defaults of the FTP bridge.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:           "http://localhost:3000/api/webhooks/inventory-sync",
		Token:              "",
		UserAgent:          "go-inventory-bridge/1.0",
		DeliveryTimeout:    30 * time.Second,
		StatusTimeout:      10 * time.Second,
		MaxAttempts:        4,
		RetryBackoff:       10 * time.Minute,
		HeartbeatInterval:  time.Hour,
		HeartbeatDelay:     10 * time.Second,
		Workers:            4,
		QueueSize:          64,
		BackupDir:          "backups",
		ArchiveDir:         "processed",
		QuarantineDir:      "failed",
		DeleteOnSuccess:    false,
		NotifySuccess:      false,
		AcceptedExtensions: []string{".csv", ".txt"},
		LogLevel:           "info",
		LogFormat:          "auto",
		OutputFile:         "output/vehicles.csv",
		OutputFormat:       "csv",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("endpoint must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https")
	}

	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive")
	}
	if c.StatusTimeout <= 0 {
		return fmt.Errorf("status timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat interval cannot be negative")
	}
	if c.HeartbeatDelay < 0 {
		return fmt.Errorf("heartbeat delay cannot be negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.BackupDir == "" || c.ArchiveDir == "" || c.QuarantineDir == "" {
		return fmt.Errorf("backup, archive and quarantine directories must be set")
	}
	if len(c.AcceptedExtensions) == 0 {
		return fmt.Errorf("accepted extensions cannot be empty")
	}
	for _, ext := range c.AcceptedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("accepted extension %q must start with a dot", ext)
		}
	}
	switch c.LogFormat {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("log format must be text, json, or auto")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Accepts reports whether files with the extension ext are ingested.
func (c *Config) Accepts(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AcceptedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
