// Package config provides centralized configuration for the dashboard suites
// and the dashprobe CLI. It loads configuration from environment variables,
// validates it, and provides defaults that mirror the hosted deployment.
//
// CLI flags (bound by cmd/dashprobe) override the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/readiness"
	"github.com/kuitang/stockdash-e2e/internal/urlutil"
)

const (
	// DefaultBaseURL is a locally served Streamlit instance.
	DefaultBaseURL = "http://localhost:8501"
	// HostedBaseURL is the public deployment, embedded in an iframe.
	HostedBaseURL = "https://stock-dashboard-sp500.streamlit.app"

	defaultAWSRegion = "us-east-1"
)

// Driver names a browser-automation backend.
type Driver string

const (
	DriverPlaywright Driver = "playwright"
	DriverRod        Driver = "rod"
	DriverHTTP       Driver = "http"
)

// ParseDriver parses a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverPlaywright, DriverRod, DriverHTTP:
		return d, nil
	default:
		return "", fmt.Errorf("unknown driver %q (want playwright, rod or http)", s)
	}
}

// Config holds all suite configuration.
type Config struct {
	// Target
	BaseURL   string
	Container dashboard.ContainerMode
	Driver    Driver

	// Readiness
	MaxAttempts       int
	ReadinessInterval time.Duration

	// Timeouts
	AppLoadTimeout    time.Duration
	AssertTimeout     time.Duration
	NavigationTimeout time.Duration
	SettleDelay       time.Duration

	// Browser
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	BrowserPath    string // optional Chromium executable

	// Artifacts and reporting
	RetainOnFailure bool
	ArtifactsDir    string
	ReportPath      string

	// S3 artifact storage (used when ArtifactsBucket is set)
	ArtifactsBucket    string
	AWSEndpointS3      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Container:         dashboard.ContainerRoot,
		Driver:            DriverPlaywright,
		MaxAttempts:       30,
		ReadinessInterval: 10 * time.Second,
		AppLoadTimeout:    3 * time.Minute,
		AssertTimeout:     10 * time.Second,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       time.Second,
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		RetainOnFailure:   true,
		AWSRegion:         defaultAWSRegion,
	}
}

// LoadConfig loads configuration from environment variables over Default.
// Unparseable values are reported as validation errors, never silently defaulted.
func LoadConfig() (*Config, error) {
	cfg := Default()
	var problems []string

	cfg.BaseURL = getEnvOrDefault("BASE_URL", cfg.BaseURL)
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_CONTAINER")); v != "" {
		mode, err := dashboard.ParseContainerMode(v)
		if err != nil {
			problems = append(problems, "DASHBOARD_CONTAINER: "+err.Error())
		} else {
			cfg.Container = mode
		}
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_DRIVER")); v != "" {
		d, err := ParseDriver(v)
		if err != nil {
			problems = append(problems, "DASHBOARD_DRIVER: "+err.Error())
		} else {
			cfg.Driver = d
		}
	}

	cfg.MaxAttempts = parseIntOrDefault("READINESS_MAX_ATTEMPTS", cfg.MaxAttempts, &problems)
	cfg.ReadinessInterval = parseDurationOrDefault("READINESS_INTERVAL", cfg.ReadinessInterval, &problems)
	cfg.AppLoadTimeout = parseDurationOrDefault("APP_LOAD_TIMEOUT", cfg.AppLoadTimeout, &problems)
	cfg.AssertTimeout = parseDurationOrDefault("ASSERT_TIMEOUT", cfg.AssertTimeout, &problems)
	cfg.NavigationTimeout = parseDurationOrDefault("NAVIGATION_TIMEOUT", cfg.NavigationTimeout, &problems)
	cfg.SettleDelay = parseDurationOrDefault("SETTLE_DELAY", cfg.SettleDelay, &problems)

	cfg.Headless = parseBoolOrDefault("HEADLESS", cfg.Headless, &problems)
	cfg.BrowserPath = strings.TrimSpace(os.Getenv("BROWSER_PATH"))

	cfg.RetainOnFailure = parseBoolOrDefault("RETAIN_ON_FAILURE", cfg.RetainOnFailure, &problems)
	cfg.ArtifactsDir = strings.TrimSpace(os.Getenv("ARTIFACTS_DIR"))
	cfg.ReportPath = strings.TrimSpace(os.Getenv("REPORT_PATH"))

	cfg.ArtifactsBucket = strings.TrimSpace(os.Getenv("ARTIFACTS_BUCKET"))
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", cfg.AWSRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))

	if len(problems) > 0 {
		return nil, &ValidationError{Errors: problems}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if err := urlutil.ValidateBaseURL(c.BaseURL); err != nil {
		errs = append(errs, "BASE_URL: "+err.Error())
	}
	if _, err := dashboard.ParseContainerMode(string(c.Container)); err != nil {
		errs = append(errs, "DASHBOARD_CONTAINER: "+err.Error())
	}
	if _, err := ParseDriver(string(c.Driver)); err != nil {
		errs = append(errs, "DASHBOARD_DRIVER: "+err.Error())
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, "READINESS_MAX_ATTEMPTS must not be negative")
	}
	if c.ReadinessInterval < 0 {
		errs = append(errs, "READINESS_INTERVAL must not be negative")
	}
	if c.AppLoadTimeout <= 0 {
		errs = append(errs, "APP_LOAD_TIMEOUT must be positive")
	}
	if c.AssertTimeout <= 0 {
		errs = append(errs, "ASSERT_TIMEOUT must be positive")
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, "NAVIGATION_TIMEOUT must be positive")
	}
	if c.SettleDelay < 0 {
		errs = append(errs, "SETTLE_DELAY must not be negative")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, "viewport must be positive")
	}

	// S3 artifacts: credentials are optional (the SDK chain may supply them),
	// but a half-configured static pair is a mistake.
	if c.ArtifactsBucket != "" && (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PageOptions returns the page-object timeouts for this configuration.
func (c *Config) PageOptions() dashboard.PageOptions {
	return dashboard.PageOptions{
		LoadTimeout:   c.AppLoadTimeout,
		AssertTimeout: c.AssertTimeout,
		SettleDelay:   c.SettleDelay,
		Readiness: readiness.Options{
			MaxAttempts: c.MaxAttempts,
			Interval:    c.ReadinessInterval,
		},
	}
}

// TotalReadinessBudget is the longest the readiness wait can sleep.
func (c *Config) TotalReadinessBudget() time.Duration {
	return time.Duration(c.MaxAttempts+1) * c.ReadinessInterval
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "dashprobe starting...")
	fmt.Fprintf(os.Stderr, "  Target:    %s (%s)\n", c.BaseURL, c.Container)
	fmt.Fprintf(os.Stderr, "  Driver:    %s (headless=%t)\n", c.Driver, c.Headless)
	fmt.Fprintf(os.Stderr, "  Readiness: %d attempts every %s (up to %s)\n", c.MaxAttempts, c.ReadinessInterval, c.TotalReadinessBudget())
	switch {
	case c.ArtifactsBucket != "":
		fmt.Fprintf(os.Stderr, "  Artifacts: s3://%s\n", c.ArtifactsBucket)
	case c.ArtifactsDir != "":
		fmt.Fprintf(os.Stderr, "  Artifacts: %s\n", c.ArtifactsDir)
	default:
		fmt.Fprintln(os.Stderr, "  Artifacts: disabled")
	}
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int, problems *[]string) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not an integer", key, value))
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool, problems *[]string) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not a boolean", key, value))
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: %q is not a duration", key, value))
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
