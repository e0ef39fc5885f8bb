package config

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"pgregory.net/rapid"
)

var configEnvKeys = []string{
	"BASE_URL", "DASHBOARD_CONTAINER", "DASHBOARD_DRIVER",
	"READINESS_MAX_ATTEMPTS", "READINESS_INTERVAL",
	"APP_LOAD_TIMEOUT", "ASSERT_TIMEOUT", "NAVIGATION_TIMEOUT", "SETTLE_DELAY",
	"HEADLESS", "BROWSER_PATH", "RETAIN_ON_FAILURE", "ARTIFACTS_DIR", "REPORT_PATH",
	"ARTIFACTS_BUCKET", "AWS_ENDPOINT_URL_S3", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
}

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Container != dashboard.ContainerRoot {
		t.Errorf("Container = %q, want root", cfg.Container)
	}
	if cfg.Driver != DriverPlaywright {
		t.Errorf("Driver = %q, want playwright", cfg.Driver)
	}
	if cfg.MaxAttempts != 30 || cfg.ReadinessInterval != 10*time.Second {
		t.Errorf("readiness = %d x %s, want 30 x 10s", cfg.MaxAttempts, cfg.ReadinessInterval)
	}
	if cfg.AppLoadTimeout != 3*time.Minute {
		t.Errorf("AppLoadTimeout = %s, want 3m", cfg.AppLoadTimeout)
	}
	if !cfg.Headless || !cfg.RetainOnFailure {
		t.Errorf("Headless=%t RetainOnFailure=%t, want both true", cfg.Headless, cfg.RetainOnFailure)
	}
	if cfg.ViewportWidth != 1920 || cfg.ViewportHeight != 1080 {
		t.Errorf("viewport = %dx%d, want 1920x1080", cfg.ViewportWidth, cfg.ViewportHeight)
	}
}

func TestLoadConfig_HostedIframe(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", HostedBaseURL)
	t.Setenv("DASHBOARD_CONTAINER", "IFRAME")
	t.Setenv("DASHBOARD_DRIVER", " rod ")
	t.Setenv("READINESS_MAX_ATTEMPTS", "5")
	t.Setenv("READINESS_INTERVAL", "2s")
	t.Setenv("HEADLESS", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Container != dashboard.ContainerIframe {
		t.Errorf("Container = %q, want iframe", cfg.Container)
	}
	if cfg.Driver != DriverRod {
		t.Errorf("Driver = %q, want rod", cfg.Driver)
	}
	if cfg.Headless {
		t.Error("Headless should be false")
	}
	if got := cfg.TotalReadinessBudget(); got != 12*time.Second {
		t.Errorf("TotalReadinessBudget = %s, want 12s", got)
	}

	opts := cfg.PageOptions()
	if opts.Readiness.MaxAttempts != 5 || opts.Readiness.Interval != 2*time.Second {
		t.Errorf("PageOptions readiness = %+v", opts.Readiness)
	}
}

// The port of the base URL never decides the container mode.
func TestLoadConfig_ContainerIsNotInferredFromPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://example.test:8501")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Container != dashboard.ContainerRoot {
		t.Errorf("Container = %q, want root", cfg.Container)
	}
}

func TestLoadConfig_ReportsEveryBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DASHBOARD_CONTAINER", "shadow")
	t.Setenv("READINESS_MAX_ATTEMPTS", "many")
	t.Setenv("READINESS_INTERVAL", "10")
	t.Setenv("HEADLESS", "maybe")

	_, err := LoadConfig()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", len(verr.Errors), verr.Errors)
	}
	for _, key := range []string{"DASHBOARD_CONTAINER", "READINESS_MAX_ATTEMPTS", "READINESS_INTERVAL", "HEADLESS"} {
		if !strings.Contains(verr.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, verr)
		}
	}
}

func TestValidate_DefaultPasses(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidate_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	for _, u := range []string{"", "localhost:8501", "ftp://example.test", "http://"} {
		cfg := Default()
		cfg.BaseURL = u
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestValidate_S3CredentialsComeInPairs(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.ArtifactsBucket = "e2e-artifacts"
	cfg.AWSAccessKeyID = "AKIAEXAMPLE"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must be set together") {
		t.Fatalf("expected paired-credential error, got %v", err)
	}

	cfg.AWSSecretAccessKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func testValidate_NegativeDurationsRejected(t *rapid.T) {
	cfg := Default()
	neg := -time.Duration(rapid.Int64Range(1, int64(time.Hour)).Draw(t, "neg"))
	switch rapid.IntRange(0, 4).Draw(t, "field") {
	case 0:
		cfg.ReadinessInterval = neg
	case 1:
		cfg.AppLoadTimeout = neg
	case 2:
		cfg.AssertTimeout = neg
	case 3:
		cfg.NavigationTimeout = neg
	case 4:
		cfg.SettleDelay = neg
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative duration %s to be rejected", neg)
	}
}

func TestValidate_NegativeDurationsRejected(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_NegativeDurationsRejected)
}

func testTotalReadinessBudget(t *rapid.T) {
	cfg := Default()
	cfg.MaxAttempts = rapid.IntRange(0, 100).Draw(t, "attempts")
	cfg.ReadinessInterval = time.Duration(rapid.IntRange(0, 60).Draw(t, "secs")) * time.Second
	want := time.Duration(cfg.MaxAttempts+1) * cfg.ReadinessInterval
	if got := cfg.TotalReadinessBudget(); got != want {
		t.Fatalf("TotalReadinessBudget = %s, want %s", got, want)
	}
}

func TestTotalReadinessBudget(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTotalReadinessBudget)
}

func TestParseDriver(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"playwright", "ROD", " http "} {
		if _, err := ParseDriver(in); err != nil {
			t.Errorf("ParseDriver(%q): %v", in, err)
		}
	}
	if _, err := ParseDriver("selenium"); err == nil {
		t.Error("expected selenium to be rejected")
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_BOOL", "not-a-bool")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")

	var problems []string
	if got := parseIntOrDefault("CFG_TEST_INT", 7, &problems); got != 7 {
		t.Fatalf("parseIntOrDefault = %d, want 7", got)
	}
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true, &problems); !got {
		t.Fatal("parseBoolOrDefault should keep default true")
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 3*time.Second, &problems); got != 3*time.Second {
		t.Fatalf("parseDurationOrDefault = %s, want 3s", got)
	}
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", problems)
	}
}

func TestHelperParsers_ParseValidInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", strconv.Itoa(42))
	t.Setenv("CFG_TEST_DUR", "1m30s")

	var problems []string
	if got := parseIntOrDefault("CFG_TEST_INT", 0, &problems); got != 42 {
		t.Fatalf("parseIntOrDefault = %d, want 42", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 0, &problems); got != 90*time.Second {
		t.Fatalf("parseDurationOrDefault = %s, want 1m30s", got)
	}
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "  value  ")
	if got := getEnvOrDefault("CFG_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("getEnvOrDefault = %q, want value", got)
	}
	t.Setenv("CFG_TEST_STR", "   ")
	if got := getEnvOrDefault("CFG_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("getEnvOrDefault = %q, want fallback", got)
	}
}
