package main

import (
	"testing"
	"time"

	"github.com/fsgate/fsgate/pkg/config"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.URL = "http://gateway.internal:9090"
	cfg.Server.RequestTimeout = 3
	cfg.Server.RetryInitialMs = 100
	cfg.Server.RetryMaxMs = 400
	cfg.Server.RetryMaxRetries = 2

	s := settingsFromConfig(cfg, "")
	if s.serverURL != "http://gateway.internal:9090" {
		t.Fatalf("configured URL not applied: %s", s.serverURL)
	}
	if s.timeout != 3*time.Second {
		t.Fatalf("configured timeout not applied: %v", s.timeout)
	}
	if s.retry.initial != 100*time.Millisecond || s.retry.max != 400*time.Millisecond {
		t.Fatalf("configured backoff not applied: %+v", s.retry)
	}
	if s.retry.maxRetries != 2 {
		t.Fatalf("configured retry count not applied: %d", s.retry.maxRetries)
	}
}

func TestServerFlagOverridesConfiguredURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.URL = "http://from-config:8080"

	s := settingsFromConfig(cfg, "http://from-flag:7070")
	if s.serverURL != "http://from-flag:7070" {
		t.Fatalf("flag should win over config: %s", s.serverURL)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := settingsFromConfig(config.DefaultConfig(), "")
	if s.serverURL != "http://localhost:8080" {
		t.Fatalf("unexpected default server URL: %s", s.serverURL)
	}
	if s.retry == nil || s.retry.maxRetries != 5 {
		t.Fatalf("defaults should flow into the retrier: %+v", s.retry)
	}
}
