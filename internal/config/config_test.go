// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
  base_url: "https://vpn.example.com"

database:
  path: "./test.db"

auth:
  state_secret: "0123456789abcdef0123456789abcdef"
  session_duration: "8h"

vpn:
  service_name: "openvpn-server@console"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.BaseURL != "https://vpn.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Auth.SessionDuration != 8*time.Hour {
		t.Errorf("SessionDuration = %v", cfg.Auth.SessionDuration)
	}
	if cfg.VPN.ServiceName != "openvpn-server@console" {
		t.Errorf("ServiceName = %q", cfg.VPN.ServiceName)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "./test.db"
auth:
  state_secret: "0123456789abcdef0123456789abcdef"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.SessionDuration != 12*time.Hour {
		t.Errorf("default SessionDuration = %v", cfg.Auth.SessionDuration)
	}
	if cfg.VPN.ServiceName != "openvpn-server@server" {
		t.Errorf("default ServiceName = %q", cfg.VPN.ServiceName)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("default BaseURL = %q", cfg.Server.BaseURL)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_STATE_SECRET", "env-0123456789abcdef0123456789abcdef")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "./test.db"
auth:
  state_secret: "${TEST_STATE_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.StateSecret != "env-0123456789abcdef0123456789abcdef" {
		t.Errorf("StateSecret = %q, want value from env", cfg.Auth.StateSecret)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ""
database:
  path: "./test.db"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "http_addr") {
		t.Errorf("expected http_addr validation error, got %v", err)
	}
}

func TestLoad_ShortStateSecret(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "./test.db"
auth:
  state_secret: "too-short"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "state_secret") {
		t.Errorf("expected state_secret validation error, got %v", err)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "./test.db"
auth:
  session_duration: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "session_duration") {
		t.Errorf("expected duration parse error, got %v", err)
	}
}
