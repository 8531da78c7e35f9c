package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Server.Port)
	}
	if cfg.Reconcile.MaxCandidates != 5 {
		t.Fatalf("expected default candidate cap 5, got %d", cfg.Reconcile.MaxCandidates)
	}
	if cfg.Reconcile.RetrievalTimeout != 10*time.Second {
		t.Fatalf("unexpected retrieval timeout %v", cfg.Reconcile.RetrievalTimeout)
	}
	if cfg.Sweep.BatchLimit != 400 {
		t.Fatalf("unexpected sweep batch limit %d", cfg.Sweep.BatchLimit)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"API_SERVER_PORT":              "9090",
		"API_FIRESTORE_PROJECT_ID":     "crewdesk-test",
		"API_PUBSUB_SWEEP_EVENT_TOPIC": "booking-sweeps",
		"API_RECONCILE_MAX_CANDIDATES": "3",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "crewdesk-test" {
		t.Fatalf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	// PubSub project falls back to the Firestore project when unset.
	if cfg.PubSub.ProjectID != "crewdesk-test" {
		t.Fatalf("expected pubsub project fallback, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.SweepEventTopic != "booking-sweeps" {
		t.Fatalf("unexpected topic %s", cfg.PubSub.SweepEventTopic)
	}
	if cfg.Reconcile.MaxCandidates != 3 {
		t.Fatalf("unexpected candidate cap %d", cfg.Reconcile.MaxCandidates)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nAPI_SERVER_PORT=7001\nAPI_FIRESTORE_EMULATOR_HOST=\"localhost:8200\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7001" {
		t.Fatalf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.EmulatorHost != "localhost:8200" {
		t.Fatalf("expected unquoted emulator host, got %s", cfg.Firestore.EmulatorHost)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"API_RECONCILE_MAX_CANDIDATES": "0",
	}))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validation.Fields()) != 1 || validation.Fields()[0] != "Reconcile.MaxCandidates" {
		t.Fatalf("unexpected fields %v", validation.Fields())
	}
}
