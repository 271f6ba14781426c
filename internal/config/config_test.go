package config

import "testing"

func TestLoad_RequiresExpectedClients(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Error("expected an error when EXPECTED_CLIENTS is unset")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("EXPECTED_CLIENTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StartingCapital != 100000.00 {
		t.Errorf("StartingCapital = %v, want 100000.00", cfg.StartingCapital)
	}
	if cfg.ShortsAllowed {
		t.Error("ShortsAllowed default should be false")
	}
	if cfg.ClientsPath != "clients.json" {
		t.Errorf("ClientsPath = %q, want clients.json", cfg.ClientsPath)
	}
	if cfg.TransportHost != "localhost" || cfg.TransportPort != 5672 {
		t.Errorf("transport defaults = %q:%d, want localhost:5672", cfg.TransportHost, cfg.TransportPort)
	}
	if cfg.AdminPort != 8080 {
		t.Errorf("AdminPort = %d, want 8080", cfg.AdminPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("EXPECTED_CLIENTS", "5")
	t.Setenv("STARTING_CAPITAL", "50000.50")
	t.Setenv("SHORTS_ALLOWED", "true")
	t.Setenv("TRANSPORT_HOST", "rabbitmq.internal")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ExpectedClients != 5 {
		t.Errorf("ExpectedClients = %d, want 5", cfg.ExpectedClients)
	}
	if cfg.StartingCapital != 50000.50 {
		t.Errorf("StartingCapital = %v, want 50000.50", cfg.StartingCapital)
	}
	if !cfg.ShortsAllowed {
		t.Error("ShortsAllowed should be true")
	}
	if cfg.TransportHost != "rabbitmq.internal" {
		t.Errorf("TransportHost = %q, want rabbitmq.internal", cfg.TransportHost)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("EXPECTED_CLIENTS", "2")
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Error("expected an error for an invalid log_level")
	}
}

func TestLoad_RejectsNonPositiveExpectedClients(t *testing.T) {
	t.Setenv("EXPECTED_CLIENTS", "0")

	if _, err := Load(); err == nil {
		t.Error("expected an error for expected_clients=0")
	}
}
