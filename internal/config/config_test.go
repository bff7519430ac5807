package config

import (
	"os"
	"testing"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.WALDir != "data/wal" {
		t.Errorf("WALDir = %v, want data/wal", c.WALDir)
	}
	if c.NotificationCooldownSeconds != 300 {
		t.Errorf("NotificationCooldownSeconds = %v, want 300", c.NotificationCooldownSeconds)
	}
	if c.DefaultProductGroup != "default" {
		t.Errorf("DefaultProductGroup = %v, want default", c.DefaultProductGroup)
	}
	if c.DefaultScenarioCount != 1000 {
		t.Errorf("DefaultScenarioCount = %v, want 1000", c.DefaultScenarioCount)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("TRADEDESK_WAL_DIR", "/tmp/custom-wal")
	os.Setenv("TRADEDESK_DEFAULT_SCENARIO_COUNT", "2500")
	defer os.Unsetenv("TRADEDESK_WAL_DIR")
	defer os.Unsetenv("TRADEDESK_DEFAULT_SCENARIO_COUNT")

	c := Load()
	if c.WALDir != "/tmp/custom-wal" {
		t.Errorf("WALDir = %v, want /tmp/custom-wal", c.WALDir)
	}
	if c.DefaultScenarioCount != 2500 {
		t.Errorf("DefaultScenarioCount = %v, want 2500", c.DefaultScenarioCount)
	}
}
