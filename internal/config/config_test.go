package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.HistoryLimit != 100 {
		t.Errorf("Expected default history limit 100, got %d", config.HistoryLimit)
	}

	if config.Backend != BackendFile {
		t.Errorf("Expected default backend %q, got %q", BackendFile, config.Backend)
	}

	if config.LogLevel != "warn" {
		t.Errorf("Expected default log level warn, got %s", config.LogLevel)
	}

	if config.StorageLocation != "" {
		t.Errorf("Expected default storage location empty, got %s", config.StorageLocation)
	}
}

func TestConfigManager_LoadNonExistent(t *testing.T) {
	// Create temporary directory for test
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	cm := NewConfigManagerWithPath(configPath)

	config, err := cm.Load()
	if err != nil {
		t.Fatalf("Expected no error loading non-existent config, got: %v", err)
	}

	// Should return default config
	expectedDefault := DefaultConfig()
	if *config != *expectedDefault {
		t.Errorf("Expected default config %+v, got %+v", expectedDefault, config)
	}
}

func TestConfigManager_LoadPartial(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("history_limit: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := NewConfigManagerWithPath(configPath).Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.HistoryLimit != 30 || config.Backend != BackendFile || config.LogLevel != "warn" {
		t.Errorf("Expected missing fields to keep defaults, got %+v", config)
	}
}

func TestConfigManager_LoadInvalid(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend: [not, a, string\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewConfigManagerWithPath(configPath).Load(); err == nil {
		t.Error("Expected error loading malformed config")
	}
}

func TestConfigManager_SaveAndLoad(t *testing.T) {
	// Create temporary directory for test
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	cm := NewConfigManagerWithPath(configPath)

	// Create test config
	testConfig := &Config{
		HistoryLimit:    250,
		StorageLocation: "/custom/path",
		Backend:         BackendSQLite,
		LogLevel:        "debug",
	}

	// Save config
	err := cm.Save(testConfig)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	// Load config
	loadedConfig, err := cm.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if *loadedConfig != *testConfig {
		t.Errorf("Expected %+v, got %+v", testConfig, loadedConfig)
	}
}

func TestConfigManager_Validation(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	valid := func(modify func(*Config)) *Config {
		c := DefaultConfig()
		modify(c)
		return c
	}

	tests := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      valid(func(c *Config) { c.HistoryLimit = 50 }),
			expectError: false,
		},
		{
			name:        "zero history limit",
			config:      valid(func(c *Config) { c.HistoryLimit = 0 }),
			expectError: true,
			errorMsg:    "history_limit must be greater than 0",
		},
		{
			name:        "negative history limit",
			config:      valid(func(c *Config) { c.HistoryLimit = -5 }),
			expectError: true,
			errorMsg:    "history_limit must be greater than 0",
		},
		{
			name:        "excessive history limit",
			config:      valid(func(c *Config) { c.HistoryLimit = 1500 }),
			expectError: true,
			errorMsg:    "history_limit cannot exceed 1000 items",
		},
		{
			name:        "unknown backend",
			config:      valid(func(c *Config) { c.Backend = "redis" }),
			expectError: true,
			errorMsg:    `backend must be "file" or "sqlite", got "redis"`,
		},
		{
			name:        "unknown log level",
			config:      valid(func(c *Config) { c.LogLevel = "loud" }),
			expectError: true,
			errorMsg:    `unknown log_level "loud"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cm.Save(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %s, but got none", tt.name)
				} else if tt.errorMsg != "" && err.Error() != "invalid configuration: "+tt.errorMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.name, err)
				}
			}
		})
	}
}

func TestConfigManager_Update(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	tests := []struct {
		name        string
		key         string
		value       string
		expectError bool
	}{
		{"valid history-limit", "history-limit", "100", false},
		{"valid backend sqlite", "backend", "sqlite", false},
		{"valid backend file", "backend", "file", false},
		{"valid log-level", "log-level", "trace", false},
		{"valid storage-location", "storage-location", "/custom/path", false},
		{"invalid key", "invalid-key", "value", true},
		{"invalid history-limit", "history-limit", "not-a-number", true},
		{"out of range history-limit", "history-limit", "1001", true},
		{"invalid backend", "backend", "postgres", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cm.Update(tt.key, tt.value)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %s, but got none", tt.name)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.name, err)
				}

				// Verify the value was set correctly
				retrievedValue, err := cm.Get(tt.key)
				if err != nil {
					t.Errorf("Failed to get value after update: %v", err)
				} else if retrievedValue != tt.value {
					t.Errorf("Expected retrieved value %s, got %s", tt.value, retrievedValue)
				}
			}
		})
	}
}

func TestConfigManager_Get(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	// Set up a config first
	config := &Config{
		HistoryLimit:    75,
		StorageLocation: "/test/path",
		Backend:         BackendSQLite,
		LogLevel:        "info",
	}

	err := cm.Save(config)
	if err != nil {
		t.Fatalf("Failed to save test config: %v", err)
	}

	tests := []struct {
		name          string
		key           string
		expectedValue string
		expectError   bool
	}{
		{"get history-limit", "history-limit", "75", false},
		{"get storage-location", "storage-location", "/test/path", false},
		{"get backend", "backend", "sqlite", false},
		{"get log-level", "log-level", "info", false},
		{"get invalid key", "invalid-key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := cm.Get(tt.key)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %s, but got none", tt.name)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.name, err)
				} else if value != tt.expectedValue {
					t.Errorf("Expected value %s, got %s", tt.expectedValue, value)
				}
			}
		})
	}
}

func TestConfigManager_List(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	cm := NewConfigManagerWithPath(configPath)

	// Use default config first (no file exists)
	values, err := cm.List()
	if err != nil {
		t.Fatalf("Failed to list default config: %v", err)
	}

	expectedKeys := []string{"history-limit", "storage-location", "backend", "log-level"}
	for _, key := range expectedKeys {
		if _, exists := values[key]; !exists {
			t.Errorf("Expected key %s to exist in list output", key)
		}
	}

	// Verify default values
	if values["history-limit"] != "100" {
		t.Errorf("Expected default history-limit 100, got %s", values["history-limit"])
	}

	if values["storage-location"] != "[default]" {
		t.Errorf("Expected default storage-location [default], got %s", values["storage-location"])
	}
}

func TestConfigManager_GetConfigPath(t *testing.T) {
	configPath := "/test/config/path.yaml"
	cm := NewConfigManagerWithPath(configPath)

	if cm.GetConfigPath() != configPath {
		t.Errorf("Expected config path %s, got %s", configPath, cm.GetConfigPath())
	}
}

func TestNewConfigManager(t *testing.T) {
	cm, err := NewConfigManager()
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	// Should contain .config/promptkeep/config.yaml in the path
	configPath := cm.GetConfigPath()
	if !filepath.IsAbs(configPath) {
		t.Errorf("Expected absolute config path, got %s", configPath)
	}

	want := filepath.Join(".config", "promptkeep", "config.yaml")
	if !strings.HasSuffix(configPath, want) {
		t.Errorf("Expected config path to end with %s, got %s", want, configPath)
	}
}
