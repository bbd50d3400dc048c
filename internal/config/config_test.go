package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 4000 {
		t.Fatalf("expected default port 4000, got %d", cfg.HTTPPort)
	}
	if cfg.HTTPAddress() != "0.0.0.0:4000" {
		t.Fatalf("unexpected address %s", cfg.HTTPAddress())
	}
	if cfg.BasePath != "/api" {
		t.Fatalf("unexpected base path %q", cfg.BasePath)
	}
	if cfg.StoreDriver != StoreDriverFile || cfg.StoreFilePath != "notes.json" {
		t.Fatalf("unexpected store defaults %q %q", cfg.StoreDriver, cfg.StoreFilePath)
	}
	if cfg.DatabasePath != "./data.sqlite" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
}

func TestLoadHonoursPlainEnvironmentNames(t *testing.T) {
	t.Setenv("PORT", "5055")
	t.Setenv("DB_FILE", "/tmp/notes.sqlite")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 5055 {
		t.Fatalf("expected PORT to select 5055, got %d", cfg.HTTPPort)
	}
	if cfg.DatabasePath != "/tmp/notes.sqlite" {
		t.Fatalf("expected DB_FILE to select database path, got %q", cfg.DatabasePath)
	}
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("PORT", "5055")
	t.Setenv("NOTEPAD_HTTP_PORT", "6066")
	t.Setenv("NOTEPAD_STORE_DRIVER", "SQLite")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 6066 {
		t.Fatalf("expected prefixed port, got %d", cfg.HTTPPort)
	}
	if cfg.StoreDriver != StoreDriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.StoreDriver)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown-driver", key: "store.driver", value: "mongo"},
		{name: "zero-port", key: "http.port", value: 0},
		{name: "port-out-of-range", key: "http.port", value: 70000},
		{name: "empty-file-path", key: "store.file_path", value: " "},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set(testCase.key, testCase.value)
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	testCases := map[string]string{
		"":        "",
		"/":       "",
		"api":     "/api",
		"/api/":   "/api",
		" /v1/x ": "/v1/x",
	}
	for raw, want := range testCases {
		if got := normalizeBasePath(raw); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", raw, got, want)
		}
	}
}
