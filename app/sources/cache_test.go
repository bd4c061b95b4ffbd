package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	content := `
url: "https://example.com/feed.xml"
category: "Technology"

settings:
  enabled: true
  max_items: 25
  timeout: 15
  extraction: "readability"
`
	writeConfig(t, tempDir, "test", content)

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", cache.GetConfigCount())
	}

	config, err := cache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if config.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", config.Name)
	}
	if config.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected URL 'https://example.com/feed.xml', got '%s'", config.URL)
	}
	if config.Category != "Technology" {
		t.Errorf("Expected category 'Technology', got '%s'", config.Category)
	}
	if !config.Settings.Enabled {
		t.Error("Expected enabled true")
	}
	if config.Settings.MaxItems != 25 {
		t.Errorf("Expected max_items 25, got %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 15 {
		t.Errorf("Expected timeout 15, got %d", config.Settings.Timeout)
	}
	if config.Settings.Extraction != ExtractionReadability {
		t.Errorf("Expected extraction 'readability', got '%s'", config.Settings.Extraction)
	}
}

func TestCacheDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
url: "https://example.com/feed.xml"
category: "World"
`
	writeConfig(t, tempDir, "minimal", content)

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	config, err := cache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if config.Settings.MaxItems != 20 {
		t.Errorf("Expected default max_items 20, got %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 10 {
		t.Errorf("Expected default timeout 10, got %d", config.Settings.Timeout)
	}
	if config.Settings.Extraction != ExtractionHeuristic {
		t.Errorf("Expected default extraction 'heuristic', got '%s'", config.Settings.Extraction)
	}
	if config.Settings.Enabled {
		t.Error("Expected enabled to default to false")
	}
}

func TestCacheValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing url", "category: \"World\"\n"},
		{"missing category", "url: \"https://example.com/feed.xml\"\n"},
		{"unknown extraction", `
url: "https://example.com/feed.xml"
category: "World"

settings:
  extraction: "magic"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, "broken", tt.content)

			cache := NewCache(tempDir)
			if err := cache.Run(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestCacheMissingDirectory(t *testing.T) {
	cache := NewCache("/nonexistent/sources/dir")
	if err := cache.Run(); err != nil {
		t.Errorf("Expected missing directory to be tolerated, got %v", err)
	}
	if cache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", cache.GetConfigCount())
	}
}

func TestCacheEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, "on", `
url: "https://example.com/on.xml"
category: "World"

settings:
  enabled: true
`)
	writeConfig(t, tempDir, "off", `
url: "https://example.com/off.xml"
category: "World"
`)

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("Expected 'on' in enabled configs")
	}

	if len(cache.GetConfigs()) != 2 {
		t.Errorf("Expected 2 total configs, got %d", len(cache.GetConfigs()))
	}
}

func TestCacheUnknownConfig(t *testing.T) {
	cache := NewCache(t.TempDir())
	if _, err := cache.GetConfig("ghost"); err == nil {
		t.Error("Expected error for unknown source, got nil")
	}
}
