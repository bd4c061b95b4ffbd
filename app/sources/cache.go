package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Cache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewCache(sourcesDir string) *Cache {
	return &Cache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive source name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4]

		config, err := c.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceName, "enabled", config.Settings.Enabled, "category", config.Category)
	}

	return nil
}

func (c *Cache) LoadConfig(sourceName string) (*Config, error) {
	configFile := c.getConfigFilePath(sourceName)
	config, err := c.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = sourceName

	if err := c.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[config.Name] = config

	return config, nil
}

func (c *Cache) GetConfig(sourceName string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return config, nil
}

func (c *Cache) GetConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(c.cache))
	for k, v := range c.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (c *Cache) GetEnabledConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range c.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (c *Cache) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 20
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 10
	}
	if config.Settings.Extraction == "" {
		config.Settings.Extraction = ExtractionHeuristic
	}

	return &config, nil
}

func (c *Cache) validateConfig(config *Config) error {
	if config.URL == "" {
		return fmt.Errorf("url is required")
	}
	if config.Category == "" {
		return fmt.Errorf("category is required")
	}
	if config.Settings.Extraction != ExtractionHeuristic && config.Settings.Extraction != ExtractionReadability {
		return fmt.Errorf("unknown extraction strategy '%s'", config.Settings.Extraction)
	}
	return nil
}

func (c *Cache) getConfigFilePath(sourceName string) string {
	return filepath.Join(c.sourcesDir, strings.TrimSpace(sourceName)+".yml")
}
