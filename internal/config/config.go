package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"

	"github.com/altafino/consultation-report/internal/types"
	"github.com/altafino/consultation-report/internal/validation"
)

const configSuffix = ".config.yaml"

// Store holds every report configuration found in one directory.
type Store struct {
	mu      sync.RWMutex
	dir     string
	configs map[string]*types.Config // map[id]*Config
	logger  *slog.Logger
}

// Load reads all configuration files from configDir.
func Load(configDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		dir:    configDir,
		logger: logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the directory the store was loaded from.
func (s *Store) Dir() string {
	return s.dir
}

// Reload re-reads the config directory. The previous configurations stay
// active when any file fails to load.
func (s *Store) Reload() error {
	templates, err := LoadTemplates(filepath.Join(s.dir, "templates"))
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := make(map[string]*types.Config)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), configSuffix) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		cfg, err := loadSingleConfig(path, templates)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", entry.Name(), err)
		}

		if _, exists := configs[cfg.Meta.ID]; exists {
			return fmt.Errorf("duplicate config ID %s in %s", cfg.Meta.ID, entry.Name())
		}
		configs[cfg.Meta.ID] = cfg

		s.logger.Debug("loaded configuration",
			"id", cfg.Meta.ID,
			"protocol", cfg.Mailbox.Protocol,
			"account", cfg.Mailbox.Account,
		)
	}

	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
	return nil
}

// LoadFile reads, completes and validates a single configuration file.
func LoadFile(path string) (*types.Config, error) {
	templates, err := LoadTemplates(filepath.Join(filepath.Dir(path), "templates"))
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return loadSingleConfig(path, templates)
}

func loadSingleConfig(path string, templates *TemplateManager) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if cfg.Meta.Template != "" {
		if err := templates.Apply(cfg, cfg.Meta.Template); err != nil {
			return nil, fmt.Errorf("failed to apply template: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document after expanding environment
// variables. Defaults are not applied.
func Parse(data []byte) (*types.Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &types.Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	if cfg.Meta.ID == "" {
		return nil, errors.New("missing required meta.id field")
	}
	return cfg, nil
}

// Get retrieves a configuration by ID
func (s *Store) Get(id string) (*types.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.configs[id]
	if !exists {
		return nil, fmt.Errorf("config with ID %s not found", id)
	}
	return cfg, nil
}

// List returns all configurations ordered by ID.
func (s *Store) List() []*types.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*types.Config, 0, len(s.configs))
	for _, cfg := range s.configs {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Meta.ID < configs[j].Meta.ID })
	return configs
}

// Enabled returns only enabled configurations, ordered by ID.
func (s *Store) Enabled() []*types.Config {
	var configs []*types.Config
	for _, cfg := range s.List() {
		if cfg.Meta.Enabled {
			configs = append(configs, cfg)
		}
	}
	return configs
}
