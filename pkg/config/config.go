package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/memoria/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetDir  string
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .memoria/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetDir = target
	cfger.targetPath = path

	return cfger, nil
}

// orderedKeys follows the TOML section layout.
var orderedKeys = []string{
	"store.root",
	"store.namespace",
	"store.chunk_tokens",
	"summarizer.provider",
	"summarizer.target",
	"summarizer.model",
	"summarizer.api_key",
	"summarizer.temperature",
	"summarizer.max_tokens",
	"chat.target",
	"chat.model",
	"chat.recent",
	"api.listen",
	"client.api_target",
	"vector_store.provider",
	"vector_store.target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.cache_size",
	"events.provider",
	"events.brokers",
	"events.topic",
	"maintenance.rebuild_schedule",
}

// ValidConfigKeys returns the list of all supported configuration key names
// in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Keys missing from orderedKeys still show up, sorted at the end.
	var rest []string
	for k := range configKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// StoreRoot returns the directory that holds namespaces: store.root when
// set, otherwise the resolved .memoria/ directory.
func (c *Configer) StoreRoot(cfg *Config) string {
	if cfg != nil && cfg.Store.Root != "" {
		return cfg.Store.Root
	}
	return c.targetDir
}

// LoadConfig loads the configuration from config.toml in the target .memoria/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func setIfEmpty(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setIfZero(dst *uint, def uint) {
	if *dst == 0 {
		*dst = def
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	setIfEmpty(&cfg.Store.Namespace, d.Store.Namespace)
	setIfZero(&cfg.Store.ChunkTokens, d.Store.ChunkTokens)

	setIfEmpty(&cfg.Summarizer.Provider, d.Summarizer.Provider)
	setIfEmpty(&cfg.Summarizer.Target, d.Summarizer.Target)
	setIfEmpty(&cfg.Summarizer.Model, d.Summarizer.Model)
	if cfg.Summarizer.Temperature == 0 {
		cfg.Summarizer.Temperature = d.Summarizer.Temperature
	}
	setIfZero(&cfg.Summarizer.MaxTokens, d.Summarizer.MaxTokens)

	setIfEmpty(&cfg.Chat.Target, d.Chat.Target)
	setIfEmpty(&cfg.Chat.Model, d.Chat.Model)
	setIfZero(&cfg.Chat.Recent, d.Chat.Recent)

	setIfEmpty(&cfg.API.Listen, d.API.Listen)
	setIfEmpty(&cfg.Client.APITarget, d.Client.APITarget)

	setIfEmpty(&cfg.VectorStore.Provider, d.VectorStore.Provider)

	setIfEmpty(&cfg.Embedding.Provider, d.Embedding.Provider)
	setIfEmpty(&cfg.Embedding.Target, d.Embedding.Target)
	setIfEmpty(&cfg.Embedding.Model, d.Embedding.Model)
	setIfZero(&cfg.Embedding.Dimensions, d.Embedding.Dimensions)
	setIfZero(&cfg.Embedding.CacheSize, d.Embedding.CacheSize)

	setIfEmpty(&cfg.Events.Provider, d.Events.Provider)
	setIfEmpty(&cfg.Events.Topic, d.Events.Topic)
}

// SaveConfig persists the configuration to config.toml in the target .memoria/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with defaults for the named backend preset.
// Supported presets: "lmstudio", "ollama", "openai".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "lmstudio":
		return cfg, nil

	case "ollama":
		cfg.Summarizer.Provider = "ollama"
		cfg.Summarizer.Target = "http://localhost:11434"
		cfg.Summarizer.Model = "gemma3:latest"
		cfg.Chat.Target = "http://localhost:11434/v1"
		cfg.Chat.Model = "gemma3:latest"
		cfg.Embedding.Provider = "ollama"
		cfg.Embedding.Target = "http://localhost:11434"
		cfg.Embedding.Model = "nomic-embed-text"
		cfg.Embedding.Dimensions = 768
		cfg.VectorStore.Provider = "sqlite"
		return cfg, nil

	case "openai":
		cfg.Summarizer.Target = "https://api.openai.com/v1"
		cfg.Summarizer.Model = "gpt-4o-mini"
		cfg.Chat.Target = "https://api.openai.com/v1"
		cfg.Chat.Model = "gpt-4o-mini"
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.Target = "https://api.openai.com/v1"
		cfg.Embedding.Model = "text-embedding-3-small"
		cfg.Embedding.Dimensions = 1536
		cfg.VectorStore.Provider = "sqlite"
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"lmstudio", "ollama", "openai"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
