package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent memoria configuration stored as config.toml
// in the .memoria/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Store       StoreConfig       `toml:"store"`
	Summarizer  SummarizerConfig  `toml:"summarizer"`
	Chat        ChatConfig        `toml:"chat"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Events      EventsConfig      `toml:"events"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

// StoreConfig locates namespaces on disk. An empty Root means the resolved
// .memoria/ directory itself.
type StoreConfig struct {
	Root        string `toml:"root,omitempty"`
	Namespace   string `toml:"namespace,omitempty"`
	ChunkTokens uint   `toml:"chunk_tokens,omitempty"`
}

// SummarizerConfig holds the chat-completion backend used for rollups.
type SummarizerConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Target      string  `toml:"target,omitempty"`
	Model       string  `toml:"model,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
}

// ChatConfig holds settings for "memoria chat".
type ChatConfig struct {
	Target string `toml:"target,omitempty"`
	Model  string `toml:"model,omitempty"`
	Recent uint   `toml:"recent,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// memoria API server.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig selects the accelerated index. "none" keeps brute force only.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	CacheSize  uint   `toml:"cache_size,omitempty"`
}

// EventsConfig selects where emitted summaries are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// MaintenanceConfig holds the cron schedule of the consistency rebuild run
// by "memoria serve". An empty schedule disables it.
type MaintenanceConfig struct {
	RebuildSchedule string `toml:"rebuild_schedule,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"store.root":         stringKey(func(c *Config) *string { return &c.Store.Root }),
	"store.namespace":    stringKey(func(c *Config) *string { return &c.Store.Namespace }),
	"store.chunk_tokens": uintKey("store.chunk_tokens", func(c *Config) *uint { return &c.Store.ChunkTokens }),

	"summarizer.provider": stringKey(func(c *Config) *string { return &c.Summarizer.Provider }),
	"summarizer.target":   stringKey(func(c *Config) *string { return &c.Summarizer.Target }),
	"summarizer.model":    stringKey(func(c *Config) *string { return &c.Summarizer.Model }),
	"summarizer.api_key":  stringKey(func(c *Config) *string { return &c.Summarizer.APIKey }),
	"summarizer.temperature": {
		get: func(c *Config) string {
			if c.Summarizer.Temperature == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Summarizer.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for summarizer.temperature: %w", err)
			}
			c.Summarizer.Temperature = f
			return nil
		},
	},
	"summarizer.max_tokens": uintKey("summarizer.max_tokens", func(c *Config) *uint { return &c.Summarizer.MaxTokens }),

	"chat.target": stringKey(func(c *Config) *string { return &c.Chat.Target }),
	"chat.model":  stringKey(func(c *Config) *string { return &c.Chat.Model }),
	"chat.recent": uintKey("chat.recent", func(c *Config) *uint { return &c.Chat.Recent }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.cache_size": uintKey("embedding.cache_size", func(c *Config) *uint { return &c.Embedding.CacheSize }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"maintenance.rebuild_schedule": stringKey(func(c *Config) *string { return &c.Maintenance.RebuildSchedule }),
}
