package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/memoria/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMORIA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMORIA_STORE_NAMESPACE, MEMORIA_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("MEMORIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves the full precedence chain into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Store: StoreConfig{
			Root:        v.GetString("store.root"),
			Namespace:   v.GetString("store.namespace"),
			ChunkTokens: v.GetUint("store.chunk_tokens"),
		},
		Summarizer: SummarizerConfig{
			Provider:    v.GetString("summarizer.provider"),
			Target:      v.GetString("summarizer.target"),
			Model:       v.GetString("summarizer.model"),
			APIKey:      v.GetString("summarizer.api_key"),
			Temperature: v.GetFloat64("summarizer.temperature"),
			MaxTokens:   v.GetUint("summarizer.max_tokens"),
		},
		Chat: ChatConfig{
			Target: v.GetString("chat.target"),
			Model:  v.GetString("chat.model"),
			Recent: v.GetUint("chat.recent"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			CacheSize:  v.GetUint("embedding.cache_size"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Maintenance: MaintenanceConfig{
			RebuildSchedule: v.GetString("maintenance.rebuild_schedule"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}

	// Typed defaults for non-string keys so viper getters see numbers.
	v.SetDefault("store.chunk_tokens", d.Store.ChunkTokens)
	v.SetDefault("summarizer.temperature", d.Summarizer.Temperature)
	v.SetDefault("summarizer.max_tokens", d.Summarizer.MaxTokens)
	v.SetDefault("chat.recent", d.Chat.Recent)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
}
