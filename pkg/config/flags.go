package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --namespace
// on "memoria append", "memoria search" and "memoria chat").
type Flag struct {
	// Name is the long flag name (e.g. "namespace").
	Name string

	// Shorthand is the one-letter short flag (e.g. "n"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "store.namespace").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagStoreRoot       = "root"
	FlagNamespace       = "namespace"
	FlagChunkTokens     = "chunk-tokens"
	FlagSummarizerProv  = "summarizer-provider"
	FlagSummarizerTgt   = "summarizer-target"
	FlagSummarizerModel = "summarizer-model"
	FlagChatTarget      = "chat-target"
	FlagChatModel       = "chat-model"
	FlagChatRecent      = "recent"
	FlagAPIListen       = "listen"
	FlagAPITarget       = "api-target"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagEventsProv      = "events-provider"
	FlagEventsBrokers   = "events-brokers"
	FlagRebuildSchedule = "rebuild-schedule"
)

// Flags is the registry shared by every memoria command.
var Flags = FlagSet{
	FlagStoreRoot:       {Name: "root", ViperKey: "store.root", Description: "Directory holding namespaces (default: the .memoria dir)"},
	FlagNamespace:       {Name: "namespace", Shorthand: "n", ViperKey: "store.namespace", Description: "Memory namespace (one per character)"},
	FlagChunkTokens:     {Name: "chunk-tokens", ViperKey: "store.chunk_tokens", Description: "Word budget per indexed chunk"},
	FlagSummarizerProv:  {Name: "summarizer-provider", ViperKey: "summarizer.provider", Description: "Summarizer backend (openai, ollama)"},
	FlagSummarizerTgt:   {Name: "summarizer-target", ViperKey: "summarizer.target", Description: "Summarizer endpoint URL"},
	FlagSummarizerModel: {Name: "summarizer-model", ViperKey: "summarizer.model", Description: "Summarizer model name"},
	FlagChatTarget:      {Name: "chat-target", ViperKey: "chat.target", Description: "OpenAI-compatible chat endpoint URL"},
	FlagChatModel:       {Name: "model", Shorthand: "m", ViperKey: "chat.model", Description: "Chat model name"},
	FlagChatRecent:      {Name: "recent", ViperKey: "chat.recent", Description: "Recent messages sent as working memory"},
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "memoria API server URL"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Accelerated index (none, sqlite, qdrant)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Accelerated index target (qdrant host:port)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (hash, ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagEventsProv:      {Name: "events-provider", ViperKey: "events.provider", Description: "Summary event sink (none, kafka)"},
	FlagEventsBrokers:   {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated kafka brokers"},
	FlagRebuildSchedule: {Name: "rebuild-schedule", ViperKey: "maintenance.rebuild_schedule", Description: "Cron schedule of the consistency rebuild (empty disables)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
