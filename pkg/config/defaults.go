package config

const (
	defaultNamespace   = "default"
	defaultChunkTokens = 64

	// Any OpenAI-compatible server works; LM Studio listens here by default.
	defaultLLMTarget   = "http://localhost:1234/v1"
	defaultLLMModel    = "local-model"
	defaultTemperature = 0.5
	defaultMaxTokens   = 250
	defaultChatRecent  = 20

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultVectorProvider = "none"

	defaultEmbeddingProvider   = "hash"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingDimensions = 64
	defaultEmbeddingCacheSize  = 1024

	defaultEventsProvider = "none"
	defaultEventsTopic    = "memoria.summaries"

	defaultRebuildSchedule = "@every 1h"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Store: StoreConfig{
			Namespace:   defaultNamespace,
			ChunkTokens: defaultChunkTokens,
		},
		Summarizer: SummarizerConfig{
			Provider:    "openai",
			Target:      defaultLLMTarget,
			Model:       defaultLLMModel,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
		Chat: ChatConfig{
			Target: defaultLLMTarget,
			Model:  defaultLLMModel,
			Recent: defaultChatRecent,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			CacheSize:  defaultEmbeddingCacheSize,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Maintenance: MaintenanceConfig{
			RebuildSchedule: defaultRebuildSchedule,
		},
	}
}
