package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func Load() (*Config, error) {
	addr := os.Getenv("NOTEBOOK_ADDR")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}

	dataPath := os.Getenv("NOTEBOOK_DATA")
	if dataPath == "" {
		dataPath = "notebook.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWTSECRET_KEY")
	}
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	extractorConfig, err := loadExtractorConfig(llmConfig)
	if err != nil {
		return nil, err
	}

	embedderConfig, err := loadEmbedderConfig()
	if err != nil {
		return nil, err
	}

	vectorConfig, err := loadVectorConfig(embedderConfig)
	if err != nil {
		return nil, err
	}

	graphConfig, err := loadGraphConfig()
	if err != nil {
		return nil, err
	}

	tuning := DefaultTuning()
	configFile := os.Getenv("NOTEBOOK_CONFIG")
	if configFile != "" {
		if err := tuning.LoadFile(configFile); err != nil {
			return nil, err
		}
	}

	return &Config{
		Addr:        addr,
		DataPath:    dataPath,
		ConfigFile:  configFile,
		JWTSecret:   jwtSecret,
		CORSOrigins: splitList(os.Getenv("NOTEBOOK_CORS_ORIGINS")),
		LLM:         llmConfig,
		Extractor:   extractorConfig,
		Embedder:    embedderConfig,
		Vector:      vectorConfig,
		Graph:       graphConfig,
		Profile:     ProfileConfig{DatabaseURL: os.Getenv("DATABASE_URL")},
		Tuning:      tuning,
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	apiKey, err := getAPIKey(provider, "LLM")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("LLM_MODEL"),
		BaseURL:  os.Getenv("LLM_BASE_URL"),
	}, nil
}

// loadExtractorConfig configures the model used for classification,
// compression and query rewriting. It falls back to the answer model.
func loadExtractorConfig(fallback LLMConfig) (LLMConfig, error) {
	provider := os.Getenv("EXTRACTOR_PROVIDER")
	if provider == "" {
		return fallback, nil
	}

	apiKey, err := getAPIKey(provider, "EXTRACTOR")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("EXTRACTOR_MODEL"),
		BaseURL:  os.Getenv("EXTRACTOR_BASE_URL"),
	}, nil
}

func loadEmbedderConfig() (EmbedderConfig, error) {
	provider := os.Getenv("EMBEDDER_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	var apiKey string
	if provider != "ollama" {
		key, err := getAPIKey(provider, "EMBEDDER")
		if err != nil {
			return EmbedderConfig{}, err
		}
		apiKey = key
	}

	cacheSize := 10000
	if n, err := strconv.Atoi(os.Getenv("EMBEDDER_CACHE_SIZE")); err == nil && n >= 0 {
		cacheSize = n
	}

	return EmbedderConfig{
		Provider:  provider,
		BaseURL:   os.Getenv("EMBEDDER_URL"),
		Model:     os.Getenv("EMBEDDER_MODEL"),
		APIKey:    apiKey,
		CacheSize: cacheSize,
	}, nil
}

func loadVectorConfig(emb EmbedderConfig) (VectorConfig, error) {
	provider := os.Getenv("VECTOR_PROVIDER")
	if provider == "" {
		provider = "sqlite"
	}

	dimensions := 3072 // text-embedding-3-large
	if emb.Provider == "ollama" {
		dimensions = 768 // nomic-embed-text
	}
	if n, err := strconv.Atoi(os.Getenv("VECTOR_DIMENSIONS")); err == nil && n > 0 {
		dimensions = n
	}

	sourceCollection := os.Getenv("VECTOR_SOURCE_COLLECTION")
	if sourceCollection == "" {
		sourceCollection = "notebookLM-Collection"
	}

	memoryCollection := os.Getenv("VECTOR_MEMORY_COLLECTION")
	if memoryCollection == "" {
		memoryCollection = "memory-notebookLM-Collection"
	}

	cfg := VectorConfig{
		Provider:         provider,
		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		Dimensions:       dimensions,
		SourceCollection: sourceCollection,
		MemoryCollection: memoryCollection,
	}

	switch provider {
	case "qdrant":
		if cfg.QdrantURL == "" {
			return VectorConfig{}, fmt.Errorf("QDRANT_URL not set")
		}
	case "sqlite", "memory":
	default:
		return VectorConfig{}, fmt.Errorf("unknown VECTOR_PROVIDER: %s", provider)
	}

	return cfg, nil
}

func loadGraphConfig() (GraphConfig, error) {
	provider := os.Getenv("GRAPH_PROVIDER")
	if provider == "" {
		provider = "sqlite"
	}

	cfg := GraphConfig{
		Provider: provider,
		URI:      os.Getenv("NEO4J_URI"),
		Username: os.Getenv("NEO4J_USERNAME"),
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
	}

	switch provider {
	case "neo4j":
		if cfg.URI == "" {
			return GraphConfig{}, fmt.Errorf("NEO4J_URI not set")
		}
		if cfg.Database == "" {
			cfg.Database = "neo4j"
		}
	case "sqlite":
	default:
		return GraphConfig{}, fmt.Errorf("unknown GRAPH_PROVIDER: %s", provider)
	}

	return cfg, nil
}

func getAPIKey(provider, prefix string) (string, error) {
	envKey := os.Getenv(prefix + "_API_KEY")
	if envKey != "" {
		return envKey, nil
	}

	switch provider {
	case "claude":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return key, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		return key, nil
	case "ollama":
		// Ollama doesn't need an API key
		return "ollama", nil
	default:
		key := os.Getenv(strings.ToUpper(provider) + "_API_KEY")
		if key == "" {
			return "", fmt.Errorf("%s_API_KEY not set", strings.ToUpper(provider))
		}
		return key, nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
