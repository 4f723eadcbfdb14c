package config

type Config struct {
	Addr        string
	DataPath    string
	ConfigFile  string
	JWTSecret   string
	CORSOrigins []string
	LLM         LLMConfig
	Extractor   LLMConfig
	Embedder    EmbedderConfig
	Vector      VectorConfig
	Graph       GraphConfig
	Profile     ProfileConfig
	Tuning      Tuning
}

type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type EmbedderConfig struct {
	Provider  string
	BaseURL   string
	Model     string
	APIKey    string
	CacheSize int
}

type VectorConfig struct {
	Provider         string
	QdrantURL        string
	QdrantAPIKey     string
	Dimensions       int
	SourceCollection string
	MemoryCollection string
}

type GraphConfig struct {
	Provider string
	URI      string
	Username string
	Password string
	// Database is shared by the read and write paths
	Database string
}

type ProfileConfig struct {
	DatabaseURL string
}

// Tuning holds retrieval knobs that may be overridden from a YAML file.
type Tuning struct {
	SourceTopK   int `yaml:"source_top_k"`
	MemoryTopK   int `yaml:"memory_top_k"`
	RerankKeep   int `yaml:"rerank_keep"`
	HistoryLimit int `yaml:"history_limit"`
}
