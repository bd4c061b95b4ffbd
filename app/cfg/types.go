package cfg

type Cfg struct {
	// Application configuration
	Port       string
	SourcesDir string
	DBPath     string

	// Cache configuration
	ListTTL    int // seconds; 0 means the list cache is never fresh
	MaxDetails int

	// Background work configuration
	WorkerCount         int
	RefreshInterval     int // seconds
	PrefetchInterval    int // seconds
	PrefetchLimit       int
	PrefetchConcurrency int
	PrefetchTimeout     int // seconds

	// Embedding provider configuration
	OpenAIAPIKey   string
	EmbeddingModel string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
