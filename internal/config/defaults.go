package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "~/.chotto/data/directory.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "~/.chotto/data/skills.vec"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "~/.chotto/data/skills.bleve"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderMock
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}

	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = BackendMemory
	}
	if len(cfg.Vector.Redis.Addrs) == 0 {
		cfg.Vector.Redis.Addrs = []string{"localhost:6379"}
	}
	if cfg.Vector.Redis.IndexName == "" {
		cfg.Vector.Redis.IndexName = "chotto-skills"
	}
	if cfg.Vector.Redis.KeyPrefix == "" {
		cfg.Vector.Redis.KeyPrefix = "chotto:skill:"
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 200
	}
	if cfg.Search.TimeoutMs == 0 {
		cfg.Search.TimeoutMs = 10000
	}
	if cfg.Search.PlaceholderUserName == "" {
		cfg.Search.PlaceholderUserName = "名前なし"
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.IDScheme == "" {
		cfg.Ingest.IDScheme = IDSchemeAssignment
	}
}
