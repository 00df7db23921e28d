package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".vecsearch/vecsearch.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = ".vecsearch/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = 4
	}
	if cfg.Embedding.MaxBatches == 0 {
		cfg.Embedding.MaxBatches = 8
	}
	if cfg.Collection.Name == "" {
		cfg.Collection.Name = "new_collection"
	}
	if cfg.Collection.Dimension == 0 {
		cfg.Collection.Dimension = cfg.Embedding.Dimensions
	}
	if cfg.Collection.MaxTextLength == 0 {
		cfg.Collection.MaxTextLength = 512
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "COSINE"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "IVF_FLAT"
	}
	if cfg.Index.NList == 0 {
		cfg.Index.NList = 128
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 2
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.NProbe == 0 {
		cfg.Search.NProbe = 10
	}
	if cfg.Service.Timeout == 0 {
		cfg.Service.Timeout = 30 * time.Second
	}
	if cfg.Agent.BaseURL == "" {
		cfg.Agent.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Agent.APIKeyEnv == "" {
		cfg.Agent.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.Agent.ServiceURL == "" {
		cfg.Agent.ServiceURL = "http://" + cfg.Server.Addr()
	}
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 60 * time.Second
	}
	if cfg.Watch.Include == nil {
		cfg.Watch.Include = []string{
			"**/*.txt", "**/*.md", "**/*.rst", "**/*.pdf", "**/*.rtf",
			"**/*.docx", "**/*.pptx", "**/*.xlsx", "**/*.odt", "**/*.odp", "**/*.ods",
		}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
