package config

import "time"

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "/usr/local/etc/kotoba/config.yaml"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3650
	}
	if cfg.Server.RateLimitPerMinute == 0 {
		cfg.Server.RateLimitPerMinute = 60
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Humanizer.DefaultTier == "" {
		cfg.Humanizer.DefaultTier = "balanced"
	}
	if cfg.Humanizer.DefaultIntensity == 0 {
		cfg.Humanizer.DefaultIntensity = 0.7
	}
	if cfg.Humanizer.MaxTextLength == 0 {
		cfg.Humanizer.MaxTextLength = 50000
	}
	if cfg.Humanizer.MaxBatchSize == 0 {
		cfg.Humanizer.MaxBatchSize = 50
	}
	if cfg.Humanizer.BatchWorkers == 0 {
		cfg.Humanizer.BatchWorkers = 4
	}

	defaultModelSet(&cfg.Models.Small, ModelSet{
		Paraphrase:    "Vamsi/T5_Paraphrase_Paws",
		Embedding:     "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingPath: "/usr/local/var/kotoba/models/all-MiniLM-L6-v2.onnx",
		Dimensions:    384,
	})
	defaultModelSet(&cfg.Models.Medium, ModelSet{
		Paraphrase:    "ramsrigouthamg/t5-large-paraphraser-diverse-high-quality",
		Embedding:     "sentence-transformers/all-mpnet-base-v2",
		EmbeddingPath: "/usr/local/var/kotoba/models/all-mpnet-base-v2.onnx",
		Dimensions:    768,
	})
	defaultModelSet(&cfg.Models.Large, ModelSet{
		Paraphrase:    "humarin/chatgpt_paraphraser_on_T5_base",
		Embedding:     "sentence-transformers/all-roberta-large-v1",
		EmbeddingPath: "/usr/local/var/kotoba/models/all-roberta-large-v1.onnx",
		Dimensions:    1024,
	})

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.Paraphrase.Provider == "" {
		cfg.Paraphrase.Provider = "none"
	}
	if cfg.Paraphrase.Timeout == 0 {
		cfg.Paraphrase.Timeout = 20 * time.Second
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "/usr/local/var/kotoba/cache.db"
	}
	if cfg.Cache.MemorySize == 0 {
		cfg.Cache.MemorySize = 1000
	}

	if cfg.Watch.Inbox == "" {
		cfg.Watch.Inbox = "/usr/local/var/kotoba/inbox"
	}
	if cfg.Watch.Outbox == "" {
		cfg.Watch.Outbox = "/usr/local/var/kotoba/outbox"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
}

func defaultModelSet(m *ModelSet, def ModelSet) {
	if m.Paraphrase == "" {
		m.Paraphrase = def.Paraphrase
	}
	if m.Embedding == "" {
		m.Embedding = def.Embedding
	}
	if m.EmbeddingPath == "" {
		m.EmbeddingPath = def.EmbeddingPath
	}
	if m.Dimensions == 0 {
		m.Dimensions = def.Dimensions
	}
}
