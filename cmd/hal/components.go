package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/advisor"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/conversation"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/embedding"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/extract"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/handoff"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/indexer"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/intent"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/llm"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/retrieval"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/scoring"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

// Components holds the long-lived services shared by every subcommand.
type Components struct {
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Embedder
	EmbedCache   *embedding.PersistentCache
	VectorIndex  *vector.MemoryIndex
	KeywordIndex *keyword.BleveIndex
	Indexer      *indexer.Indexer
	Sessions     *conversation.Manager
	Handoffs     *handoff.Manager
	Advisor      *advisor.Pipeline
}

// Close releases every component. Errors are ignored; this runs on shutdown.
func (c *Components) Close() {
	if c.Sessions != nil {
		_ = c.Sessions.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.EmbedCache != nil {
		_ = c.EmbedCache.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeKnowledge opens storage and the retrieval indices. It is enough for ingest and status.
func initializeKnowledge(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		logger.Warn("embedder unavailable, falling back to hash embeddings",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		emb = embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
	if cfg.Storage.EmbeddingCachePath != "" {
		pc, err := embedding.OpenPersistentCache(cfg.Storage.EmbeddingCachePath, cfg.Embedding.Provider)
		if err != nil {
			logger.Warn("persistent embedding cache disabled", zap.Error(err))
		} else {
			c.EmbedCache = pc
			if ce, ok := emb.(*embedding.CachedEmbedder); ok {
				emb = ce.WithPersistent(pc)
			} else {
				emb = embedding.NewCachedEmbedder(emb, nil, pc)
			}
		}
	}
	c.Embedder = emb

	vecs, err := vector.NewMemoryIndex(emb.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := vecs.Load(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index snapshot not loaded; it will be rebuilt",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
	c.VectorIndex = vecs

	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = kw

	c.Indexer = indexer.New(store, emb, vecs, kw,
		indexer.WithLogger(logger),
		indexer.WithChunking(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		indexer.WithExtractor(extract.NewExtractor(cfg.Knowledge.Extensions...)),
		indexer.WithEntityExtractor(entity.NewExtractor(cfg.Advisor.Departments)),
	)
	return c, nil
}

// initializeComponents builds the full advisor stack on top of the knowledge components.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c, err := initializeKnowledge(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ensureVectors(ctx, c, logger); err != nil {
		c.Close()
		return nil, err
	}

	mainModel, err := llm.New(cfg.LLM, llm.RoleMain, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize language model: %w", err)
	}
	classifierModel, err := llm.New(cfg.LLM, llm.RoleClassifier, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize classifier model: %w", err)
	}

	extractor := entity.NewExtractor(cfg.Advisor.Departments)
	classifier := intent.NewClassifier(extractor, classifierModel,
		intent.WithGeneration(cfg.LLM.ClassifierTemperature, cfg.LLM.ClassifierMaxTokens),
		intent.WithLogger(logger),
	)

	store, err := sessionStore(ctx, cfg.Session, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Sessions = conversation.NewManager(store, extractor,
		conversation.WithTimeout(cfg.Session.Timeout),
		conversation.WithLogger(logger),
	)

	hopts := []handoff.Option{handoff.WithLogger(logger), handoff.WithNotifyTimeout(cfg.Handoff.NotifyTimeout)}
	if cfg.Handoff.SlackToken != "" && cfg.Handoff.SlackChannel != "" {
		hopts = append(hopts, handoff.WithNotifier(handoff.NewSlackNotifier(cfg.Handoff.SlackToken, cfg.Handoff.SlackChannel)))
	}
	c.Handoffs = handoff.NewManager(c.Storage, hopts...)

	gateway := retrieval.NewGateway(c.Storage, c.Embedder, c.VectorIndex,
		retrieval.WithKeywordFallback(c.KeywordIndex, 1),
		retrieval.WithLogger(logger),
	)

	c.Advisor = advisor.NewPipeline(advisor.Deps{
		Classifier: classifier,
		Sessions:   c.Sessions,
		Retriever:  gateway,
		Generator:  mainModel,
		Scorer:     scoring.NewScorer(scorerConfig(cfg)),
		Handoffs:   c.Handoffs,
		Ratings:    c.Storage,
	}, advisor.ConfigFrom(cfg), advisor.WithLogger(logger))
	return c, nil
}

// ensureVectors rebuilds the vector index from storage when the snapshot was missing or stale.
func ensureVectors(ctx context.Context, c *Components, logger *zap.Logger) error {
	counts, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	if int64(c.VectorIndex.Size()) == total {
		return nil
	}
	n, err := c.Indexer.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild indices: %w", err)
	}
	logger.Info("indices rebuilt from storage", zap.Int("documents", n))
	return nil
}

func sessionStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (conversation.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return conversation.NewMemoryStore(), nil
	case "redis":
		rs := conversation.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.KeyPrefix, cfg.Timeout)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis session store at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s (supported: memory, redis)", cfg.Backend)
	}
}

// scorerConfig maps the advisor thresholds onto the scoring policy.
func scorerConfig(cfg *config.Config) scoring.Config {
	sc := scoring.DefaultConfig()
	a := cfg.Advisor
	if a.HighThreshold > 0 {
		sc.HighThreshold = a.HighThreshold
	}
	if a.MediumThreshold > 0 {
		sc.MediumThreshold = a.MediumThreshold
	}
	if a.EscalationThreshold > 0 {
		sc.EscalationThreshold = a.EscalationThreshold
	}
	if a.NoDocsScore > 0 {
		sc.NoDocsScore = a.NoDocsScore
	}
	if a.GenericRelevance > 0 {
		sc.GenericRelevance = a.GenericRelevance
	}
	sc.ComplexTurns = a.ComplexTurnsOrDefault()
	return sc
}

// ingestKnowledge loads seed files and configured directories.
func ingestKnowledge(ctx context.Context, c *Components, cfg *config.Config, logger *zap.Logger) int {
	total := 0
	for _, path := range cfg.Knowledge.SeedFiles {
		n, err := c.Indexer.IndexFile(ctx, path)
		if err != nil {
			logger.Warn("seed file not loaded", zap.String("path", path), zap.Error(err))
			continue
		}
		total += n
	}
	for _, dir := range cfg.Knowledge.Directories {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			logger.Debug("knowledge directory missing", zap.String("dir", dir))
			continue
		}
		n, err := c.Indexer.IndexDirectory(ctx, dir)
		if err != nil {
			logger.Warn("knowledge directory partially indexed", zap.String("dir", dir), zap.Error(err))
		}
		total += n
	}
	return total
}
