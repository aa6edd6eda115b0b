package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marvel-rag/internal/ai"
	"marvel-rag/internal/app"
	"marvel-rag/internal/cache"
	"marvel-rag/internal/config"
	"marvel-rag/internal/knowledge"
	"marvel-rag/internal/model"
	"marvel-rag/internal/observability"
	"marvel-rag/internal/pkg/retry"
	mysqlClient "marvel-rag/internal/platform/mysql"
	"marvel-rag/internal/platform/pinecone"
	rabbitmqClient "marvel-rag/internal/platform/rabbitmq"
	redisClient "marvel-rag/internal/platform/redis"
	"marvel-rag/internal/repository"
	"marvel-rag/internal/retrieval"
	"marvel-rag/internal/worker"
)

const agentSystemPrompt = "Eres Marvel Agent. Respondes en español, de forma técnica y concisa, " +
	"usando solo el contexto proporcionado."

// DependencyCheck probes one external dependency for the health endpoint.
type DependencyCheck struct {
	Name     string
	Optional bool
	Check    func(ctx context.Context) error
}

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry

	MySQL    *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Pinecone *pinecone.Client

	RAG            *app.RAGService
	Agent          *app.AgentService
	HeroSync       *app.SyncService
	AgentSync      *app.SyncService
	AgentRetriever retrieval.Retriever
	RefreshWorker  *worker.EmbeddingRefreshWorker

	// Tiers lists the active retrieval chain per feature, outermost first.
	Tiers        map[string][]string
	Dependencies []DependencyCheck

	StartedAt time.Time
}

// New wires every component from cfg. Connections opened before a failure
// are closed again.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  prometheus.NewRegistry(),
		StartedAt: time.Now(),
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(a.Registry)

	heroKB, agentKB, err := a.openKnowledge(ctx)
	if err != nil {
		return err
	}
	heroStore, agentStore, err := a.openEmbeddingStores(ctx)
	if err != nil {
		return err
	}

	retryCfg := retry.DefaultConfig()
	if cfg.LLM.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.LLM.MaxRetries
	}
	if cfg.LLM.TimeoutSeconds > 0 {
		retryCfg.AttemptTimeout = cfg.LLMTimeout()
	}

	client := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLMTimeout(),
	})
	embedder := ai.NewEmbedder(client, cfg.LLM.EmbeddingModel,
		ai.WithBatchSize(cfg.LLM.EmbeddingBatchSize),
		ai.WithEmbedRetry(retryCfg),
	)
	breaker := ai.BreakerConfig{
		FailureThreshold: cfg.LLM.BreakerFailureThreshold,
		OpenTimeout:      time.Duration(cfg.LLM.BreakerOpenSeconds) * time.Second,
		HalfOpenMaxCalls: cfg.LLM.BreakerHalfOpenMaxCalls,
	}
	heroLLM := observability.InstrumentLLM(
		ai.NewChatClient(client, cfg.LLM.Model, breaker, ai.WithChatRetry(retryCfg), ai.WithChatLogger(a.Logger)),
		app.FeatureCompareHeroes, metrics, a.Logger,
	)
	agentLLM := observability.InstrumentLLM(
		ai.NewChatClient(client, cfg.LLM.Model, breaker,
			ai.WithSystemPrompt(agentSystemPrompt), ai.WithChatRetry(retryCfg), ai.WithChatLogger(a.Logger)),
		app.FeatureMarvelAgent, metrics, a.Logger,
	)

	ropts := []retrieval.Option{
		retrieval.WithLogger(a.Logger),
		retrieval.WithObserver(observability.NewRetrievalObserver(metrics, a.Logger)),
	}

	heroChain := retrieval.NewHeroEmbeddingRetriever(heroKB, heroStore, embedder,
		retrieval.NewHeroLexicalRetriever(heroKB, ropts...),
		retrieval.EmbeddingConfig{Enabled: cfg.RAG.UseEmbeddings, AutoRefresh: cfg.RAG.AutoRefreshEmbeddings},
		ropts...,
	)

	var agentChain retrieval.Retriever = retrieval.NewKnowledgeEmbeddingRetriever(agentKB, agentStore, embedder,
		retrieval.NewKnowledgeLexicalRetriever(agentKB, ropts...),
		retrieval.EmbeddingConfig{Enabled: cfg.Agent.UseEmbeddings, AutoRefresh: cfg.Agent.AutoRefreshEmbeddings},
		ropts...,
	)
	if cfg.Pinecone.Enabled {
		a.Pinecone = pinecone.New(pinecone.Config{
			APIKey:  cfg.Pinecone.APIKey,
			Host:    cfg.Pinecone.IndexHost,
			Timeout: cfg.PineconeTimeout(),
		})
		agentChain = retrieval.NewRemoteIndexRetriever(embedder, a.Pinecone, agentChain,
			retrieval.RemoteIndexConfig{APIKey: cfg.Pinecone.APIKey, Host: cfg.Pinecone.IndexHost},
			ropts...,
		)
	}
	a.AgentRetriever = agentChain
	a.Tiers = activeTiers(cfg)

	usage := observability.NewTokenUsageRecorder(metrics, a.Logger, cfg.App.SkipTokenLog)
	a.RAG = app.NewRAGService(heroKB, heroChain, heroLLM,
		app.WithCompareLimit(cfg.RAG.HeroLimit),
		app.WithCompareUsageSink(usage),
		app.WithCompareLogger(a.Logger),
	)
	a.Agent = app.NewAgentService(agentChain, agentLLM, usage, cfg.Agent.Limit, a.Logger)

	heroSyncOpts := []app.SyncOption{app.WithEmbeddings(heroStore, embedder), app.WithSyncLogger(a.Logger)}
	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.RefreshQueue)
		if err != nil {
			return err
		}
		a.Dependencies = append(a.Dependencies, DependencyCheck{Name: "rabbitmq", Check: a.checkRabbitMQ})
		heroSyncOpts = append(heroSyncOpts, app.WithRefreshPublisher(rabbitmqClient.NewRefreshPublisher(a.MQConn, cfg.RabbitMQ.RefreshQueue)))
	}
	a.HeroSync = app.NewSyncService(model.CollectionHeroes, heroKB, heroSyncOpts...)
	a.AgentSync = app.NewSyncService(model.CollectionAgent, agentKB, app.WithEmbeddings(agentStore, embedder), app.WithSyncLogger(a.Logger))

	if a.MQConn != nil {
		a.RefreshWorker = worker.NewEmbeddingRefreshWorker(a.MQConn, cfg.RabbitMQ.RefreshQueue, a.Logger, a.HeroSync, a.AgentSync)
	}
	if a.Pinecone != nil {
		a.Dependencies = append(a.Dependencies, DependencyCheck{Name: "pinecone", Optional: true, Check: a.Pinecone.Ping})
	}
	return nil
}

func (a *App) openKnowledge(ctx context.Context) (heroes, agent app.KnowledgeWriter, err error) {
	cfg := a.Config
	if cfg.Storage.KnowledgeDriver == config.KnowledgeDriverMySQL {
		a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN(), a.Logger)
		if err != nil {
			return nil, nil, err
		}
		if err := a.MySQL.AutoMigrate(&model.KnowledgeDocument{}); err != nil {
			return nil, nil, fmt.Errorf("auto migrate tables failed: %w", err)
		}
		heroRepo := repository.NewDocumentRepository(a.MySQL, model.CollectionHeroes)
		a.Dependencies = append(a.Dependencies, DependencyCheck{Name: "mysql", Check: heroRepo.Ping})
		return heroRepo, repository.NewDocumentRepository(a.MySQL, model.CollectionAgent), nil
	}

	heroKB, err := a.openJSON(cfg.RAG.HeroesFile, knowledge.FormatHeroes)
	if err != nil {
		return nil, nil, err
	}
	agentKB, err := a.openJSON(cfg.Agent.KBFile, knowledge.FormatSections)
	if err != nil {
		return nil, nil, err
	}
	return heroKB, agentKB, nil
}

// openJSON starts an empty knowledge file when none exists yet.
func (a *App) openJSON(path string, format knowledge.Format) (*knowledge.JSONKnowledgeBase, error) {
	kb, err := knowledge.OpenJSON(path, format)
	if err == nil {
		return kb, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	a.Logger.Warn("knowledge file missing, starting empty", zap.String("path", path))
	if err := knowledge.WriteJSON(path, format, []model.Document{}); err != nil {
		return nil, err
	}
	return knowledge.OpenJSON(path, format)
}

func (a *App) openEmbeddingStores(ctx context.Context) (heroes, agent retrieval.EmbeddingStore, err error) {
	cfg := a.Config
	if cfg.Storage.EmbeddingDriver == config.EmbeddingDriverRedis {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		heroCache := cache.NewEmbeddingCache(a.Redis, model.CollectionHeroes)
		a.Dependencies = append(a.Dependencies, DependencyCheck{Name: "redis", Check: heroCache.Ping})
		return heroCache, cache.NewEmbeddingCache(a.Redis, model.CollectionAgent), nil
	}
	return knowledge.NewFileEmbeddingStore(cfg.RAG.HeroEmbeddingsFile),
		knowledge.NewFileEmbeddingStore(cfg.Agent.EmbeddingsFile), nil
}

func activeTiers(cfg *config.Config) map[string][]string {
	heroes := []string{retrieval.TierLexical}
	if cfg.RAG.UseEmbeddings {
		heroes = append([]string{retrieval.TierEmbedding}, heroes...)
	}
	agent := []string{retrieval.TierLexical}
	if cfg.Agent.UseEmbeddings {
		agent = append([]string{retrieval.TierEmbedding}, agent...)
	}
	if cfg.RemoteIndexEnabled() {
		agent = append([]string{retrieval.TierRemote}, agent...)
	}
	return map[string][]string{
		app.FeatureCompareHeroes: heroes,
		app.FeatureMarvelAgent:   agent,
	}
}

func (a *App) checkRabbitMQ(context.Context) error {
	if a.MQConn == nil || a.MQConn.IsClosed() {
		return errors.New("connection closed")
	}
	return nil
}

// StartWorkers starts background consumers. Without RabbitMQ it does nothing.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.RefreshWorker == nil {
		return nil
	}
	if err := a.RefreshWorker.Start(ctx); err != nil {
		return fmt.Errorf("start embedding refresh worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.RefreshWorker != nil {
		a.RefreshWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
