package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/davidolu-dev/shoplore/internal/config"
	"github.com/davidolu-dev/shoplore/internal/core"
	db "github.com/davidolu-dev/shoplore/internal/core/database"
	"github.com/davidolu-dev/shoplore/internal/core/ingestion_engine"
	"github.com/davidolu-dev/shoplore/internal/core/llm"
	objectclient "github.com/davidolu-dev/shoplore/internal/core/object-client"
	"github.com/davidolu-dev/shoplore/internal/core/vector"
	"github.com/davidolu-dev/shoplore/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	VectorStore  core.VectorStore
	Ingestor     *ingestion_engine.DocumentIngestor
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	vectorStore, err := vector.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.CollectionName, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect to the vector store, %w", err)
	}
	if err := vectorStore.InitCollection(appCtx); err != nil {
		return nil, fmt.Errorf("couldn't initialize the vector collection, %w", err)
	}
	log.Println("Vector store initialized and ready.")

	embedder, err := newEmbedder(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	gated := llm.NewGatedEmbedder(embedder, llm.DefaultEmbedConcurrency)

	ingCfg := ingestion_engine.IngestConfig{
		MaxTokens:    cfg.MaxTokensPerChunk,
		OverlapChars: cfg.ChunkOverlapChars,
		BatchSize:    cfg.EmbedBatchSize,
	}

	docIngestor := ingestion_engine.NewDocumentIngestor(dbClient, vectorStore, gated, ingCfg)
	docIngestor.Start(ctx)

	docService := services.NewDocumentService(dbClient, objClient, vectorStore, gated, docIngestor, cfg.BucketName)

	server := NewServer(cfg, docService)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		VectorStore:  vectorStore,
		Ingestor:     docIngestor,
		Server:       server,
	}, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.EmbedProvider {
	case "gemini":
		return llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	case "openai":
		return llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, "", cfg.EmbedModel, cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider)
	}
}

func (a *App) Close() {
	if a.VectorStore != nil {
		_ = a.VectorStore.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
