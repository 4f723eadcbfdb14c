package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bowerhall/notebook/internal/chat"
	"github.com/bowerhall/notebook/internal/config"
	"github.com/bowerhall/notebook/internal/conversation"
	"github.com/bowerhall/notebook/internal/embedder"
	"github.com/bowerhall/notebook/internal/graph"
	"github.com/bowerhall/notebook/internal/httpapi"
	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/memory"
	"github.com/bowerhall/notebook/internal/observability"
	"github.com/bowerhall/notebook/internal/profile"
	"github.com/bowerhall/notebook/internal/retrieval"
	"github.com/bowerhall/notebook/internal/sqlitedb"
	"github.com/bowerhall/notebook/internal/vector"
)

func init() {
	godotenv.Load()
}

func healthCheck(ctx context.Context, db *sql.DB, facts profile.Store, g graph.Store) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite check failed: %w", err)
	}

	logger.Debug("health check", "component", "sqlite", "status", "ok")

	if _, err := facts.Facts(ctx, "healthcheck"); err != nil {
		return fmt.Errorf("profile check failed: %w", err)
	}

	logger.Debug("health check", "component", "profile", "status", "ok")

	if _, err := g.Subgraph(ctx, "healthcheck"); err != nil {
		return fmt.Errorf("graph check failed: %w", err)
	}

	logger.Debug("health check", "component", "graph", "status", "ok")

	return nil
}

func newGraph(ctx context.Context, cfg config.GraphConfig, db *sql.DB) (graph.Store, io.Closer, error) {
	switch cfg.Provider {
	case "neo4j":
		store, err := graph.NewNeo4j(ctx, graph.Neo4jConfig{
			URI:      cfg.URI,
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, closerFunc(func() error { return store.Close(context.Background()) }), nil
	default:
		store, err := graph.NewSQLite(db)
		return store, nil, err
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		logger.Fatal("failed to create llm", "error", err)
	}

	extractor, err := llm.New(llm.Config{
		Provider: cfg.Extractor.Provider,
		APIKey:   cfg.Extractor.APIKey,
		Model:    cfg.Extractor.Model,
		BaseURL:  cfg.Extractor.BaseURL,
	})
	if err != nil {
		logger.Fatal("failed to create extractor", "error", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedder.Provider,
		BaseURL:   cfg.Embedder.BaseURL,
		Model:     cfg.Embedder.Model,
		APIKey:    cfg.Embedder.APIKey,
		CacheSize: cfg.Embedder.CacheSize,
	})
	if err != nil {
		logger.Fatal("failed to create embedder", "error", err)
	}

	if cached, ok := emb.(*embedder.Cached); ok {
		defer cached.Close()
	}

	logger.Debug("embedder configured", "provider", cfg.Embedder.Provider, "cache", cfg.Embedder.CacheSize)

	db, err := sqlitedb.Open(cfg.DataPath)
	if err != nil {
		logger.Fatal("failed to open database", "error", err, "path", cfg.DataPath)
	}

	defer db.Close()

	vectorCfg := vector.Config{
		Provider:     cfg.Vector.Provider,
		QdrantURL:    cfg.Vector.QdrantURL,
		QdrantAPIKey: cfg.Vector.QdrantAPIKey,
		Dimensions:   cfg.Vector.Dimensions,
	}

	sources, err := vector.New(ctx, vectorCfg, db, emb, cfg.Vector.SourceCollection)
	if err != nil {
		logger.Fatal("failed to open source collection", "error", err)
	}

	memories, err := vector.New(ctx, vectorCfg, db, emb, cfg.Vector.MemoryCollection)
	if err != nil {
		logger.Fatal("failed to open memory collection", "error", err)
	}

	logger.Info("vector store ready", "provider", cfg.Vector.Provider)

	graphStore, graphCloser, err := newGraph(ctx, cfg.Graph, db)
	if err != nil {
		logger.Fatal("failed to open graph store", "error", err, "provider", cfg.Graph.Provider)
	}

	if graphCloser != nil {
		defer graphCloser.Close()
	}

	logger.Info("graph store ready", "provider", cfg.Graph.Provider)

	facts, err := profile.New(ctx, cfg.Profile.DatabaseURL, db)
	if err != nil {
		logger.Fatal("failed to open profile store", "error", err)
	}

	if closer, ok := facts.(io.Closer); ok {
		defer closer.Close()
	}

	transcript, err := conversation.NewStore(db)
	if err != nil {
		logger.Fatal("failed to create conversation store", "error", err)
	}

	if err := healthCheck(ctx, db, facts, graphStore); err != nil {
		logger.Fatal("health check failed", "error", err)
	}

	metrics := observability.NewMetrics("notebook")

	memoryManager := memory.NewManager(memory.Deps{
		LLM:     extractor,
		Vector:  memories,
		Graph:   graphStore,
		Profile: facts,
		Metrics: metrics,
		TopK:    cfg.Tuning.MemoryTopK,
	})

	refiner := retrieval.NewRefiner(retrieval.Deps{
		LLM:     extractor,
		Sources: sources,
		Metrics: metrics,
		TopK:    cfg.Tuning.SourceTopK,
		Keep:    cfg.Tuning.RerankKeep,
	})

	chatService := chat.NewService(chat.Deps{
		LLM:          model,
		Retriever:    refiner,
		Memory:       memoryManager,
		Facts:        facts,
		Transcript:   transcript,
		Metrics:      metrics,
		HistoryLimit: cfg.Tuning.HistoryLimit,
	})

	api := httpapi.New(httpapi.Config{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	}, chatService, facts, metrics)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("notebook starting", "addr", cfg.Addr, "llm", cfg.LLM.Provider, "extractor", cfg.Extractor.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// in-flight turns finish their memory write-back before the stores close
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
