package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/tubescribe/tubescribe/feed"
	"github.com/tubescribe/tubescribe/fetcher"
	"github.com/tubescribe/tubescribe/handler"
	"github.com/tubescribe/tubescribe/index"
	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/pipeline"
	"github.com/tubescribe/tubescribe/storage"
	"github.com/tubescribe/tubescribe/summarize"
)

func main() {
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := openStore(logger)
	if err != nil {
		logger.Error("unable to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	defaultTenant, err := store.EnsureDefaultTenant(ctx)
	if err != nil {
		logger.Error("unable to ensure default tenant", "error", err)
		os.Exit(1)
	}

	client := fetcher.NewClient(
		fetcher.WithLogger(logger),
		fetcher.WithLimiter(rate.NewLimiter(rate.Every(2*time.Second), 1)),
	)

	var metadata fetcher.MetadataFetcher = client
	if apiKey := getParam("YOUTUBE_API_KEY", ""); apiKey != "" {
		dataAPI, err := fetcher.NewDataAPI(ctx, apiKey)
		if err != nil {
			logger.Error("unable to create youtube data api client", "error", err)
			os.Exit(1)
		}
		metadata = dataAPI
		logger.Info("using youtube data api for metadata")
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(intParam("PIPELINE_WORKERS", 3)),
	}

	creds := summarize.Credentials{
		Provider:    model.ProviderName(getParam("AI_PROVIDER", "")),
		OpenAIKey:   getParam("OPENAI_API_KEY", ""),
		GeminiKey:   getParam("GEMINI_API_KEY", ""),
		OpenAIModel: getParam("OPENAI_MODEL", ""),
		GeminiModel: getParam("GEMINI_MODEL", ""),
	}
	// The selector is always installed: tenants can carry their own keys
	// in tenant_settings, which take precedence over the defaults anyway.
	// Items of tenants without any key stay at the transcribed stage.
	opts = append(opts, pipeline.WithSelector(summarize.NewSelector(creds)))
	if creds.OpenAIKey == "" && creds.GeminiKey == "" {
		logger.Info("no default provider credentials, summarizing with tenant keys only")
	}

	if host := getParam("WEAVIATE_HOST", ""); host != "" {
		weaviate, err := index.NewWeaviate(host, getParam("WEAVIATE_APIKEY", ""), creds.OpenAIKey)
		if err != nil {
			logger.Error("unable to create weaviate client", "error", err)
			os.Exit(1)
		}
		if getParam("WEAVIATE_RESET", "") == "true" {
			if err := weaviate.ResetSchema(); err != nil {
				logger.Error("unable to reset weaviate schema", "error", err)
				os.Exit(1)
			}
			logger.Info("weaviate schema reset")
		}
		opts = append(opts, pipeline.WithIndexer(weaviate))
		logger.Info("mirroring summaries to weaviate", "host", host)
	}

	orchestrator := pipeline.New(store, metadata, client, opts...)

	if endpoint := getParam("MINIFLUX_ENDPOINT", ""); endpoint != "" {
		interval, err := time.ParseDuration(getParam("FETCH_INTERVAL", "1m"))
		if err != nil {
			logger.Error("unable to parse fetch interval", "error", err)
			os.Exit(1)
		}
		mflx := feed.NewMiniflux(feed.MinifluxInfo{
			Endpoint: endpoint,
			APIKey:   getParam("MINIFLUX_APIKEY", ""),
		})
		runner := feed.NewRunner(mflx, orchestrator,
			model.TenantContext{TenantID: defaultTenant.ID}, interval, logger)
		go runner.Run(ctx)
		logger.Info("feed runner started")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", intParam("API_PORT", 8080)),
		Handler: handler.NewServer(store, orchestrator, handler.HeaderResolver(store), logger),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()
	logger.Info("http server started", "addr", srv.Addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("service stopped")
}

// openStore picks the backend from DATABASE_URL: postgres URLs go to
// postgres, anything else is treated as a sqlite path.
func openStore(logger *slog.Logger) (*storage.SQL, error) {
	dsn := getParam("DATABASE_URL", "tubescribe.db")
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return storage.NewPostgres(dsn, logger)
	}
	return storage.NewSQLite(dsn, logger)
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}

func intParam(param string, def int) int {
	val, err := strconv.Atoi(getParam(param, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return val
}
