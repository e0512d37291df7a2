package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/documents"
	"ocrdocs-backend/internal/extract"
	openai "ocrdocs-backend/internal/llm/openai"
	"ocrdocs-backend/internal/shared/config"
	"ocrdocs-backend/internal/shared/server"
	"ocrdocs-backend/internal/shared/storage/db"
	"ocrdocs-backend/internal/shared/storage/object"
	localstore "ocrdocs-backend/internal/shared/storage/object/local"
	s3store "ocrdocs-backend/internal/shared/storage/object/s3"
	"ocrdocs-backend/internal/shared/telemetry"
	"ocrdocs-backend/internal/summarize"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
}

// Build constructs the single document repository and wires it into the
// service, handlers and router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	def := config.DefaultTuning()
	if cfg.Tuning.ChunkSize <= 0 {
		cfg.Tuning.ChunkSize = def.ChunkSize
	}
	if cfg.Tuning.DefaultSummaryLength <= 0 {
		cfg.Tuning.DefaultSummaryLength = def.DefaultSummaryLength
	}
	if len(cfg.Tuning.OCRLanguages) == 0 {
		cfg.Tuning.OCRLanguages = def.OCRLanguages
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	svc := &documents.Service{
		Repo:       repo,
		Extractor:  extract.New(nil, cfg.Tuning.OCRLanguages),
		Summarizer: summarize.New(model, cfg.Tuning.ChunkSize),
		Store:      store,

		DefaultSummaryLength: cfg.Tuning.DefaultSummaryLength,
	}
	handler := documents.NewHandler(svc)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		DocumentsRepo:    repo,
		DocumentsService: svc,
		DocumentsHandler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: handler,
	})

	if !extract.OCRCompiled {
		telemetry.Warn("bootstrap.ocr_disabled", map[string]any{
			"reason": "built without the tesseract tag; image uploads will fail",
		})
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"summarizer":   cfg.Summarizer,
		"durable":      sqlDB != nil,
		"ocr":          extract.OCRCompiled,
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.memory_repository", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repository", map[string]any{
				"reason": "database connect failed",
				"error":  err,
			})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func buildModel(cfg config.Config) (summarize.Model, error) {
	if cfg.Summarizer != "openai" {
		return summarize.NewFrequencyModel(), nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var _ summarize.Model = (*openai.Client)(nil)

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
