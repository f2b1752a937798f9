package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lodeapp/lode/internal/config"
	"github.com/lodeapp/lode/internal/database"
	"github.com/lodeapp/lode/internal/database/conversations"
	jobsdb "github.com/lodeapp/lode/internal/database/jobs"
	"github.com/lodeapp/lode/internal/database/reports"
	"github.com/lodeapp/lode/internal/dedup"
	"github.com/lodeapp/lode/internal/embeddings"
	"github.com/lodeapp/lode/internal/entities"
	http_controllers "github.com/lodeapp/lode/internal/http"
	"github.com/lodeapp/lode/internal/importers"
	"github.com/lodeapp/lode/internal/jobs"
	"github.com/lodeapp/lode/internal/scheduler"
	"github.com/lodeapp/lode/internal/search"
	"github.com/lodeapp/lode/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// App bundles the wired application for reuse by the HTTP entrypoint
// and the CLI import commands.
type App struct {
	Config  *config.Config
	DB      *database.Database
	Store   *conversations.Repository
	Reports *reports.Repository
	JobRows *jobsdb.Repository
	Index   *search.Index
	Manager *jobs.Manager
}

// NewApp wires the storage, index, and job subsystems. Rows left in a
// non-terminal state by a previous process are marked failed before any
// new job can run.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	index := search.NewIndex(db.DB)
	if err := index.EnsureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install search index schema: %w", err)
	}

	store := conversations.NewRepository(db.DB)
	reportRepo := reports.NewRepository(db.DB)
	jobRows := jobsdb.NewRepository(db.DB)

	orphans, err := jobRows.MarkOrphansFailed()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to fail orphaned jobs: %w", err)
	}
	if orphans > 0 {
		log.Printf("WARNING: marked %d interrupted jobs as failed", orphans)
	}

	engine := dedup.NewEngine(store)
	normalizer := importers.NewNormalizer()

	manager := jobs.NewManager(jobRows)
	manager.Register(entities.JobTypeImport,
		jobs.NewImportHandler(normalizer, store, reportRepo, engine, index))
	manager.Register(entities.JobTypeReindex,
		jobs.NewReindexHandler(store, index))

	if cfg.Embeddings.Enabled {
		embedder := embeddings.NewOllamaClient(cfg.Embeddings.BaseURL, cfg.Embeddings.Model)
		manager.Register(entities.JobTypeVectorIndex,
			jobs.NewVectorIndexHandler(store, embedder))
		log.Printf("Vector indexing enabled via %s (model %s)", cfg.Embeddings.BaseURL, cfg.Embeddings.Model)
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Store:   store,
		Reports: reportRepo,
		JobRows: jobRows,
		Index:   index,
		Manager: manager,
	}, nil
}

// Close releases the application's database resources.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// Run wires the application and serves HTTP until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Lode v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	// Background maintenance queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCleanupJobsQueue(app.JobRows),
			tasks.NewBackfillHashesQueue(app.Store),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		// Queue one maintenance pass at startup.
		if _, err := taskClient.Add(tasks.CleanupJobsTask{Retention: cfg.Tasks.JobRetention}).Save(); err != nil {
			log.Printf("WARNING: failed to queue job cleanup task: %v", err)
		}
		if _, err := taskClient.Add(tasks.BackfillHashesTask{}).Save(); err != nil {
			log.Printf("WARNING: failed to queue hash backfill task: %v", err)
		}
	}

	// Scheduled reindex
	reindexScheduler := scheduler.NewReindexScheduler(app.Manager, cfg.ReindexSchedule)
	if err := reindexScheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start reindex scheduler: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:   app.DB,
		Store:      app.Store,
		Reports:    app.Reports,
		JobManager: app.Manager,
		Index:      app.Index,
		Version:    version,
	})

	onShutdown := func(ctx context.Context) {
		reindexScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
