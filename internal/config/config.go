package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Tasks
		ReindexSchedule
		Embeddings
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration

		// JobRetention is how long finished job rows stay inspectable
		// before the cleanup task prunes them.
		JobRetention time.Duration
	}

	ReindexSchedule struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}

	Embeddings struct {
		Enabled bool
		BaseURL string
		Model   string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Scheduled reindex defaults
	v.SetDefault("reindex_enabled", false)
	v.SetDefault("reindex_schedule", "0 3 * * *") // Daily at 03:00

	// Embeddings defaults
	v.SetDefault("embeddings_enabled", false)
	v.SetDefault("embeddings_base_url", "http://localhost:11434")
	v.SetDefault("embeddings_model", "all-minilm:l6-v2")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")
	v.SetDefault("job_retention_duration", "168h") // 7 days

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
			JobRetention:      v.GetDuration("JOB_RETENTION_DURATION"),
		},
		ReindexSchedule: ReindexSchedule{
			Enabled:  v.GetBool("REINDEX_ENABLED"),
			Schedule: v.GetString("REINDEX_SCHEDULE"),
		},
		Embeddings: Embeddings{
			Enabled: v.GetBool("EMBEDDINGS_ENABLED"),
			BaseURL: v.GetString("EMBEDDINGS_BASE_URL"),
			Model:   v.GetString("EMBEDDINGS_MODEL"),
		},
	}
}
