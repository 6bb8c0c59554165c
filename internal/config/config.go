package config

import (
	"log"
	"os"
)

// Defaults shared by the CLI and the serve daemon.
const (
	DefaultSourcesPath = "tools/sources.json"
	DefaultOutDir      = "contents/post"
	DefaultDeadletter  = ".dead/post.failed.jsonl"
)

// App is the environment-backed configuration of the serve daemon.
type App struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	SourcesPath string
	OutDir      string
	Deadletter  string
}

func Load() *App {
	cfg := &App{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=imehub password=imehub dbname=imehub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:    getEnv("CRON_SPEC", "0 */6 * * *"),
		SourcesPath: getEnv("SOURCES_PATH", DefaultSourcesPath),
		OutDir:      getEnv("OUT_DIR", DefaultOutDir),
		Deadletter:  getEnv("DEADLETTER_PATH", DefaultDeadletter),
	}

	log.Printf("config loaded: port=%s cron=%s sources=%s", cfg.AppPort, cfg.CronSpec, cfg.SourcesPath)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
