package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fsgate/fsgate/pkg/config"
	"github.com/fsgate/fsgate/pkg/gateway"
	"github.com/fsgate/fsgate/pkg/telemetry"
)

var (
	configPath = flag.String("config", "/etc/fsgate/fsgate.yaml", "Config file path")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Audit database path (overrides config)")
	Version    = "dev"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Audit.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	configureLogger(cfg.Logging)
	log.Info().Str("version", Version).Msg("fsgate server starting")

	ctx := context.Background()
	provider, err := telemetry.SetupTracing(ctx, "fsgate-server", Version,
		cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio, cfg.Tracing.LogSpans)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	gw := gateway.New()
	if dirs := cfg.Paths.AllowDirs; len(dirs) > 0 {
		gw.Guard.Roots = func() []string { return dirs }
	}

	var audit *AuditStore
	if cfg.Audit.Enable {
		db, err := gorm.Open(sqlite.Open(cfg.Audit.DBPath), &gorm.Config{})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open audit database")
		}
		if err := db.AutoMigrate(&FileOpRecord{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate audit schema")
		}

		var redact func(string) string
		if cfg.Audit.RedactPaths {
			hasher := NewPathHasher([]byte(cfg.Audit.RedactSalt))
			redact = hasher.HashString
		}
		audit = NewAuditStore(db, time.Duration(cfg.Audit.RetentionDays)*24*time.Hour, redact)
		gw.Recorder = audit
	}

	srv := &Server{
		gw:     gw,
		audit:  audit,
		logger: log.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(withRequestContext(log.Logger))
	srv.routes(r)

	log.Info().Str("listen", cfg.Server.Listen).
		Strs("allowed_dirs", gw.AllowedDirs()).
		Bool("audit", cfg.Audit.Enable).
		Msg("Listening")
	if err := r.Run(cfg.Server.Listen); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func configureLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil {
		level = parsed
	}

	logger := zerolog.New(os.Stdout)
	if !cfg.JSON {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(writer)
	}
	log.Logger = logger.With().Timestamp().Logger().Level(level)
	zerolog.SetGlobalLevel(level)
}
