// Command server runs the parental-control HTTP API.
//
// @title                       Parental Control API
// @version                     1.0
// @description                 Domain classification, rule cascade, usage accounting and time grants for child browser profiles.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tbourn/go-parental-backend/docs"
	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/config"
	httpapi "github.com/tbourn/go-parental-backend/internal/http"
	"github.com/tbourn/go-parental-backend/internal/observability"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/sysutil"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	port := pflag.String("port", "", "listen port (overrides PORT)")
	dbPath := pflag.String("db-path", "", "SQLite file (overrides DB_PATH)")
	logLevel := pflag.String("log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	migrateOnly := pflag.Bool("migrate-only", false, "apply the schema and exit")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("parental-server", version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Port = sysutil.FirstNonEmpty(*port, cfg.Port)
	cfg.DBPath = sysutil.FirstNonEmpty(*dbPath, cfg.DBPath)
	cfg.LogLevel = sysutil.FirstNonEmpty(*logLevel, cfg.LogLevel)

	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if *migrateOnly {
		log.Info().Str("driver", cfg.DBDriver).Msg("schema applied")
		return nil
	}
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		return fmt.Errorf("instrument db: %w", err)
	}

	cl, err := classifier.FromConfig(cfg.Classifier)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = version
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	httpapi.RegisterRoutes(r, db, cl, clock.Real(cfg.Location), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("timezone", cfg.Timezone).
			Str("classifier", cfg.Classifier.Provider).
			Bool("admin_routes", cfg.Auth.AdminToken != "").
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
