/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and the environment config
  2. Apply command-line flag overrides
  3. Configure logging
  4. Open the store and the document storage
  5. Create services, handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -store   memory | sqlite | postgres (overrides STORE_DRIVER)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run against PostgreSQL with S3 documents
  STORE_DRIVER=postgres DATABASE_URL=postgres://... \
  DOCUMENT_STORAGE=s3 S3_BUCKET=leave-docs ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/docstore"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
	"github.com/warp/leave-engine/store/postgres"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// load values from .env into the system
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}
	cfg := config.Load()

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Store driver: memory, sqlite or postgres")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := setupLogger(cfg)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	documents, err := openDocuments(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize document storage: %v", err)
	}

	// Services
	leaves := leave.NewService(store, documents)
	leaves.Log = logger
	leaves.MaxAttempts = cfg.TxMaxAttempts
	policies := leave.NewPolicyService(store)
	policies.Log = logger
	policies.MaxAttempts = cfg.TxMaxAttempts

	handler := api.NewHandler(leaves, policies)
	handler.MaxUploadBytes = cfg.MaxUploadBytes

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORSOrigins, Logger: logger})
	serveLocalDocuments(router, cfg)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(log.Fields{
			"port":      cfg.Port,
			"store":     cfg.StoreDriver,
			"documents": cfg.DocumentStorage,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupLogger(cfg config.Config) *log.Logger {
	logger := log.StandardLogger()
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// openStore returns the configured store and its close function.
func openStore(ctx context.Context, cfg config.Config) (leave.TxStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memory.New(), func() {}, nil
	case config.StorePostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}

func openDocuments(cfg config.Config) (leave.DocumentStorage, error) {
	switch cfg.DocumentStorage {
	case config.DocumentsNone:
		return nil, nil
	case config.DocumentsS3:
		return docstore.NewS3(docstore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	default:
		return docstore.NewLocal(cfg.DocumentDir, cfg.DocumentBaseURL)
	}
}

// serveLocalDocuments exposes local documents when their base URL is a
// path on this server.
func serveLocalDocuments(router *chi.Mux, cfg config.Config) {
	if cfg.DocumentStorage != config.DocumentsLocal || !strings.HasPrefix(cfg.DocumentBaseURL, "/") {
		return
	}
	prefix := strings.TrimRight(cfg.DocumentBaseURL, "/")
	router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.DocumentDir))))
}
