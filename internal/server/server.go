// Package server is a reference implementation of the remote model/settings
// service the persistence coordinator talks to. It exists so the editor core
// can be exercised end to end without an external backend.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dvwtools/dvw-cli/internal/config"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects the sqlite database and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DataModel{}, &NodeRecord{}, &EdgeRecord{}, &SettingsRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewRouter builds the API routes around a handler.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/models/{$}", h.ListModels)
	mux.HandleFunc("POST /api/models/{$}", h.CreateModel)
	mux.HandleFunc("GET /api/models/{id}/{$}", h.GetModel)
	mux.HandleFunc("PUT /api/models/{id}/{$}", h.UpdateModel)
	mux.HandleFunc("DELETE /api/models/{id}/{$}", h.DeleteModel)

	mux.HandleFunc("GET /api/settings/{$}", h.GetSettings)
	mux.HandleFunc("PATCH /api/settings/{$}", h.PatchSettings)
	mux.HandleFunc("POST /api/settings/reset/{$}", h.ResetSettings)

	return mux
}

// Server is the embedded reference backend.
type Server struct {
	http *http.Server
	log  *zap.Logger
}

// New assembles the server from configuration.
func New(cfg config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, err
	}

	handler := &Handler{DB: db, Log: logger}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:         86400,
	}).Handler(NewRouter(handler))

	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           corsHandler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("reference backend listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("reference backend stopped")
	return <-errCh
}
