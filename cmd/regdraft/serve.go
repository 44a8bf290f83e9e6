package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regdraft/internal/api"
	"regdraft/internal/editing"
	"regdraft/internal/llm"
	"regdraft/internal/replace"
	"regdraft/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and selection channel",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		if cfg.AI.APIKey == "" {
			log.Fatalf("AI API key not configured")
		}
		gen, err := llm.NewGenerator(ctx, llm.Options{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to create generator: %v", err)
		}

		deps := editing.Deps{
			Sections:   store,
			Edits:      store,
			Generator:  gen,
			Engine:     replace.NewEngine(replaceOptions(cfg)),
			Validator:  selection.NewValidator(selectionThresholds(cfg)),
			PendingTTL: cfg.Editing.PendingTTL,
			Logger:     logger,
		}
		opts := api.Options{
			Store:           store,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			GenerationRPS:   cfg.Server.GenerationRPS,
			GenerationBurst: cfg.Server.GenerationBurst,
			Logger:          logger,
		}

		retriever, err := initRetriever(ctx, cfg, store, logger)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if retriever != nil {
			deps.Research = retriever
			opts.Research = retriever
		} else {
			fmt.Println("⚠️  Research retrieval disabled: no embedding key configured")
		}

		opts.Editing = editing.NewService(deps)
		opts.Selections = selection.NewRegistry(
			cfg.Selection.SessionIdle,
			selection.NewValidator(selectionThresholds(cfg)),
			selection.NewCacheBackup(cfg.Selection.BackupTTL),
			logger,
		)

		if logger.IsLevelEnabled(logrus.DebugLevel) {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		fmt.Printf("🚀 Listening on %s (db: %s)\n", cfg.Server.Addr, cfg.Storage.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
		fmt.Println("👋 Server stopped")
	},
}
