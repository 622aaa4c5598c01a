/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/config"
	"github.com/tieubaoca/pdf-quizbot/database"
	"github.com/tieubaoca/pdf-quizbot/handler"
	"github.com/tieubaoca/pdf-quizbot/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat server",
	Long:  `Starts a server that handles websocket chat connections and PDF text extraction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Initialize services
		ai, err := service.NewAIService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer ai.Close()
		store, err := database.NewSessionStore(cfg.SessionStore)
		if err != nil {
			return err
		}
		defer store.Close()

		pdfService := service.NewPDFService(log)
		studyService := service.NewStudyService(ai)
		convConfig := conversationConfig(cfg)

		newConversation := func(id string, sink service.MessageSink) *service.Conversation {
			return service.NewConversation(id, pdfService, studyService, store, sink, convConfig, log)
		}

		// Initialize handlers
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		var documentHandler *handler.DocumentHandler
		if cfg.UploadDir != "" {
			documentHandler = handler.NewDocumentHandler(cfg.UploadDir)
		}
		router := handler.NewRouter(handler.Handlers{
			Cors:    handler.NewCorsHandler(""),
			Extract: handler.NewExtractHandler(pdfService, cfg.MaxUploadSize(), log),
			WebSocket: handler.NewWebSocketHandler(
				newConversation,
				store,
				cfg.SessionStore.Driver == config.SessionDriverBolt,
				cfg.MaxUploadSize(),
				log,
			),
			Document: documentHandler,
		})

		srv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info("starting server", zap.String("addr", srv.Addr), zap.String("provider", cfg.Provider))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func conversationConfig(cfg *config.Config) service.ConversationConfig {
	return service.ConversationConfig{
		MaxUploadSize: cfg.MaxUploadSize(),
		UploadTimeout: cfg.UploadTimeout,
		UploadDir:     cfg.UploadDir,
		Stream:        cfg.Stream,
	}
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
