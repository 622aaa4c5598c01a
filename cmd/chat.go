/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/pdf-quizbot/database"
	"github.com/tieubaoca/pdf-quizbot/handler"
	"github.com/tieubaoca/pdf-quizbot/service"
)

// chatCmd runs one conversation on the terminal.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long: `Runs a single conversation on stdin/stdout. Upload a PDF with
"upload <file.pdf>", ask for a quiz with "quiz", leave with "quit".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		out := cmd.OutOrStdout()
		conv := service.NewConversation(
			sessionID,
			service.NewPDFService(log),
			service.NewStudyService(ai),
			store,
			handler.NewConsoleSink(out),
			conversationConfig(cfg),
			log,
		)
		src := handler.NewConsoleSource(cmd.InOrStdin(), out, cfg.MaxUploadSize())
		if err := conv.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "session id to resume (bolt session store only)")
}
