package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/application"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/config"
	"github.com/leaguedesk/leaguedesk/internal/infrastructure/logger"
)

const (
	appName    = "leaguedesk"
	appVersion = "0.3.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "LeagueDesk, the fantasy league content engine",
		Long:  "LeagueDesk generates league articles through a staged pipeline and gathers member commentary through scheduled conversations.",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine with HTTP API and websocket status feed",
		RunE:  runServe,
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit one generation job and wait for the result",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringP("type", "t", "weekly_recap", "content type")
	generateCmd.Flags().StringP("league", "l", "demo-league", "league id")
	generateCmd.Flags().String("season", "", "season id")
	generateCmd.Flags().StringP("persona", "p", "", "writing persona (defaults per content type)")
	generateCmd.Flags().String("context", "", "extra instructions folded into the prompt")
	generateCmd.Flags().Duration("wait", 5*time.Minute, "how long to wait for a terminal status")

	commentsCmd := &cobra.Command{
		Use:   "comments",
		Short: "Schedule commentary conversations for a content request",
		RunE:  runComments,
	}
	commentsCmd.Flags().String("content-id", "", "content request id (required)")
	commentsCmd.Flags().String("users", "", "comma-separated target user ids (defaults to league members)")
	commentsCmd.Flags().Duration("in", 24*time.Hour, "generation runs this far from now")
	_ = commentsCmd.MarkFlagRequired("content-id")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	}

	rootCmd.AddCommand(serveCmd, generateCmd, commentsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	log.Info("Starting LeagueDesk",
		zap.String("version", appVersion),
		zap.String("database", cfg.Database.Type),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.NewApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal("Failed to start application", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	app, log, err := headlessApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	contentType, _ := cmd.Flags().GetString("type")
	leagueID, _ := cmd.Flags().GetString("league")
	seasonID, _ := cmd.Flags().GetString("season")
	persona, _ := cmd.Flags().GetString("persona")
	custom, _ := cmd.Flags().GetString("context")
	wait, _ := cmd.Flags().GetDuration("wait")

	id, err := app.Pipeline().Submit(ctx, contentType, persona, leagueID, seasonID, custom)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("Submitted content request %s\n", id)

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		req, findErr := app.ContentRepo().FindByID(ctx, id)
		if findErr != nil {
			log.Warn("Poll failed", zap.Error(findErr))
			continue
		}
		if !req.Status.IsTerminal() {
			continue
		}

		switch {
		case req.FailCode != "":
			return fmt.Errorf("generation failed [%s]: %s", req.FailCode, req.FailReason)
		default:
			fmt.Printf("\n# %s\n\n%s\n\n%s\n", req.Title, req.Summary, req.Body)
			return nil
		}
	}
	return fmt.Errorf("timed out after %s waiting for %s", wait, id)
}

func runComments(cmd *cobra.Command, args []string) error {
	app, _, err := headlessApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contentID, _ := cmd.Flags().GetString("content-id")
	usersFlag, _ := cmd.Flags().GetString("users")
	in, _ := cmd.Flags().GetDuration("in")

	var users []string
	if usersFlag != "" {
		for _, u := range strings.Split(usersFlag, ",") {
			if u = strings.TrimSpace(u); u != "" {
				users = append(users, u)
			}
		}
	}

	ids, err := app.Elicitation().CreateForContent(ctx, contentID, users, time.Now().Add(in), nil)
	if err != nil {
		return fmt.Errorf("create comment requests: %w", err)
	}

	fmt.Printf("Created %d comment requests:\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return app.Stop(stopCtx)
}

func headlessApp() (*application.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      "warn",
		Format:     "console",
		OutputPath: "stdout",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger init: %w", err)
	}

	app, err := application.NewAppHeadless(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init: %w", err)
	}
	return app, log, nil
}
