package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

func newRunCmd(configPath *string) *cobra.Command {
	var clientID, orgID, keyword, title, angle string

	run := &cobra.Command{
		Use:   "run",
		Short: "Run one workflow for a client and print its summary",
	}
	run.PersistentFlags().StringVar(&clientID, "client", "", "Client ID")
	run.PersistentFlags().StringVar(&orgID, "org", "", "Organization ID (defaults to the client's)")
	_ = run.MarkPersistentFlagRequired("client")

	scholarCmd := &cobra.Command{
		Use:   "scholar",
		Short: "Research keywords and propose topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app) (models.RunSummary, error) {
				return a.service.RunScholar(ctx, clientID, orgID, models.TriggerManual)
			})
		},
	}

	ghostwriterCmd := &cobra.Command{
		Use:   "ghostwriter",
		Short: "Write one article and queue it for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic := models.ContentTopic{Keyword: keyword, SuggestedTitle: title, Angle: angle}
			if topic.SuggestedTitle == "" {
				topic.SuggestedTitle = keyword
			}
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app) (models.RunSummary, error) {
				return a.service.RunGhostwriter(ctx, clientID, orgID, topic, models.TriggerManual)
			})
		},
	}
	ghostwriterCmd.Flags().StringVar(&keyword, "topic", "", "Target keyword")
	ghostwriterCmd.Flags().StringVar(&title, "title", "", "Suggested title (defaults to the keyword)")
	ghostwriterCmd.Flags().StringVar(&angle, "angle", "informational", "Editorial angle")
	_ = ghostwriterCmd.MarkFlagRequired("topic")

	conductorCmd := &cobra.Command{
		Use:   "conductor",
		Short: "Run the full research and writing pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app) (models.RunSummary, error) {
				return a.service.RunConductor(ctx, clientID, orgID, models.TriggerManual)
			})
		},
	}

	run.AddCommand(scholarCmd, ghostwriterCmd, conductorCmd)
	return run
}

func newResumeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Resume an interrupted run from its last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app) (models.RunSummary, error) {
				return a.service.Resume(ctx, args[0])
			})
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := repository.Migrate(cmd.Context(), cfg.DSN()); err != nil {
				return err
			}
			logger.Info("Migrations applied")
			return nil
		},
	}
}

// withApp wires the service, runs fn with interrupt-driven cancellation and
// prints the resulting summary as JSON.
func withApp(ctx context.Context, configPath string, fn func(context.Context, *app) (models.RunSummary, error)) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	summary, err := fn(ctx, a)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if summary.Status != models.RunStatusCompleted {
		return fmt.Errorf("run %s finished with status %s", summary.RunID, summary.Status)
	}
	return nil
}
