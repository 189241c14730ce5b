// Package main provides yieldctl, the operator CLI for the yield engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/yield-engine/internal/analytics"
	"github.com/yourusername/yield-engine/internal/config"
	"github.com/yourusername/yield-engine/internal/database"
	"github.com/yourusername/yield-engine/internal/eventsource"
	"github.com/yourusername/yield-engine/internal/experiment"
	"github.com/yourusername/yield-engine/internal/logger"
	"github.com/yourusername/yield-engine/internal/metrics"
	"github.com/yourusername/yield-engine/internal/models"
	"github.com/yourusername/yield-engine/internal/recommendation"
	"github.com/yourusername/yield-engine/internal/repository"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
	source     eventsource.Source
)

var (
	flagWindowDays int
	flagActor      string
	flagReason     string
	flagStatus     string
	flagPriority   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	generateCmd.Flags().IntVar(&flagWindowDays, "window-days", 0, "Event window in days (0 uses the configured default)")
	analyzeCmd.Flags().IntVar(&flagWindowDays, "window-days", 0, "Event window in days (0 uses the configured default)")
	implementCmd.Flags().StringVar(&flagActor, "actor", "", "Who is implementing the recommendation")
	implementCmd.MarkFlagRequired("actor")
	dismissCmd.Flags().StringVar(&flagActor, "actor", "", "Who is dismissing the recommendation")
	dismissCmd.Flags().StringVar(&flagReason, "reason", "", "Why the recommendation is being dismissed")
	dismissCmd.MarkFlagRequired("actor")
	listCmd.Flags().StringVar(&flagStatus, "status", "", "Filter by status (pending|implemented|dismissed|expired)")
	listCmd.Flags().StringVar(&flagPriority, "priority", "", "Filter by priority (critical|high|medium|low)")

	rootCmd.AddCommand(generateCmd, analyzeCmd, listCmd, implementCmd, dismissCmd, measureCmd, statsCmd, validateCmd)
}

var rootCmd = &cobra.Command{
	Use:   "yieldctl",
	Short: "Operate the yield recommendation engine",
	Long:  `Generates, inspects and transitions yield recommendations, and validates experiment definitions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	metrics.InitRegistry()

	db, err = database.NewDB(context.Background(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	source, err = eventsource.NewSource(cfg.EventSource, repos, appLog)
	if err != nil {
		return fmt.Errorf("failed to initialize event source: %w", err)
	}
	return nil
}

func parseID(arg, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, arg, err)
	}
	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var generateCmd = &cobra.Command{
	Use:   "generate <publisher-id>",
	Short: "Generate recommendations for a publisher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publisherID, err := parseID(args[0], "publisher")
		if err != nil {
			return err
		}

		generator := recommendation.NewGenerator(repos.Recommendation, repos.BidderConfig, source, &cfg.Recommendation, appLog)
		recs, err := generator.Generate(cmd.Context(), publisherID, flagWindowDays)
		if err != nil {
			return err
		}

		fmt.Printf("Generated %d recommendations\n", len(recs))
		for _, rec := range recs {
			fmt.Printf("  [%s] %s (%s) %s\n", rec.Priority, rec.Title, rec.Type, rec.ID)
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <experiment-id>",
	Short: "Compute per-arm metrics and arm-vs-control comparison for an experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "experiment")
		if err != nil {
			return err
		}

		windowDays := flagWindowDays
		if windowDays <= 0 {
			windowDays = cfg.Recommendation.WindowDays
		}
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -windowDays)

		service := analytics.NewService(repos.Experiment, source, &cfg.Analytics, appLog)
		analysis, err := service.AnalyzeExperiment(cmd.Context(), id, start, end)
		if err != nil {
			return err
		}
		return printJSON(analysis)
	},
}

var listCmd = &cobra.Command{
	Use:   "list <publisher-id>",
	Short: "List a publisher's recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publisherID, err := parseID(args[0], "publisher")
		if err != nil {
			return err
		}

		filter := repository.RecommendationFilter{PublisherID: &publisherID}
		if flagStatus != "" {
			status := models.RecommendationStatus(flagStatus)
			filter.Status = &status
		}
		if flagPriority != "" {
			priority := models.RecommendationPriority(flagPriority)
			filter.Priority = &priority
		}

		recs, err := repos.Recommendation.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(recs)
	},
}

var implementCmd = &cobra.Command{
	Use:   "implement <recommendation-id>",
	Short: "Implement a pending recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "recommendation")
		if err != nil {
			return err
		}

		lifecycle := recommendation.NewLifecycle(repos.Recommendation, repos.BidderConfig, source, appLog)
		rec, err := lifecycle.Implement(cmd.Context(), id, flagActor)
		if err != nil {
			return err
		}

		fmt.Printf("Implemented %s (%s), measurement period open since %s\n",
			rec.ID, rec.Type, rec.MeasurementPeriod.Start.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <recommendation-id>",
	Short: "Dismiss a pending recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "recommendation")
		if err != nil {
			return err
		}

		lifecycle := recommendation.NewLifecycle(repos.Recommendation, repos.BidderConfig, source, appLog)
		rec, err := lifecycle.Dismiss(cmd.Context(), id, flagActor, flagReason)
		if err != nil {
			return err
		}

		fmt.Printf("Dismissed %s\n", rec.ID)
		return nil
	},
}

var measureCmd = &cobra.Command{
	Use:   "measure <recommendation-id>",
	Short: "Measure the revenue impact of an implemented recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "recommendation")
		if err != nil {
			return err
		}

		lifecycle := recommendation.NewLifecycle(repos.Recommendation, repos.BidderConfig, source, appLog)
		rec, err := lifecycle.MeasureImpact(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("Measured %s: daily revenue change %+.2f (%+.1f%%)\n",
			rec.ID, rec.ActualImpact.RevenueChange, rec.ActualImpact.PercentChange)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <publisher-id>",
	Short: "Show a publisher's recommendation rollup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publisherID, err := parseID(args[0], "publisher")
		if err != nil {
			return err
		}

		stats, err := recommendation.ComputeStats(cmd.Context(), repos.Recommendation, publisherID)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <experiment-id>",
	Short: "Re-check an experiment's arm invariants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "experiment")
		if err != nil {
			return err
		}

		registry := experiment.NewRegistry(repos.Experiment, appLog)
		violations, err := registry.ValidateExperiment(cmd.Context(), id)
		if err != nil {
			return err
		}

		if len(violations) == 0 {
			fmt.Println("Experiment is consistent")
			return nil
		}
		for _, violation := range violations {
			fmt.Printf("  %s: %s\n", violation.Rule, violation.Message)
		}
		os.Exit(1)
		return nil
	},
}
