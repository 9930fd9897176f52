package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumabook/automation/internal/clock"
	"github.com/lumabook/automation/internal/database/mongodb"
	"github.com/lumabook/automation/internal/notification"
	"github.com/lumabook/automation/internal/workflow"
	"github.com/lumabook/automation/internal/workflow/repository"
	"github.com/lumabook/automation/pkg/logging"
)

var sweepDryRun bool

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep over due executions",
		Long: `Advance every execution whose resume time has passed, then exit.

Useful from cron as an alternative to the built-in scheduler, or for
draining a backlog by hand. With --dry-run messages are recorded instead
of sent; note that executions still advance and persist.`,
		Example: `  automation sweep
  automation sweep --dry-run --output json`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}

	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	cmd.Flags().StringVar(&mongoDatabase, "mongo-db", "automation", "MongoDB database name")
	cmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "record messages instead of sending them")

	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	logger := logging.New(logCfg)

	ctx := cmd.Context()

	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = mongoURI
	mongoCfg.Database = mongoDatabase

	mongoClient, err := mongodb.New(ctx, mongoCfg, logger.Component("mongodb"))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer mongoClient.Close(ctx)

	stores := repository.MongoStores(mongoClient.Database())

	var sender notification.Sender
	if sweepDryRun {
		sender = notification.NewRecordingSender()
	} else {
		sender = buildSender(logger)
	}

	engine, err := workflow.NewEngine(workflow.DefaultConfig(), stores, sender, nil,
		clock.System(), nil, logger.Component("engine"))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	result, err := engine.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "due: %d, advanced: %d, skipped: %d, failed: %d\n",
			result.Due, result.Advanced, result.Skipped, result.Failed)
		return nil
	}
}
