package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumabook/automation/internal/database/mongodb"
	"github.com/lumabook/automation/internal/definition"
	"github.com/lumabook/automation/internal/workflow/repository"
	"github.com/lumabook/automation/pkg/logging"
)

func newDefinitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "Manage workflow definition files",
	}

	cmd.AddCommand(newDefinitionsLoadCmd())
	cmd.AddCommand(newDefinitionsCheckCmd())

	return cmd
}

func newDefinitionsLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <dir>",
		Short: "Parse and upsert .workflow files into the store",
		Long: `Parse every .workflow file in the directory and upsert the
definitions it contains. Existing definitions keep their stats.`,
		Example: `  automation definitions load ./workflows`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDefinitionsLoad,
	}

	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	cmd.Flags().StringVar(&mongoDatabase, "mongo-db", "automation", "MongoDB database name")

	return cmd
}

func runDefinitionsLoad(cmd *cobra.Command, args []string) error {
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
	loader := definition.NewLoader(stores.Workflows, logger.Component("definitions"))

	defs, err := loader.LoadDir(ctx, args[0])
	if err != nil {
		return err
	}

	for _, def := range defs {
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %s (%d steps)\n", def.ID, len(def.Steps))
	}
	return nil
}

func newDefinitionsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse definition files without storing them",
		Example: `  automation definitions check workflows/welcome.workflow
  automation definitions check workflows/*.workflow --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDefinitionsCheck,
	}
}

func runDefinitionsCheck(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		defs, err := definition.Parse(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		switch outputFormat {
		case "json":
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(defs); err != nil {
				return err
			}
		default:
			for _, def := range defs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok (%d steps, trigger %s)\n",
					path, def.ID, len(def.Steps), def.Trigger)
			}
		}
	}
	return nil
}
