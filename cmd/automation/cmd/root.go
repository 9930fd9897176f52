// Package cmd provides the CLI commands for the automation service.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// verbose enables debug logging
	verbose bool
	// outputFormat specifies the output format (json, plain)
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "automation",
	Short: "Workflow automation engine",
	Long: `automation runs multi-step client workflows: sequences of messages,
delays, conditions, tags and tasks triggered by business events.

Executions survive restarts; suspended steps are resumed by a periodic
sweep over the persisted state.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// NewRootCmd creates a fresh command tree, used by tests.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "automation",
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	addFlags(cmd)
	addCommands(cmd)
	return cmd
}

func addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "plain", "output format (json|plain)")
}

func addCommands(cmd *cobra.Command) {
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newDefinitionsCmd())
}

func init() {
	addFlags(rootCmd)
	addCommands(rootCmd)
}
