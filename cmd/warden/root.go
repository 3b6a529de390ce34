package main

import (
	"github.com/spf13/cobra"

	"github.com/wardengraph/warden/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Graph-based permission resolution",
	Long: `warden - Graph-based permission resolution

Warden resolves permissions over a property graph: direct grants,
transitive group membership, schema-defined propagation along typed
relationships, and custom permission queries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupRules   = "rules"
	groupRuntime = "runtime"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover warden.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupRules, Title: "Rules:"},
		&cobra.Group{ID: groupRuntime, Title: "Runtime:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Rules commands
	validateCmd.GroupID = groupRules
	rootCmd.AddCommand(validateCmd)

	// Runtime commands
	migrateCmd.GroupID = groupRuntime
	statusCmd.GroupID = groupRuntime
	checkCmd.GroupID = groupRuntime
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)

	// Utility commands
	doctorCmd.GroupID = groupUtility
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
