package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/internal/cli"
)

var validateRules string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rules file",
	Long:  `Validate permission rules syntax and detect propagation cycles.`,
	Example: `  # Validate a specific rules file
  warden validate --rules rules.yaml

  # Validate using config file settings
  warden validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Resolve rules path: flag > config > default
		rulesPath := resolveString(validateRules, cfg.Rules)

		if _, err := os.Stat(rulesPath); err != nil {
			return cli.RuleParseError(fmt.Sprintf("rules not found: %s", rulesPath), nil)
		}

		file, err := warden.LoadRules(rulesPath)
		if err != nil {
			return cli.RuleParseError("parsing rules", err)
		}

		reg, err := file.Registry()
		if err != nil {
			return cli.RuleParseError("applying rules", err)
		}

		cycles := warden.DetectPropagationCycles(reg)

		if !quiet {
			fmt.Printf("Rules are valid. Found %d relationship rules, %d schema grants.\n",
				len(reg.Rules()), len(reg.Grants()))
			for _, c := range cycles {
				fmt.Printf("  warning: propagation cycle: %s\n", c)
			}
		}

		if len(cycles) > 0 {
			return cli.GeneralError(fmt.Sprintf("%d propagation cycle(s) detected", len(cycles)), nil)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateRules, "rules", "", "path to rules file")
}
