package cli

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/devreload/internal/config"
)

func newConfigCommand() *cobra.Command {
	var diff bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration that results from defaults, the config file
and DEVRELOAD_* environment variables, as YAML.

Use --diff to show only what differs from the built-in defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			w := cmd.OutOrStdout()

			current, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			if !diff {
				_, err = w.Write(current)
				return err
			}

			defaults, err := yaml.Marshal(config.Default())
			if err != nil {
				return fmt.Errorf("marshaling defaults: %w", err)
			}

			text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(defaults)),
				B:        difflib.SplitLines(string(current)),
				FromFile: "defaults",
				ToFile:   "effective",
				Context:  1,
			})
			if err != nil {
				return fmt.Errorf("diffing config: %w", err)
			}

			if text == "" {
				_, err = fmt.Fprintln(w, "configuration matches defaults")
				return err
			}

			_, err = fmt.Fprint(w, text)

			return err
		},
	}

	cmd.Flags().BoolVar(&diff, "diff", false, "show a unified diff against the defaults")

	return cmd
}
