package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the parser, cache and renderer",
	Long: `Builds a small probe function, stores it in the configured cache and
renders it with Graphviz to verify that every part of lpdg works.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := healthcheck.Check(cmd.Context(), app.cfg, app.configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		} else {
			displayHealth(cmd.OutOrStdout(), result)
		}

		if !result.OK() {
			return fmt.Errorf("health check failed: one or more components are not working")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(doctorCmd)
}
