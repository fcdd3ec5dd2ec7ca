package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Show the configured language models",
		Long:  "Shows the creative, cheap and full models, including the overrides of CASEFILE_MODELS_FILE.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderModels(registry))
			return err
		},
	}
}
