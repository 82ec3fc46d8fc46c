package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lijiannan828-oss/yvideo-factory/internal/client"
	"github.com/lijiannan828-oss/yvideo-factory/internal/config"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the storyboard API liveness endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cl, err := client.New(cfg.APIBaseURL, cfg.APIKey, cfg.HTTPTimeout, appLogger)
		if err != nil {
			return err
		}

		resp, err := cl.Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("healthy (status %d, %.2fs)\n", resp.Status, resp.Elapsed.Seconds())
		return nil
	},
}
