package main

import (
	"github.com/spf13/cobra"

	"github.com/lijiannan828-oss/yvideo-factory/internal/compose"
	"github.com/lijiannan828-oss/yvideo-factory/internal/config"
)

// The lifecycle commands only need the environment options; no credential or
// input documents are required to start or stop containers.

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the storyboard service stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadEnv()
		if err != nil {
			return err
		}
		return compose.New(cfg.ComposeFile, appLogger).Up(cmd.Context())
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the storyboard service stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadEnv()
		if err != nil {
			return err
		}
		return compose.New(cfg.ComposeFile, appLogger).Down(cmd.Context())
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [service]",
	Short: "Follow service logs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadEnv()
		if err != nil {
			return err
		}
		service := ""
		if len(args) > 0 {
			service = args[0]
		}
		return compose.New(cfg.ComposeFile, appLogger).Logs(cmd.Context(), service)
	},
}
