package main

import (
	"github.com/spf13/cobra"

	"github.com/lijiannan828-oss/yvideo-factory/internal/artifact"
	"github.com/lijiannan828-oss/yvideo-factory/internal/client"
	"github.com/lijiannan828-oss/yvideo-factory/internal/config"
	"github.com/lijiannan828-oss/yvideo-factory/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the three-stage storyboard smoke test",
	Long: `validate runs the full pipeline against the configured API:
health probe, round1 shot breakdown, artifact location and normalization,
round2 enrichment, and the single-call full generation. Each stage's raw
response is printed and captured to a local file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cl, err := client.New(cfg.APIBaseURL, cfg.APIKey, cfg.HTTPTimeout, appLogger)
		if err != nil {
			return err
		}
		loc := artifact.New(cl, cfg.DataDir, appLogger)

		driver := pipeline.New(cfg, cl, loc, appLogger)
		_, err = driver.Run(cmd.Context())
		return err
	},
}
