package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRunCmd создаёт команду выполнения одного run в текущем процессе.
func NewRunCmd(app *App) *cobra.Command {
	var (
		in     inputFlags
		pf     pipelineFlags
		table  bool
		notify bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Align a FASTQ pair and publish the BAM with its index",
		Long: `Runs the pipeline once: acquire inputs, align with STAR, rename the BAM
after read 1, index it with sambamba and publish both files.

The run manifest is written to stdout as JSON. Logs and stage progress
go to stderr. On failure the partial manifest is still printed and the
command exits 1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			id := uuid.New()
			if in.runID != "" {
				if id, err = uuid.Parse(in.runID); err != nil {
					return fmt.Errorf("invalid --run-id: %w", err)
				}
			}

			ctx := cmd.Context()
			logger := app.logger()

			// run.finished в RabbitMQ — по желанию; недоступный брокер не мешает run
			var p *pipeline
			if notify {
				conn, err := connectMQ(ctx, cfg.RabbitMQURL, logger)
				if err != nil {
					logger.Warn("RabbitMQ not available, run.finished will not be published", "error", err)
				} else {
					defer conn.Close()
					if p, err = app.buildPipeline(ctx, cfg, logger, conn); err != nil {
						return err
					}
				}
			}
			if p == nil {
				if p, err = app.buildPipeline(ctx, cfg, logger, nil); err != nil {
					return err
				}
			}
			defer p.Close()

			manifest, runErr := p.controller.RunWithID(ctx, id, in.input())

			NewOutputTo(!table, app.Stdout, app.Stderr).Manifest(manifest)

			if err := p.metrics.Push(cfg.PushgatewayURL, pushJob); err != nil {
				logger.Warn("failed to push metrics", "url", cfg.PushgatewayURL, "error", err)
			}

			return runErr
		},
	}

	in.register(cmd)
	pf.register(cmd)
	cmd.Flags().BoolVar(&table, "table", false, "Print a stage table instead of the JSON manifest")
	cmd.Flags().BoolVar(&notify, "notify", false, "Publish run.finished to RabbitMQ")

	return cmd
}
