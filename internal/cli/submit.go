package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/staralign/internal/mq"
)

// NewSubmitCmd создаёт команду постановки run в очередь.
func NewSubmitCmd(app *App) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a run for a worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := in.input()
			if err := input.Validate(); err != nil {
				return err
			}

			id := uuid.New()
			if in.runID != "" {
				var err error
				if id, err = uuid.Parse(in.runID); err != nil {
					return fmt.Errorf("invalid --run-id: %w", err)
				}
			}

			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := app.logger()

			conn, err := connectMQ(ctx, cfg.RabbitMQURL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.NewPublisher(conn, logger).PublishRunRequested(ctx, id, input); err != nil {
				return err
			}

			out := app.output()
			out.Print([]string{"RUN_ID", "QUEUE"},
				[][]string{{id.String(), string(mq.QueueRunsRequested)}},
				map[string]string{"run_id": id.String(), "queue": string(mq.QueueRunsRequested)},
			)
			out.Success("Run queued")
			return nil
		},
	}

	in.register(cmd)
	return cmd
}
