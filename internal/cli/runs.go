package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/repo"
)

// NewRunsCmd создаёт группу команд истории runs (Postgres).
func NewRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	cmd.AddCommand(
		newRunsListCmd(app),
		newRunsShowCmd(app),
	)

	return cmd
}

func newRunsListCmd(app *App) *cobra.Command {
	var (
		state  string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, closeFn, err := app.openRunRepo(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := runRepo.List(cmd.Context(), repo.RunFilter{
				State:  domain.RunState(state),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATE", "FAILED_STAGE", "REF", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID.String(),
					string(r.State),
					dash(string(r.FailedStage)),
					r.Input.ReferenceGenomeID,
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				}
			}

			app.output().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (COMPLETE, FAILED, ...)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newRunsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show run details and stage results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}

			runRepo, closeFn, err := app.openRunRepo(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			run, err := runRepo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := app.output()
			if app.JSON {
				out.JSON(run)
				return nil
			}

			out.Table([]string{"FIELD", "VALUE"}, runDetailRows(run))
			fmt.Fprintln(app.Stdout)
			out.Table([]string{"STAGE", "SUCCESS", "SECONDS", "TOOL", "EXIT_CODE"}, stageRows(run.Manifest.Stages))
			return nil
		},
	}
}

// openRunRepo подключается к Postgres из конфигурации.
func (a *App) openRunRepo(cmd *cobra.Command) (*repo.RunRepo, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	pool, err := repo.NewPool(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return repo.NewRunRepo(pool), pool.Close, nil
}

// runDetailRows — строки "поле/значение" для runs show.
func runDetailRows(run *domain.Run) [][]string {
	duration := "-"
	if d := run.Duration(); d > 0 {
		duration = strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}
	return [][]string{
		{"ID", run.ID.String()},
		{"STATE", string(run.State)},
		{"FASTQ_R1", run.Input.FastqR1Ref},
		{"FASTQ_R2", run.Input.FastqR2Ref},
		{"REF", run.Input.ReferenceGenomeID},
		{"FAILED_STAGE", dash(string(run.FailedStage))},
		{"ERROR", dash(run.Error)},
		{"DURATION", duration},
		{"STAR_BAM", dash(run.Manifest.Published.Primary)},
		{"STAR_INDEX", dash(run.Manifest.Published.Index)},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
