package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/staralign/internal/api"
	"github.com/shaiso/staralign/internal/mq"
	"github.com/shaiso/staralign/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// NewWorkerCmd создаёт команду долгоживущего worker.
func NewWorkerCmd(app *App) *cobra.Command {
	var (
		pf       pipelineFlags
		prefetch int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume queued runs from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logger := app.logger()
			logger.Info("starting staralign worker", "version", app.Version)

			// RabbitMQ обязателен: без него worker нечего делать
			conn, err := connectMQ(ctx, cfg.RabbitMQURL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			logger.Info("RabbitMQ connected")

			p, err := app.buildPipeline(ctx, cfg, logger, conn)
			if err != nil {
				return err
			}
			defer p.Close()

			w, err := worker.New(worker.Config{
				Executor: p.controller,
				Conn:     conn,
				Prefetch: prefetch,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}

			// HTTP: /healthz + /metrics, API runs — если есть Postgres
			mux := worker.NewMux(p.metrics.Registry, conn.IsConnected)
			if p.runs != nil {
				api.NewHandler(api.Config{
					Runs:      p.runs,
					Submitter: mq.NewPublisher(conn, logger),
					Logger:    logger,
				}).RegisterRoutes(mux)
			}

			srv := &http.Server{
				Addr:              ":" + cfg.MetricsPort,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				logger.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					cancel()
				}
			}()

			// Ожидаем сигнал завершения
			<-ctx.Done()

			w.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server shutdown", "error", err)
			}

			logger.Info("staralign worker stopped")
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().IntVar(&prefetch, "prefetch", 1, "Unacknowledged run requests per worker")

	return cmd
}
