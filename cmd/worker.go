package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/worker"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the extraction worker until SIGINT/SIGTERM",
	RunE: func(cmd *cobra.Command, args []string) error {
		if workerConcurrency > 0 {
			cfg.Worker.Concurrency = workerConcurrency
		}
		if err := cfg.Validate("worker"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		w := worker.New(st, p, cfg.Worker)
		if err := w.Start(ctx); err != nil {
			return eris.Wrap(err, "worker run")
		}

		zap.L().Info("worker shut down")
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "concurrent documents (default from config)")
	rootCmd.AddCommand(workerCmd)
}
