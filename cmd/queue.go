package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/model"
)

var (
	queueDeadLimit  int
	enqueuePriority int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the processing queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.GetQueueStats(ctx, cfg.Worker.MaxAttempts)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var queueDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List dead-lettered items",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.ListDeadLetters(ctx, cfg.Worker.MaxAttempts, queueDeadLimit)
		if err != nil {
			return err
		}
		if items == nil {
			items = []model.QueueItem{}
		}
		return printJSON(items)
	},
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue <item-id>",
	Short: "Return a dead-lettered item to pending with a fresh attempt budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		item, err := st.RequeueDeadLetter(ctx, args[0], cfg.Worker.MaxAttempts)
		if err != nil {
			return err
		}

		zap.L().Info("item requeued",
			zap.String("item_id", item.ID),
			zap.String("document_id", item.DocumentID),
		)
		return printJSON(item)
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <document-id>",
	Short: "Enqueue a document for processing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		item, err := st.Enqueue(ctx, args[0], enqueuePriority)
		if err != nil {
			return err
		}

		zap.L().Info("document enqueued",
			zap.String("item_id", item.ID),
			zap.String("document_id", item.DocumentID),
			zap.Int("priority", item.Priority),
		)
		return printJSON(item)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	queueDeadCmd.Flags().IntVar(&queueDeadLimit, "limit", 50, "max items to list")
	queueAddCmd.Flags().IntVar(&enqueuePriority, "priority", 0, "queue priority (higher first)")
	queueCmd.AddCommand(queueStatsCmd, queueDeadCmd, queueRequeueCmd, queueAddCmd)
	rootCmd.AddCommand(queueCmd)
}
