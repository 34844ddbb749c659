package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var processCmd = &cobra.Command{
	Use:   "process <document-id>",
	Short: "Run the extraction pipeline for a single document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("process"); err != nil {
			return err
		}
		ctx := cmd.Context()
		documentID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		result := p.Process(ctx, documentID)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode result")
		}

		if result.Failed() {
			return eris.Errorf("document %s failed: %s", documentID, result.Error)
		}

		zap.L().Info("document processed",
			zap.String("document_id", documentID),
			zap.String("extraction_id", result.ExtractionID),
			zap.Float64("overall_confidence", result.OverallConfidence),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
