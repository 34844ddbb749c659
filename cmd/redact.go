package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/redact"
)

var redactMode string

var redactCmd = &cobra.Command{
	Use:   "redact <file>",
	Short: "Redact PII in a local text file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := redact.Mode(redactMode)
		switch mode {
		case redact.ModeMask, redact.ModeHash, redact.ModeNone:
		default:
			return eris.Errorf("invalid mode %q: must be mask, hash, or none", redactMode)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		r := redact.New(mode, redact.WithAllowedDomains(cfg.Redaction.AllowedDomains...))
		redacted, entities := r.Redact(string(data))

		counts := map[redact.EntityType]int{}
		for _, e := range entities {
			counts[e.Type]++
		}
		zap.L().Info("redaction complete",
			zap.Int("entities", len(entities)),
			zap.Any("by_type", counts),
		)

		fmt.Print(redacted)
		return nil
	},
}

func init() {
	redactCmd.Flags().StringVar(&redactMode, "mode", "mask", "redaction mode: mask, hash, or none")
	rootCmd.AddCommand(redactCmd)
}
