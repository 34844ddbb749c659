package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/confidence"
	"github.com/sells-group/cre-extract/pkg/anthropic"
)

// detectSnippetLength is how much of the document's head gets sent for
// classification. The opening pages carry the title block and cover letter,
// which is where document type is decided.
const detectSnippetLength = 2000

const detectSystemText = `You classify commercial real estate documents. Return a valid JSON object: {"document_type": "<type>", "confidence": <0.0-1.0>}.`

// DetectDocumentType classifies a document from its opening text. It never
// returns an error: any failure degrades to ("other", 0.0) so the pipeline
// can still run the fallback field set.
func (e *Extractor) DetectDocumentType(ctx context.Context, text, industry string) (string, float64) {
	known := e.catalog.DocumentTypes(industry)
	if len(known) == 0 {
		return "other", 0.0
	}

	snippet := truncateRunes(text, detectSnippetLength)

	prompt := fmt.Sprintf(`Classify this document as one of: %s

Document opening:
%s`, strings.Join(known, ", "), snippet)

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: 256,
		System:    []anthropic.SystemBlock{{Text: detectSystemText}},
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		zap.L().Warn("extract: document type detection failed", zap.Error(err))
		return "other", 0.0
	}
	resp.Usage.LogCost(e.cfg.Model, "detect_document_type")

	var parsed struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &parsed); err != nil {
		zap.L().Warn("extract: document type response unparseable", zap.Error(err))
		return "other", 0.0
	}

	for _, t := range known {
		if t == parsed.DocumentType {
			return t, confidence.Cap(parsed.Confidence)
		}
	}

	zap.L().Debug("extract: unknown document type from model",
		zap.String("document_type", parsed.DocumentType),
	)
	return "other", 0.0
}

// truncateRunes cuts s to at most max bytes without splitting a UTF-8
// sequence.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
