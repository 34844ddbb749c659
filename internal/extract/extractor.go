// Package extract turns redacted document text into typed field values using
// the Anthropic API, scored against the field catalog for the document type.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/confidence"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/normalize"
	"github.com/sells-group/cre-extract/internal/resilience"
	"github.com/sells-group/cre-extract/pkg/anthropic"
)

// maxPromptAliases caps how many aliases per field are embedded in the prompt.
const maxPromptAliases = 5

const extractSystemText = `You are a commercial real estate analyst extracting structured data from documents. Return a valid JSON object mapping field names to objects of the form {"value": <raw value as it appears>, "confidence": <0.0-1.0>, "page": <page number or 0>, "quote": "<short supporting quote>"}. Only include fields you actually found. Never invent values.`

const omSystemText = `You are a commercial real estate analyst extracting structured data from an offering memorandum. Marketing materials overstate; extract what the document says, not what is plausible. Return a valid JSON object mapping field names to objects of the form {"value": <raw value>, "confidence": <0.0-1.0>, "page": <page number or 0>, "quote": "<short supporting quote>", "source_section": "<one of: executive_summary, financial_summary, rent_roll, property_details, detailed_exhibits, marketing_overview, location_overview>", "value_type": "<one of: actual, in_place, trailing_12, budgeted, pro_forma, broker_estimate, projected>"}. Only include fields you actually found.`

// Config controls the extractor's model selection and retry behavior.
type Config struct {
	Model     string
	MaxTokens int64
	Retry     resilience.RetryConfig
}

// Extractor runs LLM field extraction against the field catalog.
type Extractor struct {
	client  anthropic.Client
	catalog *model.FieldCatalog
	calc    *confidence.Calculator
	cfg     Config
}

// New creates an Extractor. Zero config values fall back to defaults.
func New(client anthropic.Client, catalog *model.FieldCatalog, calc *confidence.Calculator, cfg Config) *Extractor {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Extractor{client: client, catalog: catalog, calc: calc, cfg: cfg}
}

// rawField is the per-field shape requested from the model.
type rawField struct {
	Value         any     `json:"value"`
	Confidence    float64 `json:"confidence"`
	Page          int     `json:"page"`
	Quote         string  `json:"quote"`
	SourceSection string  `json:"source_section"`
	ValueType     string  `json:"value_type"`
}

// Extract pulls typed fields out of document text for the given industry and
// document type. Fields the catalog does not know are dropped; values that
// fail normalization are kept with a null value so the raw text survives.
func (e *Extractor) Extract(ctx context.Context, text, industry, documentType string) (*model.ExtractionResult, error) {
	fs, ok := e.catalog.FieldSet(industry, documentType)
	if !ok {
		return nil, eris.Errorf("extract: no field set for industry %s", industry)
	}

	isOM := documentType == "offering_memorandum"
	prompt := buildPrompt(fs, documentType, text, isOM)

	systemText := extractSystemText
	if isOM {
		systemText = omSystemText
	}

	retryCfg := e.cfg.Retry
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = resilience.RetryLogger("anthropic", "extract_fields")
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.cfg.Model,
			MaxTokens: e.cfg.MaxTokens,
			System:    []anthropic.SystemBlock{{Text: systemText}},
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(e.cfg.Model, "extract_fields")

	raw := map[string]rawField{}
	cleaned := cleanJSON(extractText(resp))
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "extract: parse response JSON")
	}

	fields := make(map[string]model.ExtractedField, len(raw))
	for name, rf := range raw {
		def, known := fs.Fields[name]
		if !known {
			// The model sometimes invents field names; never let them through.
			zap.L().Debug("extract: dropping unknown field",
				zap.String("field", name),
				zap.String("document_type", documentType),
			)
			continue
		}

		fields[name] = model.ExtractedField{
			Name:          name,
			Value:         normalize.Value(rf.Value, def),
			RawValue:      rawString(rf.Value),
			Confidence:    confidence.Cap(rf.Confidence),
			Page:          rf.Page,
			Quote:         rf.Quote,
			SourceSection: rf.SourceSection,
			ValueType:     rf.ValueType,
		}
	}

	result := &model.ExtractionResult{
		Fields:       fields,
		DocumentType: documentType,
	}

	if isOM {
		e.adjustOM(fields, fs)
		result.OverallConfidence = e.calc.OMOverall(fields, fs)
	} else {
		result.OverallConfidence = e.calc.Overall(fields, fs)
	}

	zap.L().Info("extract: fields extracted",
		zap.String("document_type", documentType),
		zap.Int("fields", len(fields)),
		zap.Float64("overall_confidence", result.OverallConfidence),
	)
	return result, nil
}

// buildPrompt embeds the field catalog and the document text.
func buildPrompt(fs model.FieldSet, documentType, text string, isOM bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document type: %s\n\nFields to extract:\n", documentType)

	for _, name := range sortedFieldNames(fs) {
		def := fs.Fields[name]
		fmt.Fprintf(&b, "- %s (%s", name, def.Type)
		if def.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
		if len(def.AllowedValues) > 0 {
			fmt.Fprintf(&b, " one of: %s", strings.Join(def.AllowedValues, ", "))
		}
		if len(def.Aliases) > 0 {
			aliases := def.Aliases
			if len(aliases) > maxPromptAliases {
				aliases = aliases[:maxPromptAliases]
			}
			fmt.Fprintf(&b, " aka: %s", strings.Join(aliases, " | "))
		}
		b.WriteString("\n")
	}

	if isOM {
		b.WriteString("\nFor every field also report source_section and value_type as instructed.\n")
	}

	b.WriteString("\nDocument text:\n")
	b.WriteString(text)
	return b.String()
}

func sortedFieldNames(fs model.FieldSet) []string {
	names := make([]string, 0, len(fs.Fields))
	for name := range fs.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rawString preserves the model's raw value as text for auditing.
func rawString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// extractText concatenates the text blocks of a response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
