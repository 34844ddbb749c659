// Package confidence computes per-field and per-document extraction
// confidence, including the skepticism adjustments applied to offering
// memoranda, where stated figures are marketing claims until proven otherwise.
package confidence

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/model"
)

// Calculator scores extraction confidence. It is pure computation over
// already-normalized values; the zero-ish construction via New is cheap and
// safe for concurrent use.
type Calculator struct {
	cfg Config
}

// New creates a Calculator. Zero thresholds in cfg fall back to defaults.
func New(cfg Config) *Calculator {
	def := DefaultConfig()
	if cfg.CapRateTolerance <= 0 {
		cfg.CapRateTolerance = def.CapRateTolerance
	}
	if cfg.OccupancyHighWatermark <= 0 {
		cfg.OccupancyHighWatermark = def.OccupancyHighWatermark
	}
	if cfg.MaxNOIGrowth <= 0 {
		cfg.MaxNOIGrowth = def.MaxNOIGrowth
	}
	if cfg.CriticalCoverageFloor <= 0 {
		cfg.CriticalCoverageFloor = def.CriticalCoverageFloor
	}
	if cfg.CapRateMismatchPenalty <= 0 {
		cfg.CapRateMismatchPenalty = def.CapRateMismatchPenalty
	}
	if cfg.OccupancyHighPenalty <= 0 {
		cfg.OccupancyHighPenalty = def.OccupancyHighPenalty
	}
	if cfg.OccupancyImpossiblePenalty <= 0 {
		cfg.OccupancyImpossiblePenalty = def.OccupancyImpossiblePenalty
	}
	if cfg.NOIGrowthPenalty <= 0 {
		cfg.NOIGrowthPenalty = def.NOIGrowthPenalty
	}
	return &Calculator{cfg: cfg}
}

// Cap clamps a confidence into [0, MaxConfidence].
func Cap(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > model.MaxConfidence {
		return model.MaxConfidence
	}
	return c
}

// Overall computes the weighted mean of per-field confidences using the
// catalog weights. Returns exactly 0.0 when no fields were extracted.
func (c *Calculator) Overall(fields map[string]model.ExtractedField, fs model.FieldSet) float64 {
	if len(fields) == 0 {
		return 0.0
	}

	var weightedSum, totalWeight float64
	for name, f := range fields {
		w := fs.Fields[name].EffectiveWeight()
		weightedSum += f.Confidence * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0.0
	}
	return Cap(weightedSum / totalWeight)
}

// AdjustOMField applies the offering-memorandum skepticism stack to a single
// field: source-section reliability, value-type discount, the field's own
// configured skepticism, and any cross-field consistency penalty.
func (c *Calculator) AdjustOMField(f model.ExtractedField, def model.FieldDefinition, penalty float64) float64 {
	adjusted := f.Confidence *
		factorOrDefault(sourceReliability, f.SourceSection) *
		factorOrDefault(valueTypeFactor, f.ValueType) *
		def.EffectiveSkepticism() *
		penalty
	return Cap(adjusted)
}

// ConsistencyPenalties cross-checks arithmetic relationships among extracted
// OM fields and returns a penalty multiplier per field name (1.0 = no
// penalty). This is the one place extracted values police each other.
func (c *Calculator) ConsistencyPenalties(fields map[string]model.ExtractedField) map[string]float64 {
	penalties := make(map[string]float64)
	apply := func(name string, p float64) {
		if cur, ok := penalties[name]; !ok || p < cur {
			penalties[name] = p
		}
	}

	noi, hasNOI := numericField(fields, "noi_in_place")
	price, hasPrice := numericField(fields, "asking_price")
	capRate, hasCap := numericField(fields, "cap_rate")

	// noi / asking_price should agree with the stated cap rate.
	if hasNOI && hasPrice && hasCap && price > 0 && capRate > 0 {
		implied := noi / price
		deviation := math.Abs(implied-capRate) / capRate
		if deviation > c.cfg.CapRateTolerance {
			zap.L().Debug("confidence: cap rate inconsistent with noi/price",
				zap.Float64("stated", capRate),
				zap.Float64("implied", implied),
				zap.Float64("deviation", deviation),
			)
			apply("cap_rate", c.cfg.CapRateMismatchPenalty)
			apply("noi_in_place", c.cfg.CapRateMismatchPenalty)
			apply("asking_price", c.cfg.CapRateMismatchPenalty)
		}
	}

	// Occupancy above 100% is impossible; above the high watermark it is
	// merely suspicious.
	if occ, ok := numericField(fields, "occupancy_current"); ok {
		switch {
		case occ > 1.0:
			apply("occupancy_current", c.cfg.OccupancyImpossiblePenalty)
		case occ > c.cfg.OccupancyHighWatermark:
			apply("occupancy_current", c.cfg.OccupancyHighPenalty)
		}
	}

	// Pro forma NOI growth beyond the thresholded fraction of in-place NOI is
	// a projection, not a plan.
	if hasNOI && noi > 0 {
		if proForma, ok := numericField(fields, "noi_pro_forma"); ok {
			growth := (proForma - noi) / noi
			if growth > c.cfg.MaxNOIGrowth {
				apply("noi_pro_forma", c.cfg.NOIGrowthPenalty)
			}
		}
	}

	return penalties
}

// OMOverall computes document-level confidence for an offering memorandum:
// the weighted mean, additionally scaled when critical-field coverage falls
// below the configured floor.
func (c *Calculator) OMOverall(fields map[string]model.ExtractedField, fs model.FieldSet) float64 {
	base := c.Overall(fields, fs)
	if len(fs.Critical) == 0 {
		return base
	}

	present := 0
	for _, name := range fs.Critical {
		if f, ok := fields[name]; ok && f.Value != nil {
			present++
		}
	}
	coverage := float64(present) / float64(len(fs.Critical))
	if coverage < c.cfg.CriticalCoverageFloor {
		base *= 0.5 + 0.5*coverage
	}
	return Cap(base)
}

// numericField extracts a float value for a field, tolerating int values.
func numericField(fields map[string]model.ExtractedField, name string) (float64, bool) {
	f, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
