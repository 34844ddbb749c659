package confidence

// Config holds the tunable constants for confidence scoring. The consistency
// thresholds are calibration parameters, not structural ones, so they live in
// configuration rather than code.
type Config struct {
	// CapRateTolerance is the allowed relative deviation between the stated
	// cap rate and noi/asking_price before a penalty applies.
	CapRateTolerance float64 `yaml:"cap_rate_tolerance" mapstructure:"cap_rate_tolerance"`
	// OccupancyHighWatermark is the occupancy above which claims are treated
	// as suspiciously optimistic.
	OccupancyHighWatermark float64 `yaml:"occupancy_high_watermark" mapstructure:"occupancy_high_watermark"`
	// MaxNOIGrowth is the pro forma NOI growth over in-place NOI beyond which
	// projections are penalized.
	MaxNOIGrowth float64 `yaml:"max_noi_growth" mapstructure:"max_noi_growth"`
	// CriticalCoverageFloor is the fraction of critical fields that must be
	// present before document-level confidence is scaled down.
	CriticalCoverageFloor float64 `yaml:"critical_coverage_floor" mapstructure:"critical_coverage_floor"`

	// Penalty multipliers applied when the corresponding check fails.
	CapRateMismatchPenalty     float64 `yaml:"cap_rate_mismatch_penalty" mapstructure:"cap_rate_mismatch_penalty"`
	OccupancyHighPenalty       float64 `yaml:"occupancy_high_penalty" mapstructure:"occupancy_high_penalty"`
	OccupancyImpossiblePenalty float64 `yaml:"occupancy_impossible_penalty" mapstructure:"occupancy_impossible_penalty"`
	NOIGrowthPenalty           float64 `yaml:"noi_growth_penalty" mapstructure:"noi_growth_penalty"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		CapRateTolerance:           0.005,
		OccupancyHighWatermark:     0.98,
		MaxNOIGrowth:               0.30,
		CriticalCoverageFloor:      0.80,
		CapRateMismatchPenalty:     0.70,
		OccupancyHighPenalty:       0.85,
		OccupancyImpossiblePenalty: 0.50,
		NOIGrowthPenalty:           0.75,
	}
}

// sourceReliability weights confidence by where in an offering memorandum a
// claim appears. Detailed exhibits carry audited-adjacent data; executive
// summaries and marketing overviews carry sales copy.
var sourceReliability = map[string]float64{
	"detailed_exhibits":  1.00,
	"financial_summary":  0.95,
	"rent_roll":          0.95,
	"property_details":   0.90,
	"executive_summary":  0.80,
	"marketing_overview": 0.70,
	"location_overview":  0.75,
}

// valueTypeFactor weights confidence by the nature of the figure: an actual
// beats an estimate beats a projection.
var valueTypeFactor = map[string]float64{
	"actual":          1.00,
	"in_place":        1.00,
	"trailing_12":     0.95,
	"budgeted":        0.85,
	"pro_forma":       0.70,
	"broker_estimate": 0.60,
	"projected":       0.65,
}

// factorOrDefault looks up a factor table, treating unknown labels as neutral.
func factorOrDefault(table map[string]float64, key string) float64 {
	if key == "" {
		return 1.0
	}
	if f, ok := table[key]; ok {
		return f
	}
	return 1.0
}
