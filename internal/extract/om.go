package extract

import (
	"github.com/sells-group/cre-extract/internal/model"
)

// adjustOM applies the offering-memorandum skepticism stack in place. The
// consistency penalties are computed first over the full field set, then each
// field's confidence is rescored with its own penalty.
func (e *Extractor) adjustOM(fields map[string]model.ExtractedField, fs model.FieldSet) {
	penalties := e.calc.ConsistencyPenalties(fields)

	for name, f := range fields {
		penalty := 1.0
		if p, ok := penalties[name]; ok {
			penalty = p
		}
		f.Confidence = e.calc.AdjustOMField(f, fs.Fields[name], penalty)
		fields[name] = f
	}
}
