// Package redact detects and masks PII in document text before it crosses the
// process boundary (to the LLM or into persisted error strings). Detection is
// regex-based with commercial-real-estate exceptions: property addresses,
// company names, and business contacts are the subject matter of these
// documents, not PII, and must survive redaction.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Mode selects how detected spans are replaced.
type Mode string

const (
	// ModeMask replaces spans with a fixed per-type token.
	ModeMask Mode = "mask"
	// ModeHash replaces spans with a truncated SHA-256 digest, preserving
	// referential identity across occurrences.
	ModeHash Mode = "hash"
	// ModeNone is a no-op, for internal trusted contexts only.
	ModeNone Mode = "none"
)

// EntityType labels a detected span.
type EntityType string

const (
	EntityEmail EntityType = "email"
	EntityPhone EntityType = "phone"
	EntitySSN   EntityType = "ssn"
	EntityCard  EntityType = "credit_card"
	EntityIP    EntityType = "ip_address"
)

// Entity is a detected PII span. Text is retained in memory for exception
// checks but is never logged.
type Entity struct {
	Type  EntityType
	Start int
	End   int
	text  string
}

var patterns = []struct {
	typ EntityType
	re  *regexp.Regexp
}{
	{EntityEmail, regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{EntitySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{EntityCard, regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{EntityPhone, regexp.MustCompile(`(?:\+1[ .\-]?)?\(?\d{3}\)?[ .\-]\d{3}[ .\-]\d{4}\b`)},
	{EntityIP, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
}

var maskTokens = map[EntityType]string{
	EntityEmail: "[EMAIL]",
	EntityPhone: "[PHONE]",
	EntitySSN:   "[SSN]",
	EntityCard:  "[CARD]",
	EntityIP:    "[IP]",
}

// addressIndicators mark text near which phone-like or name-like spans are
// part of a property description rather than personal data.
var addressIndicators = []string{
	"property address", "premises", "located at", "subject property",
	"site address", "the property", "leased premises",
}

// companyIndicators and entitySuffixes identify business names.
var companyIndicators = []string{
	"landlord", "tenant", "lessor", "lessee", "owner", "borrower",
	"managed by", "broker", "brokerage", "listing agent",
}

var entitySuffixes = []string{
	"llc", "l.l.c", "inc", "inc.", "corp", "corp.", "lp", "l.p.",
	"ltd", "company", "co.", "partners", "holdings", "properties",
	"group", "trust", "reit", "associates",
}

// businessContextPhrases mark emails/phones that belong to a business
// contact block (broker contact info on an OM cover, landlord notices
// address in a lease) and are intentionally public.
var businessContextPhrases = []string{
	"for more information", "contact", "inquiries", "leasing", "broker",
	"listing", "notices to landlord", "notices to tenant", "property manager",
}

// Redactor detects and masks PII with CRE-domain exceptions.
type Redactor struct {
	mode            Mode
	allowedDomains  map[string]bool
	proximityWindow int
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithAllowedDomains adds email domains that are never redacted (e.g. the
// brokerages and property managers a tenant works with).
func WithAllowedDomains(domains ...string) Option {
	return func(r *Redactor) {
		for _, d := range domains {
			r.allowedDomains[strings.ToLower(d)] = true
		}
	}
}

// New creates a Redactor for the given mode.
func New(mode Mode, opts ...Option) *Redactor {
	r := &Redactor{
		mode:            mode,
		allowedDomains:  make(map[string]bool),
		proximityWindow: 120,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redact returns the input with detected PII replaced per the configured
// mode, plus the entities that were redacted. It is idempotent: redacting
// already-redacted text is a no-op. Only entity-type counts are logged.
func (r *Redactor) Redact(text string) (string, []Entity) {
	if r.mode == ModeNone || text == "" {
		return text, nil
	}

	entities := r.detect(text)
	if len(entities) == 0 {
		return text, nil
	}

	// Replace back-to-front so earlier offsets stay valid.
	sort.Slice(entities, func(i, j int) bool { return entities[i].Start > entities[j].Start })

	var b strings.Builder
	out := text
	for _, e := range entities {
		replacement := maskTokens[e.Type]
		if r.mode == ModeHash {
			sum := sha256.Sum256([]byte(e.text))
			replacement = "[" + strings.ToUpper(string(e.Type)) + ":" + hex.EncodeToString(sum[:])[:12] + "]"
		}
		b.Reset()
		b.WriteString(out[:e.Start])
		b.WriteString(replacement)
		b.WriteString(out[e.End:])
		out = b.String()
	}

	counts := make(map[EntityType]int, len(entities))
	for _, e := range entities {
		counts[e.Type]++
	}
	logFields := make([]zap.Field, 0, len(counts)+1)
	logFields = append(logFields, zap.String("mode", string(r.mode)))
	for typ, n := range counts {
		logFields = append(logFields, zap.Int(string(typ), n))
	}
	zap.L().Info("redact: masked entities", logFields...)

	// Restore entity order for the caller.
	sort.Slice(entities, func(i, j int) bool { return entities[i].Start < entities[j].Start })
	return out, entities
}

// detect finds PII spans and filters out CRE exceptions. Overlapping matches
// keep the earliest longest span.
func (r *Redactor) detect(text string) []Entity {
	lower := strings.ToLower(text)
	var found []Entity

	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			e := Entity{Type: p.typ, Start: loc[0], End: loc[1], text: text[loc[0]:loc[1]]}
			if r.isException(lower, e) {
				continue
			}
			found = append(found, e)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].End > found[j].End
	})

	var out []Entity
	lastEnd := -1
	for _, e := range found {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}

// isException reports whether the span falls under a CRE-domain carve-out.
func (r *Redactor) isException(lower string, e Entity) bool {
	switch e.Type {
	case EntityEmail:
		if at := strings.LastIndex(e.text, "@"); at >= 0 {
			if r.allowedDomains[strings.ToLower(e.text[at+1:])] {
				return true
			}
		}
		return r.nearAny(lower, e, businessContextPhrases)
	case EntityPhone:
		// Phones in a business-contact or property-description context stay.
		return r.nearAny(lower, e, businessContextPhrases) ||
			r.nearAny(lower, e, addressIndicators) ||
			r.nearCompanyName(lower, e)
	case EntityCard:
		// Long digit runs near address indicators are usually parcel or zip
		// groupings, not card numbers.
		return r.nearAny(lower, e, addressIndicators)
	}
	return false
}

// nearAny reports whether any phrase occurs within the proximity window
// around the span.
func (r *Redactor) nearAny(lower string, e Entity, phrases []string) bool {
	start := e.Start - r.proximityWindow
	if start < 0 {
		start = 0
	}
	end := e.End + r.proximityWindow
	if end > len(lower) {
		end = len(lower)
	}
	window := lower[start:end]
	for _, phrase := range phrases {
		if strings.Contains(window, phrase) {
			return true
		}
	}
	return false
}

// nearCompanyName reports whether the span sits near a business-entity suffix
// or a company indicator.
func (r *Redactor) nearCompanyName(lower string, e Entity) bool {
	if r.nearAny(lower, e, companyIndicators) {
		return true
	}
	start := e.Start - r.proximityWindow
	if start < 0 {
		start = 0
	}
	window := lower[start:e.Start]
	for _, suffix := range entitySuffixes {
		if strings.Contains(window, " "+suffix) || strings.Contains(window, suffix+",") {
			return true
		}
	}
	return false
}
