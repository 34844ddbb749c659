package redact

import "regexp"

// sanitizePatterns scrub identifying fragments from error strings before they
// are persisted to the queue or document rows. Broader than document
// redaction: also strips UUIDs and file paths, which leak storage layout.
var sanitizePatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), "[CARD]"},
	{regexp.MustCompile(`(?:\+1[ .\-]?)?\(?\d{3}\)?[ .\-]\d{3}[ .\-]\d{4}\b`), "[PHONE]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "[UUID]"},
	{regexp.MustCompile(`(?:/[\w.\-]+){2,}`), "[PATH]"},
}

const maxSanitizedLength = 500

// SanitizeError scrubs PII and identifying fragments from an error message so
// it can be safely persisted. Raw exception text never leaves the process
// boundary unsanitized.
func SanitizeError(msg string) string {
	for _, p := range sanitizePatterns {
		msg = p.re.ReplaceAllString(msg, p.replacement)
	}
	if len(msg) > maxSanitizedLength {
		msg = msg[:maxSanitizedLength]
	}
	return msg
}
