package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_MasksPII(t *testing.T) {
	r := New(ModeMask)

	in := "Guarantor John Smith, SSN 123-45-6789, reachable at jsmith@gmail.com or 555-867-5309."
	out, entities := r.Redact(in)

	assert.NotContains(t, out, "123-45-6789")
	assert.NotContains(t, out, "jsmith@gmail.com")
	assert.NotContains(t, out, "555-867-5309")
	assert.Contains(t, out, "[SSN]")
	assert.Contains(t, out, "[EMAIL]")
	assert.Contains(t, out, "[PHONE]")
	assert.Len(t, entities, 3)
}

func TestRedact_Idempotent(t *testing.T) {
	r := New(ModeMask)

	in := "Contact ssn 123-45-6789 and card 4111 1111 1111 1111."
	once, _ := r.Redact(in)
	twice, _ := r.Redact(once)
	assert.Equal(t, once, twice)
}

func TestRedact_NeverLeaks(t *testing.T) {
	r := New(ModeMask)

	inputs := []string{
		"email hidden@example.org somewhere",
		"social 987-65-4320 in a guaranty clause",
		"call me at (415) 555-0199 after hours",
	}
	secrets := []string{"hidden@example.org", "987-65-4320", "(415) 555-0199"}

	for i, in := range inputs {
		out, _ := r.Redact(in)
		assert.False(t, strings.Contains(out, secrets[i]), "input %d leaked: %s", i, out)
	}
}

func TestRedact_PropertyAddressException(t *testing.T) {
	r := New(ModeMask)

	// Phone-shaped digits in a property description survive: suite and parcel
	// groupings near address indicators are not personal data.
	in := "The subject property located at 450 Market Street, Suite 210-555-1200 comprises the leased premises."
	out, _ := r.Redact(in)
	assert.Equal(t, in, out)
}

func TestRedact_BusinessContactException(t *testing.T) {
	r := New(ModeMask, WithAllowedDomains("cbre.com"))

	in := "For more information contact our leasing broker at deals@cbre.com or 212-555-0100."
	out, _ := r.Redact(in)
	assert.Contains(t, out, "deals@cbre.com")
	assert.Contains(t, out, "212-555-0100")
}

func TestRedact_CompanyNameException(t *testing.T) {
	r := New(ModeMask)

	in := "Landlord: Oakridge Properties LLC, 312-555-7100, shall maintain the common areas."
	out, _ := r.Redact(in)
	assert.Contains(t, out, "Oakridge Properties LLC")
	assert.Contains(t, out, "312-555-7100")
}

func TestRedact_HashMode(t *testing.T) {
	r := New(ModeHash)

	out, entities := r.Redact("reach me at someone@gmail.com today")
	require.Len(t, entities, 1)
	assert.NotContains(t, out, "someone@gmail.com")
	assert.Contains(t, out, "[EMAIL:")

	// Same input hashes to the same token: referential identity preserved.
	out2, _ := r.Redact("reach me at someone@gmail.com today")
	assert.Equal(t, out, out2)
}

func TestRedact_NoneMode(t *testing.T) {
	r := New(ModeNone)
	in := "ssn 123-45-6789"
	out, entities := r.Redact(in)
	assert.Equal(t, in, out)
	assert.Nil(t, entities)
}

func TestSanitizeError(t *testing.T) {
	in := "download failed for /var/data/tenants/acme/lease.pdf: auth for user bob@corp.io from 10.1.2.3 (doc 2d9317b4-70f1-4a9c-8c2e-1f2a3b4c5d6e)"
	out := SanitizeError(in)

	assert.NotContains(t, out, "bob@corp.io")
	assert.NotContains(t, out, "10.1.2.3")
	assert.NotContains(t, out, "/var/data/tenants")
	assert.NotContains(t, out, "2d9317b4-70f1-4a9c-8c2e-1f2a3b4c5d6e")
	assert.Contains(t, out, "[EMAIL]")
	assert.Contains(t, out, "[PATH]")
	assert.Contains(t, out, "[UUID]")
}

func TestSanitizeError_Truncates(t *testing.T) {
	long := strings.Repeat("x", 2000)
	assert.Len(t, SanitizeError(long), 500)
}
