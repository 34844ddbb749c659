package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFieldCatalog(t *testing.T) {
	c, err := DefaultFieldCatalog()
	require.NoError(t, err)

	fs, ok := c.FieldSet("commercial_real_estate", "lease")
	require.True(t, ok)
	assert.Contains(t, fs.Fields, "base_rent_monthly")
	assert.Equal(t, FieldTypeCurrency, fs.Fields["base_rent_monthly"].Type)
	assert.True(t, fs.Fields["tenant_name"].Required)

	om, ok := c.FieldSet("commercial_real_estate", "offering_memorandum")
	require.True(t, ok)
	assert.NotEmpty(t, om.Critical)
	assert.Contains(t, om.Critical, "asking_price")
	for name, def := range om.Fields {
		assert.LessOrEqual(t, def.EffectiveSkepticism(), 1.0, "field %s", name)
		assert.Greater(t, def.EffectiveSkepticism(), 0.0, "field %s", name)
	}
}

func TestFieldCatalog_FallbackToOther(t *testing.T) {
	c, err := DefaultFieldCatalog()
	require.NoError(t, err)

	fs, ok := c.FieldSet("commercial_real_estate", "appraisal")
	require.True(t, ok)
	assert.Contains(t, fs.Fields, "document_title")

	_, ok = c.FieldSet("healthcare", "lease")
	assert.False(t, ok)
}

func TestLoadFieldCatalog_Invalid(t *testing.T) {
	_, err := LoadFieldCatalog([]byte("industries: {}"))
	require.Error(t, err)

	_, err = LoadFieldCatalog([]byte("{not yaml"))
	require.Error(t, err)
}

func TestFieldDefinition_Defaults(t *testing.T) {
	var d FieldDefinition
	assert.Equal(t, 1.0, d.EffectiveWeight())
	assert.Equal(t, 1.0, d.EffectiveSkepticism())

	d = FieldDefinition{Weight: 2.0, Skepticism: 0.8}
	assert.Equal(t, 2.0, d.EffectiveWeight())
	assert.Equal(t, 0.8, d.EffectiveSkepticism())
}
