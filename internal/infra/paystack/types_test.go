package paystack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: ``, want: ""},
		{raw: `null`, want: ""},
		{raw: `{}`, want: ""},
		{raw: `"PLN_abc"`, want: "PLN_abc"},
		{raw: `{"plan_code":"PLN_xyz","name":"Pro"}`, want: "PLN_xyz"},
		{raw: `42`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlanCode(json.RawMessage(tt.raw)), "raw=%s", tt.raw)
	}
}

func TestParseMetadata(t *testing.T) {
	m := ParseMetadata(json.RawMessage(`{"orgId":"org1","planId":"pro","n":3,"nested":{"a":1}}`))
	assert.Equal(t, "org1", m.Get("orgId"))
	assert.Equal(t, "3", m["n"])
	_, nested := m["nested"]
	assert.False(t, nested)

	m = ParseMetadata(json.RawMessage(`"{\"org_id\":\"org2\"}"`))
	assert.Equal(t, "org2", m.Get("orgId", "org_id"))

	assert.Empty(t, ParseMetadata(json.RawMessage(`""`)))
	assert.Empty(t, ParseMetadata(json.RawMessage(`0`)))
	assert.Empty(t, ParseMetadata(nil))
}

func TestParseTime(t *testing.T) {
	ts := ParseTime("2026-05-01T00:00:00.000Z")
	require.NotNil(t, ts)
	assert.Equal(t, 2026, ts.Year())
	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("tomorrow"))
}
