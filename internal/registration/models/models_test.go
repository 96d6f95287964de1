package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" ENTRY ")
	require.NoError(t, err)
	assert.Equal(t, DirectionEntry, d)

	d, err = ParseDirection("exit")
	require.NoError(t, err)
	assert.Equal(t, DirectionExit, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
	_, err = ParseDirection("")
	assert.Error(t, err)
}

func TestRegistrationExtraFieldsSurviveJSON(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	original := &Registration{
		RegistrationID: "ENTRY-1741944413000",
		Type:           DirectionEntry,
		Timestamp:      ts,
		PlateData:      PlateData{PlateNumber: "12345-A-6", Confidence: 0.9},
		Extra: map[string]any{
			"gate":          "north",
			"operatorNotes": "manual check",
			"type":          "ignored: shadows a core field",
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "north", flat["gate"], "extra fields are flattened")
	assert.Equal(t, "entry", flat["type"], "core fields win over extra keys")
	assert.NotContains(t, flat, "Extra")

	var decoded Registration
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "north", decoded.Extra["gate"])
	assert.Equal(t, "manual check", decoded.Extra["operatorNotes"])
	assert.NotContains(t, decoded.Extra, "type")
	assert.Equal(t, original.RegistrationID, decoded.RegistrationID)
	assert.True(t, ts.Equal(decoded.Timestamp))
	assert.Equal(t, original.PlateData, decoded.PlateData)
}

func TestRegistrationWithoutExtraHasNilMap(t *testing.T) {
	raw := []byte(`{"registrationId":"X","type":"exit","timestamp":"2025-01-01T00:00:00Z","identityData":{},"plateData":{}}`)
	var r Registration
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Nil(t, r.Extra)
	assert.Equal(t, DirectionExit, r.Type)
}

func TestClone(t *testing.T) {
	r := &Registration{
		RegistrationID: "A",
		Images:         &Images{IDCard: "card.jpg"},
		Extra:          map[string]any{"k": "v"},
	}
	c := r.Clone()
	c.Images.IDCard = "other.jpg"
	c.Extra["k"] = "changed"

	assert.Equal(t, "card.jpg", r.Images.IDCard)
	assert.Equal(t, "v", r.Extra["k"])
}

func TestQueryMatches(t *testing.T) {
	r := &Registration{
		IdentityData: IdentityData{IDNumber: "AB123"},
		PlateData:    PlateData{PlateNumber: "12345-A-6"},
	}

	assert.True(t, Query{}.IsEmpty())
	assert.True(t, Query{PlateNumber: "12345-a-6"}.Matches(r))
	assert.True(t, Query{PlateNumber: "12345-A-6", IDNumber: "AB123"}.Matches(r))
	assert.False(t, Query{PlateNumber: "12345-A-6", IDNumber: "ZZ999"}.Matches(r))
	assert.False(t, Query{IDNumber: "ZZ999"}.Matches(r))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	got := StartOfDay(time.Date(2025, 6, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, loc), got)
}
