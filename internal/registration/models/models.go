// Package models holds the registration record and its read models.
package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Direction tells whether a vehicle is entering or leaving the checkpoint.
type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// ParseDirection accepts "entry"/"exit" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionEntry, DirectionExit:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q: must be entry or exit", s)
	}
}

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionEntry || d == DirectionExit
}

// IdentityConfidence holds per-field scores from the identity extractor.
type IdentityConfidence struct {
	IDNumber  float64 `json:"idNumber"`
	FirstName float64 `json:"firstName"`
	LastName  float64 `json:"lastName"`
}

// IdentityData is what was read from the ID card.
type IdentityData struct {
	IDNumber   string             `json:"idNumber"`
	FirstName  string             `json:"firstName"`
	LastName   string             `json:"lastName"`
	FullName   string             `json:"fullName"`
	Confidence IdentityConfidence `json:"confidence"`
}

// PlateData is what was read from the vehicle image.
type PlateData struct {
	PlateNumber string  `json:"plateNumber"`
	Confidence  float64 `json:"confidence"`
}

// Images references the stored source images, when a caller stored them.
type Images struct {
	IDCard  string `json:"idCard,omitempty"`
	Vehicle string `json:"vehicle,omitempty"`
}

// Registration is one checkpoint passage. Extra carries caller-supplied
// fields; they are flattened into the top-level JSON object and survive a
// round trip through the store.
type Registration struct {
	RegistrationID string         `json:"registrationId"`
	Type           Direction      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	IdentityData   IdentityData   `json:"identityData"`
	PlateData      PlateData      `json:"plateData"`
	Images         *Images        `json:"images,omitempty"`
	Extra          map[string]any `json:"-"`
}

// registrationFields is Registration without its methods, so the JSON
// methods below can reuse the default encoding.
type registrationFields Registration

var coreKeys = map[string]struct{}{
	"registrationId": {},
	"type":           {},
	"timestamp":      {},
	"identityData":   {},
	"plateData":      {},
	"images":         {},
}

// MarshalJSON writes the core fields and then every Extra key that does not
// shadow one of them.
func (r Registration) MarshalJSON() ([]byte, error) {
	core, err := json.Marshal(registrationFields(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return core, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(core, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, reserved := coreKeys[k]; reserved {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal extra field %q: %w", k, err)
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the core fields and collects everything else into Extra.
func (r *Registration) UnmarshalJSON(data []byte) error {
	var core registrationFields
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, raw := range all {
		if _, reserved := coreKeys[k]; reserved {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("unmarshal extra field %q: %w", k, err)
		}
		if core.Extra == nil {
			core.Extra = make(map[string]any)
		}
		core.Extra[k] = v
	}

	*r = Registration(core)
	return nil
}

// Clone returns a copy that shares no maps or pointers with r.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	if r.Images != nil {
		images := *r.Images
		c.Images = &images
	}
	if r.Extra != nil {
		c.Extra = maps.Clone(r.Extra)
	}
	return &c
}

// Stats summarizes the registration collection.
type Stats struct {
	Total              int64      `json:"total"`
	EntryCount         int64      `json:"entryCount"`
	ExitCount          int64      `json:"exitCount"`
	UniqueVehicleCount int64      `json:"uniqueVehicleCount"`
	UniquePersonCount  int64      `json:"uniquePersonCount"`
	TodayEntryCount    int64      `json:"todayEntryCount"`
	TodayExitCount     int64      `json:"todayExitCount"`
	LatestTimestamp    *time.Time `json:"latestTimestamp"`
}

// Query filters registrations by plate number and/or id number. Empty fields
// do not constrain the result.
type Query struct {
	PlateNumber string
	IDNumber    string
}

// IsEmpty reports whether the query has no criteria.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.PlateNumber) == "" && strings.TrimSpace(q.IDNumber) == ""
}

// Matches reports whether r satisfies every non-empty criterion.
func (q Query) Matches(r *Registration) bool {
	if p := strings.TrimSpace(q.PlateNumber); p != "" && !strings.EqualFold(p, r.PlateData.PlateNumber) {
		return false
	}
	if id := strings.TrimSpace(q.IDNumber); id != "" && !strings.EqualFold(id, r.IdentityData.IDNumber) {
		return false
	}
	return true
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
