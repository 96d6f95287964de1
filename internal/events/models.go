// Package events publishes registration, notification and error events to
// the message broker.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"checkpoint/internal/registration/models"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel maps s onto a known level. Anything unrecognized is info.
func ParseLevel(s string) Level {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelWarning, LevelError:
		return l
	case "warn":
		return LevelWarning
	default:
		return LevelInfo
	}
}

// PublishedAtField is the key RegistrationEvent adds to the record's JSON.
// Record extras must not use it.
const PublishedAtField = "publishedAt"

// RegistrationEvent is a registration record stamped with its publish time.
// It encodes as the record's own JSON object plus a publishedAt key.
type RegistrationEvent struct {
	Registration *models.Registration
	PublishedAt  time.Time
}

func (e RegistrationEvent) MarshalJSON() ([]byte, error) {
	if e.Registration == nil {
		return nil, fmt.Errorf("registration event without a registration")
	}
	body, err := json.Marshal(e.Registration)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	stamp, err := json.Marshal(e.PublishedAt)
	if err != nil {
		return nil, err
	}
	fields[PublishedAtField] = stamp
	return json.Marshal(fields)
}

func (e *RegistrationEvent) UnmarshalJSON(data []byte) error {
	var stamp struct {
		PublishedAt time.Time `json:"publishedAt"`
	}
	if err := json.Unmarshal(data, &stamp); err != nil {
		return err
	}
	var r models.Registration
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	delete(r.Extra, PublishedAtField)
	if len(r.Extra) == 0 {
		r.Extra = nil
	}
	e.Registration = &r
	e.PublishedAt = stamp.PublishedAt
	return nil
}

// NotificationEvent is a human-readable status message for operators.
type NotificationEvent struct {
	Message   string         `json:"message"`
	Level     Level          `json:"level"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// ErrorEvent reports a failure somewhere in the pipeline.
type ErrorEvent struct {
	Error     string         `json:"error"`
	Source    string         `json:"source"`
	Service   string         `json:"service"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}
