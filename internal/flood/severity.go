// Package flood classifies weather snapshots into prioritized flood and storm
// risk alerts.
package flood

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSeverity is returned when parsing an unrecognised severity name.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity is the ordered importance of an alert. The zero value is Info.
type Severity int

// Severities in ascending order.
const (
	Info Severity = iota
	Warning
	Danger
	Extreme
)

var severityNames = [...]string{
	Info:    "info",
	Warning: "warning",
	Danger:  "danger",
	Extreme: "extreme",
}

// Severities lists every valid severity, lowest first.
func Severities() []Severity {
	return []Severity{Info, Warning, Danger, Extreme}
}

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool {
	return s >= Info && s <= Extreme
}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == key {
			return Severity(i), nil
		}
	}
	return Info, fmt.Errorf("%q: %w", name, ErrUnknownSeverity)
}

// Max returns the higher of two severities.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// MarshalJSON encodes the severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal %d: %w", int(s), ErrUnknownSeverity)
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a lowercase severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
