// Package preferences stores per-session dashboard preferences.
package preferences

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Well-known preference keys.
const (
	// KeyAlertSoundEnabled toggles alert sounds.
	KeyAlertSoundEnabled = "alert_sound_enabled"

	// KeyAlertVolume is the alert gain in [0, 1].
	KeyAlertVolume = "alert_volume"

	// KeyLastLocation is the last location query the dashboard refreshed.
	KeyLastLocation = "last_location"

	// KeyTheme is the dashboard color theme.
	KeyTheme = "theme"
)

// Default values.
const (
	DefaultAlertSoundEnabled = true
	DefaultAlertVolume       = 0.3
	DefaultLastLocation      = "Hanoi"
	DefaultTheme             = "light"
)

const maxLocationLength = 100

// Preference errors.
var (
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrUnknownKey         = errors.New("unknown preference key")
	ErrInvalidValue       = errors.New("invalid preference value")
)

// Preference is a single stored preference value for an owner.
type Preference struct {
	OwnerID   string    `json:"-"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// PreferenceList represents a list of preferences.
type PreferenceList struct {
	Items []Preference `json:"items"`
}

// Defaults returns the default value of every known preference.
func Defaults() map[string]any {
	return map[string]any{
		KeyAlertSoundEnabled: DefaultAlertSoundEnabled,
		KeyAlertVolume:       DefaultAlertVolume,
		KeyLastLocation:      DefaultLastLocation,
		KeyTheme:             DefaultTheme,
	}
}

// Keys returns the known preference keys in a stable order.
func Keys() []string {
	return []string{KeyAlertSoundEnabled, KeyAlertVolume, KeyLastLocation, KeyTheme}
}

// Validate checks value against the rules for key and returns the
// canonical value to store. JSON numbers arrive as float64.
func Validate(key string, value any) (any, error) {
	switch key {
	case KeyAlertSoundEnabled:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidValue, key)
		}
		return b, nil

	case KeyAlertVolume:
		var v float64
		switch n := value.(type) {
		case float64:
			v = n
		case int:
			v = float64(n)
		default:
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, key)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: %s must be between 0 and 1", ErrInvalidValue, key)
		}
		return v, nil

	case KeyLastLocation:
		s, ok := value.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidValue, key)
		}
		if len([]rune(s)) > maxLocationLength {
			return nil, fmt.Errorf("%w: %s is too long", ErrInvalidValue, key)
		}
		return s, nil

	case KeyTheme:
		s, ok := value.(string)
		if !ok || (s != "light" && s != "dark") {
			return nil, fmt.Errorf("%w: %s must be \"light\" or \"dark\"", ErrInvalidValue, key)
		}
		return s, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// BoolValue returns the preference value as a boolean.
func (p *Preference) BoolValue(defaultValue bool) bool {
	if p == nil || p.Value == nil {
		return defaultValue
	}
	if b, ok := p.Value.(bool); ok {
		return b
	}
	return defaultValue
}

// FloatValue returns the preference value as a float64.
func (p *Preference) FloatValue(defaultValue float64) float64 {
	if p == nil || p.Value == nil {
		return defaultValue
	}
	switch v := p.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultValue
}

// StringValue returns the preference value as a string.
func (p *Preference) StringValue(defaultValue string) string {
	if p == nil || p.Value == nil {
		return defaultValue
	}
	if s, ok := p.Value.(string); ok {
		return s
	}
	return defaultValue
}
