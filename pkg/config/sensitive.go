package config

import "encoding/json"

// SensitiveString holds a secret that must never reach logs or serialized
// output. Use Value() at the single point the secret is consumed.
type SensitiveString string

const redactedPlaceholder = "[REDACTED]"

// String returns a redacted form; fmt and logging see this.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redactedPlaceholder
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON serializes the redacted form, never the secret.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads the raw value from config files.
func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}
