package deck

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a card as its two-character string form. Persisted
// hand state must round-trip exactly, and the compact form keeps stored
// snapshots readable.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a card from its two-character string form.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("card must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
