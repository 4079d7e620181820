package deck

import "encoding/json"

type deckJSON struct {
	Seed  string `json:"seed"`
	Cards []Card `json:"cards"`
}

// MarshalJSON encodes the seed and the undealt remainder so a persisted
// hand state reconstructs to a deck with identical subsequent behavior.
func (d *Deck) MarshalJSON() ([]byte, error) {
	return json.Marshal(deckJSON{Seed: d.seed, Cards: d.cards})
}

// UnmarshalJSON restores a deck from its persisted form.
func (d *Deck) UnmarshalJSON(data []byte) error {
	var dj deckJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return err
	}
	d.seed = dj.Seed
	d.cards = dj.Cards
	return nil
}
