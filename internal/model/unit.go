package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Unit is a grocery quantity unit. The wire names are German because both
// the extraction prompt and the frontend speak German.
type Unit string

const (
	UnitGram       Unit = "Gramm"
	UnitKilogram   Unit = "Kilogramm"
	UnitMilliliter Unit = "Milliliter"
	UnitLiter      Unit = "Liter"
	UnitPiece      Unit = "Stück"
)

// Units lists every valid unit.
func Units() []Unit {
	return []Unit{UnitGram, UnitKilogram, UnitMilliliter, UnitLiter, UnitPiece}
}

// ParseUnit validates s against the closed unit set.
func ParseUnit(s string) (Unit, error) {
	for _, u := range Units() {
		if s == string(u) {
			return u, nil
		}
	}
	return "", eris.Errorf("model: invalid unit %q", s)
}

// UnmarshalJSON rejects units outside the closed set.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: unmarshal unit")
	}
	parsed, err := ParseUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
