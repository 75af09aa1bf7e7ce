package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	t.Parallel()

	for _, u := range Units() {
		t.Run(string(u), func(t *testing.T) {
			t.Parallel()
			got, err := ParseUnit(string(u))
			require.NoError(t, err)
			assert.Equal(t, u, got)
		})
	}

	t.Run("rejects unknown unit", func(t *testing.T) {
		t.Parallel()
		_, err := ParseUnit("Pfund")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid unit")
	})

	t.Run("rejects lowercase", func(t *testing.T) {
		t.Parallel()
		_, err := ParseUnit("gramm")
		assert.Error(t, err)
	})
}

func TestUnitUnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		var u Unit
		require.NoError(t, json.Unmarshal([]byte(`"Stück"`), &u))
		assert.Equal(t, UnitPiece, u)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		var u Unit
		assert.Error(t, json.Unmarshal([]byte(`"Tasse"`), &u))
	})

	t.Run("non-string", func(t *testing.T) {
		t.Parallel()
		var u Unit
		assert.Error(t, json.Unmarshal([]byte(`5`), &u))
	})
}
