package assistant

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/model"
)

// extractedIngredient is the wire shape of one extraction result record.
type extractedIngredient struct {
	Name           string     `json:"name"`
	Unit           model.Unit `json:"unit"`
	Quantity       int64      `json:"quantity"`
	ProbablyAtHome bool       `json:"probably_at_home"`
}

// ParseIngredients parses the extraction response into fresh ingredients in
// the initial state. A malformed response is a BadRequest: the contract was
// broken, retrying with the same recipe may well succeed.
func ParseIngredients(response string) ([]model.Ingredient, error) {
	var extracted []extractedIngredient
	if err := json.Unmarshal([]byte(StripFences(response)), &extracted); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "failed to parse extracted ingredients", err)
	}

	ingredients := make([]model.Ingredient, 0, len(extracted))
	for _, e := range extracted {
		if e.Quantity < 0 {
			return nil, apperr.Newf(apperr.KindBadRequest, "negative quantity for %q", e.Name)
		}
		ingredients = append(ingredients, model.Ingredient{
			ID:             uuid.New(),
			Name:           e.Name,
			ProbablyAtHome: e.ProbablyAtHome,
			Unit:           e.Unit,
			Quantity:       e.Quantity,
			Status:         model.StatusUnchecked(),
		})
	}
	return ingredients, nil
}

// ItemMatch is the selection response: a zero-based candidate index, or
// null when the model judged no candidate fits.
type ItemMatch struct {
	ItemIndex      *int  `json:"item_index"`
	PiecesRequired int64 `json:"pieces_required"`
}

// ParseItemMatch parses the selection response.
func ParseItemMatch(response string) (*ItemMatch, error) {
	var match ItemMatch
	if err := json.Unmarshal([]byte(StripFences(response)), &match); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "failed to parse item selection", err)
	}
	return &match, nil
}
