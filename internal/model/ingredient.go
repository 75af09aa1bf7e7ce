package model

import (
	"github.com/google/uuid"
)

// StatusState discriminates the ingredient lifecycle states.
type StatusState string

const (
	StateUnchecked        StatusState = "unchecked"
	StateApiSearchFailed  StatusState = "api_search_failed"
	StateNoSearchResults  StatusState = "no_search_results"
	StateSearchResults    StatusState = "search_results"
	StateAiRefusedToMatch StatusState = "ai_refused_to_match"
	StateMatched          StatusState = "matched"
)

// IngredientStatus is a discriminated union over the lifecycle states.
// Only the fields belonging to the current state are populated:
//
//	api_search_failed:   Error
//	search_results:      Alternatives
//	ai_refused_to_match: Alternatives
//	matched:             Item, Pieces, Alternatives
type IngredientStatus struct {
	State        StatusState `json:"state"`
	Error        string      `json:"error,omitempty"`
	Item         *Item       `json:"item,omitempty"`
	Pieces       int64       `json:"pieces,omitempty"`
	Alternatives []Item      `json:"alternatives,omitempty"`
}

// StatusUnchecked is the initial state.
func StatusUnchecked() IngredientStatus {
	return IngredientStatus{State: StateUnchecked}
}

// StatusSearchFailed records a vendor transport or decode failure.
func StatusSearchFailed(reason string) IngredientStatus {
	return IngredientStatus{State: StateApiSearchFailed, Error: reason}
}

// StatusNoSearchResults records an empty vendor result.
func StatusNoSearchResults() IngredientStatus {
	return IngredientStatus{State: StateNoSearchResults}
}

// StatusSearchResults records the candidate list returned by the vendor.
func StatusSearchResults(items []Item) IngredientStatus {
	return IngredientStatus{State: StateSearchResults, Alternatives: items}
}

// StatusAiRefused records that no candidate was selected; the candidate
// list is preserved so the user can pick manually.
func StatusAiRefused(items []Item) IngredientStatus {
	return IngredientStatus{State: StateAiRefusedToMatch, Alternatives: items}
}

// StatusMatched records the chosen item, the purchase count and the full
// candidate list for later re-selection.
func StatusMatched(item Item, pieces int64, alternatives []Item) IngredientStatus {
	return IngredientStatus{State: StateMatched, Item: &item, Pieces: pieces, Alternatives: alternatives}
}

// Ingredient is the central entity of the resolution pipeline.
type Ingredient struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	ProbablyAtHome bool             `json:"probably_at_home"`
	Unit           Unit             `json:"unit"`
	Quantity       int64            `json:"quantity"`
	Status         IngredientStatus `json:"status"`
}

// Candidates returns the preserved candidate list of the current state.
func (i *Ingredient) Candidates() []Item {
	return i.Status.Alternatives
}

// ChosenItem returns the matched item, nil unless the state is matched.
func (i *Ingredient) ChosenItem() *Item {
	if i.Status.State != StateMatched {
		return nil
	}
	return i.Status.Item
}

// SelectItem moves the ingredient to matched with the candidate identified
// by id. It is a no-op when id is not in the preserved candidate list or the
// current state carries no candidates. Pieces below 1 are raised to 1.
func (i *Ingredient) SelectItem(id uuid.UUID, pieces int64) {
	switch i.Status.State {
	case StateSearchResults, StateAiRefusedToMatch, StateMatched:
	default:
		return
	}
	if pieces < 1 {
		pieces = 1
	}
	for _, item := range i.Status.Alternatives {
		if item.ID == id {
			i.Status = StatusMatched(item, pieces, i.Status.Alternatives)
			return
		}
	}
}

// SetPieces updates the purchase count of a matched ingredient. Values
// outside [1, 99] leave the stored count unchanged.
func (i *Ingredient) SetPieces(pieces int64) {
	if pieces < 1 || pieces > 99 {
		return
	}
	if i.Status.State == StateMatched {
		i.Status.Pieces = pieces
	}
}

// PriceTotal returns the total price of the matched item, 0 otherwise.
func (i *Ingredient) PriceTotal() float64 {
	if i.Status.State != StateMatched || i.Status.Item == nil {
		return 0
	}
	return i.Status.Item.PriceTotal(i.Status.Pieces)
}

// ingredientNameMappings rewrites extracted names into terms the retailer
// search finds reliably. Keys never appear as values of other keys, so the
// rewrite is idempotent.
var ingredientNameMappings = map[string]string{
	"Mehl":   "Weizenmehl",
	"Salz":   "Speisesalz",
	"Ei":     "Eier",
	"Eigelb": "Eier",
	"Eiweiß": "Eier",
}

// Canonicalize rewrites the ingredient name via the mapping table.
func (i *Ingredient) Canonicalize() {
	if mapped, ok := ingredientNameMappings[i.Name]; ok {
		i.Name = mapped
	}
}
