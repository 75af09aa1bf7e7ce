// Package pipeline orchestrates recipe extraction and per-ingredient item
// resolution, and owns the ingredient state machine transitions.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/assistant"
	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/internal/store"
	"github.com/einkauf-app/einkauf/internal/vendor"
)

// Pipeline drives the recipe → shopping-list resolution.
type Pipeline struct {
	store   store.Store
	asker   assistant.Asker
	vendors *vendor.Registry
}

// New creates a Pipeline.
func New(s store.Store, asker assistant.Asker, vendors *vendor.Registry) *Pipeline {
	return &Pipeline{store: s, asker: asker, vendors: vendors}
}

// ExtractIngredients persists the recipe, extracts a normalized ingredient
// list via the model and persists each ingredient with its requires edge.
func (p *Pipeline) ExtractIngredients(ctx context.Context, username, recipeText string) ([]model.Ingredient, error) {
	recipe := model.Recipe{ID: uuid.New(), Text: recipeText}
	if err := p.store.CreateRecipe(ctx, username, recipe); err != nil {
		zap.L().Error("failed to store recipe", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindInternalServer, "failed to store recipe", err)
	}

	response, err := p.asker.Ask(ctx, username, assistant.ExtractionPrompt(recipeText))
	if err != nil {
		return nil, err
	}

	ingredients, err := assistant.ParseIngredients(response)
	if err != nil {
		return nil, err
	}

	for i := range ingredients {
		ingredients[i].Canonicalize()

		if err := p.store.CreateIngredient(ctx, ingredients[i]); err != nil {
			zap.L().Error("failed to store ingredient", zap.Error(err))
			return nil, apperr.Wrap(apperr.KindInternalServer, "failed to store ingredient", err)
		}
		if err := p.store.LinkRequires(ctx, recipe.ID, ingredients[i].ID, ingredients[i].Quantity, ingredients[i].Unit); err != nil {
			zap.L().Error("failed to link recipe to ingredient", zap.Error(err))
			return nil, apperr.Wrap(apperr.KindInternalServer, "failed to store recipe relation", err)
		}
	}

	return ingredients, nil
}

// SeekItem resolves one ingredient at a vendor: search the catalog, have
// the model pick a candidate and a pieces count, persist the chosen item.
// Vendor transport failures are carried in the returned ingredient's status
// with a nil error; an empty result is a NotFound error; the returned
// ingredient always reflects the terminal state of this attempt.
func (p *Pipeline) SeekItem(ctx context.Context, username string, ingredient model.Ingredient, vendorName string) (model.Ingredient, error) {
	v, err := p.vendors.Get(vendorName)
	if err != nil {
		return ingredient, apperr.Wrap(apperr.KindBadRequest, "unknown vendor", err)
	}

	if ingredient.ID == uuid.Nil {
		ingredient.ID = uuid.New()
	}

	if err := p.store.CreateIngredient(ctx, ingredient); err != nil {
		zap.L().Error("failed to store ingredient", zap.Error(err))
		return ingredient, apperr.Wrap(apperr.KindInternalServer, "failed to store ingredient", err)
	}
	if err := p.store.LinkSeeks(ctx, username, ingredient.ID, ingredient.Quantity, ingredient.Unit, v.Name()); err != nil {
		zap.L().Error("failed to link user to ingredient", zap.Error(err))
		return ingredient, apperr.Wrap(apperr.KindInternalServer, "failed to store seek relation", err)
	}

	if err := v.FindItems(ctx, &ingredient); err != nil {
		return ingredient, apperr.Wrap(apperr.KindInternalServer, "vendor search failed", err)
	}

	switch ingredient.Status.State {
	case model.StateSearchResults:
	case model.StateNoSearchResults:
		return ingredient, apperr.Newf(apperr.KindNotFound, "no products found for %q", ingredient.Name)
	default:
		// ApiSearchFailed: the status carries the reason, the request
		// itself succeeded.
		return ingredient, nil
	}

	response, err := p.asker.Ask(ctx, username, assistant.SelectionPrompt(ingredient))
	if err != nil {
		return ingredient, err
	}
	match, err := assistant.ParseItemMatch(response)
	if err != nil {
		return ingredient, err
	}

	candidates := ingredient.Candidates()
	if match.ItemIndex == nil || *match.ItemIndex < 0 || *match.ItemIndex >= len(candidates) {
		zap.L().Warn("model did not select a usable item",
			zap.String("ingredient", ingredient.Name),
			zap.Any("item_index", match.ItemIndex),
			zap.Int("candidates", len(candidates)),
		)
		ingredient.Status = model.StatusAiRefused(candidates)
		return ingredient, apperr.Newf(apperr.KindInternalServer, "no matching product selected for %q", ingredient.Name)
	}

	chosen := candidates[*match.ItemIndex]
	ingredient.SelectItem(chosen.ID, match.PiecesRequired)

	if err := p.persistMatch(ctx, v.Name(), ingredient); err != nil {
		return ingredient, err
	}
	return ingredient, nil
}

// SelectAlternative replaces the chosen item with another preserved
// candidate, without a model call.
func (p *Pipeline) SelectAlternative(ctx context.Context, ingredient model.Ingredient, itemID uuid.UUID, pieces int64, vendorName string) (model.Ingredient, error) {
	v, err := p.vendors.Get(vendorName)
	if err != nil {
		return ingredient, apperr.Wrap(apperr.KindBadRequest, "unknown vendor", err)
	}

	ingredient.SelectItem(itemID, pieces)
	chosen := ingredient.ChosenItem()
	if chosen == nil || chosen.ID != itemID {
		return ingredient, apperr.New(apperr.KindNotFound, "item is not among the candidates")
	}

	if err := p.persistMatch(ctx, v.Name(), ingredient); err != nil {
		return ingredient, err
	}
	return ingredient, nil
}

// SetPieces adjusts the purchase count of a matched ingredient. Values
// outside [1, 99] leave it unchanged.
func (p *Pipeline) SetPieces(ingredient model.Ingredient, pieces int64) model.Ingredient {
	ingredient.SetPieces(pieces)
	return ingredient
}

func (p *Pipeline) persistMatch(ctx context.Context, vendorName string, ingredient model.Ingredient) error {
	item := ingredient.ChosenItem()
	if item == nil {
		return nil
	}
	if err := p.store.UpsertItem(ctx, vendorName, *item); err != nil {
		zap.L().Error("failed to store item", zap.Error(err))
		return apperr.Wrap(apperr.KindInternalServer, "failed to store item", err)
	}
	if err := p.store.LinkMatches(ctx, item.ID, ingredient.ID); err != nil {
		zap.L().Error("failed to link item to ingredient", zap.Error(err))
		return apperr.Wrap(apperr.KindInternalServer, "failed to store match relation", err)
	}
	return nil
}
