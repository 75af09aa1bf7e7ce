package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/internal/store/storetest"
	"github.com/einkauf-app/einkauf/internal/vendor"
)

// fakeAsker returns a canned response and records the prompts it saw.
type fakeAsker struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAsker) Ask(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeVendor writes a fixed status into the ingredient.
type fakeVendor struct {
	status model.IngredientStatus
}

func (f *fakeVendor) Name() string { return "rewe" }

func (f *fakeVendor) FindItems(_ context.Context, ingredient *model.Ingredient) error {
	ingredient.Status = f.status
	return nil
}

func searchCandidates() []model.Item {
	price := int64(119)
	return []model.Item{
		{ID: uuid.New(), Name: "Weizenmehl Type 405", Grammage: "1kg", PriceCent: &price},
		{ID: uuid.New(), Name: "Dinkelmehl", Grammage: "1kg"},
	}
}

func newPipeline(fake *storetest.Fake, asker *fakeAsker, v vendor.Vendor) *Pipeline {
	return New(fake, asker, vendor.NewRegistry(v))
}

func TestExtractIngredients(t *testing.T) {
	t.Parallel()

	t.Run("persists recipe and canonicalized ingredients", func(t *testing.T) {
		t.Parallel()
		fake := storetest.New()
		asker := &fakeAsker{response: `[
			{"name": "Mehl", "unit": "Gramm", "quantity": 500, "probably_at_home": false},
			{"name": "Milch", "unit": "Milliliter", "quantity": 250, "probably_at_home": true}
		]`}
		p := newPipeline(fake, asker, &fakeVendor{})

		ingredients, err := p.ExtractIngredients(context.Background(), "alice", "Pfannkuchen: 500g Mehl, 250ml Milch")
		require.NoError(t, err)
		require.Len(t, ingredients, 2)

		assert.Equal(t, "Weizenmehl", ingredients[0].Name)
		assert.Equal(t, "Milch", ingredients[1].Name)
		assert.Equal(t, model.StateUnchecked, ingredients[0].Status.State)

		require.Len(t, fake.Recipes, 1)
		assert.Equal(t, "Pfannkuchen: 500g Mehl, 250ml Milch", fake.Recipes[0].Text)
		assert.Equal(t, 1, fake.SubmitsEdges)
		assert.Len(t, fake.Ingredients, 2)
		assert.Equal(t, 2, fake.RequiresEdges)

		require.Len(t, asker.prompts, 1)
		assert.True(t, strings.HasSuffix(asker.prompts[0], "Rezept: Pfannkuchen: 500g Mehl, 250ml Milch"))
	})

	t.Run("asker error propagates and stores nothing further", func(t *testing.T) {
		t.Parallel()
		fake := storetest.New()
		asker := &fakeAsker{err: apperr.New(apperr.KindPaymentRequired, "user daily budget exceeded")}
		p := newPipeline(fake, asker, &fakeVendor{})

		_, err := p.ExtractIngredients(context.Background(), "alice", "Rezept")
		require.Error(t, err)
		assert.Equal(t, apperr.KindPaymentRequired, apperr.KindOf(err))

		// The recipe write precedes the model call; no ingredients follow.
		assert.Len(t, fake.Recipes, 1)
		assert.Empty(t, fake.Ingredients)
	})

	t.Run("malformed extraction is bad request", func(t *testing.T) {
		t.Parallel()
		fake := storetest.New()
		asker := &fakeAsker{response: "Hier sind die Zutaten."}
		p := newPipeline(fake, asker, &fakeVendor{})

		_, err := p.ExtractIngredients(context.Background(), "alice", "Rezept")
		require.Error(t, err)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		assert.Empty(t, fake.Ingredients)
	})
}

func TestSeekItem(t *testing.T) {
	t.Parallel()

	t.Run("matches the selected candidate", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		fake := storetest.New()
		asker := &fakeAsker{response: `{"item_index": 0, "pieces_required": 2}`}
		p := newPipeline(fake, asker, &fakeVendor{status: model.StatusSearchResults(candidates)})

		ingredient := model.Ingredient{Name: "Weizenmehl", Unit: model.UnitGram, Quantity: 500, Status: model.StatusUnchecked()}
		got, err := p.SeekItem(context.Background(), "alice", ingredient, "rewe")
		require.NoError(t, err)

		assert.Equal(t, model.StateMatched, got.Status.State)
		require.NotNil(t, got.ChosenItem())
		assert.Equal(t, candidates[0].ID, got.ChosenItem().ID)
		assert.EqualValues(t, 2, got.Status.Pieces)
		assert.Len(t, got.Candidates(), 2)

		assert.NotEqual(t, uuid.Nil, got.ID)
		assert.Equal(t, 1, fake.SeeksEdges)
		assert.Len(t, fake.Items, 1)
		assert.Equal(t, 1, fake.MatchesEdges)

		require.Len(t, asker.prompts, 1)
		assert.Contains(t, asker.prompts[0], "Weizenmehl Type 405")
	})

	t.Run("pieces below one become one", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		asker := &fakeAsker{response: `{"item_index": 1, "pieces_required": 0}`}
		p := newPipeline(storetest.New(), asker, &fakeVendor{status: model.StatusSearchResults(candidates)})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Mehl"}, "rewe")
		require.NoError(t, err)
		assert.EqualValues(t, 1, got.Status.Pieces)
	})

	t.Run("empty search is not found without a model call", func(t *testing.T) {
		t.Parallel()
		fake := storetest.New()
		asker := &fakeAsker{response: "unused"}
		p := newPipeline(fake, asker, &fakeVendor{status: model.StatusNoSearchResults()})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Einhornstaub"}, "rewe")
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "Einhornstaub")
		assert.Equal(t, model.StateNoSearchResults, got.Status.State)
		assert.Empty(t, asker.prompts)
		assert.Empty(t, fake.Items)
	})

	t.Run("vendor transport failure is carried in the status", func(t *testing.T) {
		t.Parallel()
		asker := &fakeAsker{response: "unused"}
		failed := model.StatusSearchFailed("Die Anfrage an Rewe ist fehlgeschlagen")
		p := newPipeline(storetest.New(), asker, &fakeVendor{status: failed})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Mehl"}, "rewe")
		require.NoError(t, err)
		assert.Equal(t, model.StateApiSearchFailed, got.Status.State)
		assert.Equal(t, "Die Anfrage an Rewe ist fehlgeschlagen", got.Status.Error)
		assert.Empty(t, asker.prompts)
	})

	t.Run("model refusal keeps the candidates", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		fake := storetest.New()
		asker := &fakeAsker{response: `{"item_index": null, "pieces_required": 0}`}
		p := newPipeline(fake, asker, &fakeVendor{status: model.StatusSearchResults(candidates)})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Mehl"}, "rewe")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternalServer, apperr.KindOf(err))
		assert.Equal(t, model.StateAiRefusedToMatch, got.Status.State)
		assert.Len(t, got.Candidates(), 2)
		assert.Empty(t, fake.Items)
	})

	t.Run("out of range index is a refusal", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		asker := &fakeAsker{response: `{"item_index": 7, "pieces_required": 1}`}
		p := newPipeline(storetest.New(), asker, &fakeVendor{status: model.StatusSearchResults(candidates)})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Mehl"}, "rewe")
		require.Error(t, err)
		assert.Equal(t, model.StateAiRefusedToMatch, got.Status.State)
	})

	t.Run("unknown vendor is bad request", func(t *testing.T) {
		t.Parallel()
		p := newPipeline(storetest.New(), &fakeAsker{}, &fakeVendor{})

		_, err := p.SeekItem(context.Background(), "alice", model.Ingredient{Name: "Mehl"}, "edeka")
		require.Error(t, err)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	})

	t.Run("keeps a preexisting ingredient id", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		asker := &fakeAsker{response: `{"item_index": 0, "pieces_required": 1}`}
		p := newPipeline(storetest.New(), asker, &fakeVendor{status: model.StatusSearchResults(searchCandidates())})

		got, err := p.SeekItem(context.Background(), "alice", model.Ingredient{ID: id, Name: "Mehl"}, "rewe")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	})
}

func TestSelectAlternative(t *testing.T) {
	t.Parallel()

	t.Run("switches the match without a model call", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		fake := storetest.New()
		asker := &fakeAsker{}
		p := newPipeline(fake, asker, &fakeVendor{})

		ingredient := model.Ingredient{ID: uuid.New(), Name: "Mehl", Status: model.StatusMatched(candidates[0], 1, candidates)}
		got, err := p.SelectAlternative(context.Background(), ingredient, candidates[1].ID, 3, "rewe")
		require.NoError(t, err)

		require.NotNil(t, got.ChosenItem())
		assert.Equal(t, candidates[1].ID, got.ChosenItem().ID)
		assert.EqualValues(t, 3, got.Status.Pieces)
		assert.Empty(t, asker.prompts)
		assert.Len(t, fake.Items, 1)
		assert.Equal(t, 1, fake.MatchesEdges)
	})

	t.Run("foreign item id is not found", func(t *testing.T) {
		t.Parallel()
		candidates := searchCandidates()
		p := newPipeline(storetest.New(), &fakeAsker{}, &fakeVendor{})

		ingredient := model.Ingredient{Status: model.StatusAiRefused(candidates)}
		_, err := p.SelectAlternative(context.Background(), ingredient, uuid.New(), 1, "rewe")
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestSetPieces(t *testing.T) {
	t.Parallel()

	candidates := searchCandidates()
	p := newPipeline(storetest.New(), &fakeAsker{}, &fakeVendor{})

	ingredient := model.Ingredient{Status: model.StatusMatched(candidates[0], 2, candidates)}

	got := p.SetPieces(ingredient, 5)
	assert.EqualValues(t, 5, got.Status.Pieces)

	got = p.SetPieces(got, 100)
	assert.EqualValues(t, 5, got.Status.Pieces)
}
