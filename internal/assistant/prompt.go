package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/einkauf-app/einkauf/internal/model"
)

// extractionPrompt constrains the model to a bare JSON array of ingredients
// with canonical German search-term names and the closed unit set.
const extractionPrompt = `Extrahiere alle Zutaten aus dem Rezept.
Übersetze die Zutaten ins Deutsche, wenn nötig.

"name" wird verwendet, um einen Artikel in einer API für Lebensmittelgeschäfte zu suchen. Wenn z. B. im Rezept „gewürfelte Zwiebeln“ steht, sollte der Zutatenname „Zwiebel“ sein, da „gewürfelte Zwiebeln“ kein gängiger Artikel in einem Lebensmittelgeschäft ist und als Suchbegriff nicht funktioniert.
„name“ sollte korrekt großgeschrieben werden, z. B. „Zwiebel“.
Wenn im Rezept z. B. „Eier“ erwähnt werden und die Art des Eis (Huhn, Wachtel, etc.) nicht angegeben ist, gehe von der häufigsten Art aus und wähle den besten Suchbegriff dafür.
Wenn die Zutat z. B. „extra natives Olivenöl“ ist, sollte der Zutatenname „Olivenöl“ lauten, um die Chancen zu erhöhen, dass es über die API gefunden wird.
Wenn der Name der Zutat vage ist, z. B. „Curry“, verwende die angegebene Menge, um zu bestimmen, was gemeint ist. Für 1 TL Curry wäre z. B. der beste Suchbegriff „Currypulver“, nicht nur „Curry“.
Falls dieselbe Zutat mehrfach erwähnt wird, z. B. für Teig und Sauce, dann liste sie nur einmal und addiere die Mengen.

Für "unit" sind einzig und allein diese Werte zulässig: "Gramm", "Kilogramm", "Milliliter", "Liter", "Stück".
"quantity" gibt die Menge der Zutat in der Einheit als Ganzzahl an.
Rechne "unit" und "quantity" entsprechend um, falls die im Rezept angegebene Einheit nicht in der Liste der zulässigen Einheiten ist.

Wenn die Zutat sehr wahrscheinlich in einem normalen Haushalt vorhanden ist, setze "probably_at_home" auf "true".
Beispiele dafür sind Pfeffer, Salz, Zucker, Wasser, Eiswürfel usw.

Antworte im folgenden Format, damit die Antwort geparst werden kann. Verzichte auf Backticks oder andere Formatierung.

[
    {
        "name": "Olivenöl",
        "unit": "Milliliter",
        "quantity": 50,
        "probably_at_home": true
    }
]`

// selectionPrompt constrains the model to a bare JSON object choosing one
// candidate by index, or null when nothing fits.
const selectionPrompt = `Ich gebe dir eine Zutat (Ingredient) für ein Rezept.
Jede Zutat hat eine Liste von Artikelkandidaten. Diese Artikel stammen aus der API eines Supermarktes.
Ich möchte, dass du den besten Artikel für die Zutat auswählst.

item_index ist der nullbasierte Index des Artikels in der Liste.
pieces_required gibt an, wie oft der Artikel gekauft werden muss, um die Menge der Zutat zu decken.

Falls es keine Übereinstimmung für die Zutat gibt, setze item_index auf null.

Antworte im folgenden Format, damit die Antwort geparst werden kann. Verzichte auf Backticks oder andere Formatierung.

{
    "item_index": 0,
    "pieces_required": 1
}`

// ExtractionPrompt embeds the recipe text into the extraction contract.
func ExtractionPrompt(recipeText string) string {
	return fmt.Sprintf("%s\n\nRezept: %s", extractionPrompt, recipeText)
}

// SelectionPrompt embeds the ingredient, its required amount and the
// candidate list into the selection contract.
func SelectionPrompt(ingredient model.Ingredient) string {
	candidates, err := json.Marshal(candidateViews(ingredient.Candidates()))
	if err != nil {
		candidates = []byte("[]")
	}
	return fmt.Sprintf(
		"%s\n\nZutat: %s\n\nBenötigte Menge der Zutat: %d %s\n\nArtikel aus dem Supermarkt: %s",
		selectionPrompt, ingredient.Name, ingredient.Quantity, ingredient.Unit, candidates,
	)
}

// candidateView strips candidate items to what selection needs, keeping the
// prompt short. Indexes are explicit so the model never miscounts.
type candidateView struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Grammage string `json:"grammage,omitempty"`
	Price    string `json:"price,omitempty"`
}

func candidateViews(items []model.Item) []candidateView {
	views := make([]candidateView, 0, len(items))
	for i, item := range items {
		view := candidateView{Index: i, Name: item.Name, Grammage: item.Grammage}
		if item.PriceCent != nil {
			view.Price = item.PriceString() + " €"
		}
		views = append(views, view)
	}
	return views
}

// StripFences removes a leading and trailing Markdown code fence. The
// prompts forbid fences, but models add them anyway often enough that
// parsing tolerates it.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
