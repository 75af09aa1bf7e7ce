// Package assistant wraps one chat completion round with input validation,
// budget gating and cost attribution.
package assistant

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/budget"
	"github.com/einkauf-app/einkauf/internal/ledger"
	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/pkg/openai"
)

// DefaultMaxChars is the prompt character ceiling.
const DefaultMaxChars = 16_000

// The system message frames every conversation. German, because the users
// and the retailer catalog are German.
const systemMessage = `Du bist in eine Rezept-Webanwendung integriert. Benutzer geben Rezepte ein, und du extrahierst die Zutaten.
Anschließend ruft die App eine API eines Lebensmittelgeschäfts auf und versucht, passende Zutaten zu finden.
Du hilfst dabei, die beste Übereinstimmung für die Zutaten zu finden.
Du kennst dich sehr gut mit Lebensmitteln aus und kannst die besten Artikel für die Zutaten auswählen.`

// Asker is the model-facing surface the pipeline depends on.
type Asker interface {
	Ask(ctx context.Context, username, prompt string) (string, error)
}

// Assistant is the production Asker.
type Assistant struct {
	client   openai.Client
	guard    *budget.Guard
	ledger   *ledger.Ledger
	maxChars int
}

// New creates an Assistant. maxChars <= 0 selects DefaultMaxChars.
func New(client openai.Client, guard *budget.Guard, l *ledger.Ledger, maxChars int) *Assistant {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Assistant{client: client, guard: guard, ledger: l, maxChars: maxChars}
}

// Ask performs one completion round for the user. Budget refusals propagate
// unchanged and nothing is retried. The ledger write after a successful
// response is best-effort: a failure is logged, the response still returned,
// accepting that the usage escapes the budget.
func (a *Assistant) Ask(ctx context.Context, username, prompt string) (string, error) {
	input := strings.TrimSpace(prompt)
	if input == "" {
		zap.L().Warn("empty prompt", zap.String("user", username))
		return "", apperr.New(apperr.KindBadRequest, "empty prompt")
	}

	inputChars := utf8.RuneCountInString(input)
	if inputChars > a.maxChars {
		zap.L().Warn("prompt too long",
			zap.String("user", username),
			zap.Int("chars", inputChars),
			zap.Int("max_chars", a.maxChars),
		)
		return "", apperr.New(apperr.KindPayloadTooLarge, "prompt exceeds character limit")
	}

	if err := a.guard.Check(ctx, username); err != nil {
		return "", err
	}

	resp, err := a.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: openai.RoleSystem, Content: systemMessage},
			{Role: openai.RoleUser, Content: input},
		},
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalServer, "model call failed", err)
	}
	if len(resp.Choices) == 0 {
		zap.L().Warn("model returned no choices", zap.String("user", username))
		return "", apperr.New(apperr.KindInternalServer, "model returned no choices")
	}
	output := resp.Choices[0].Message.Content
	if output == "" {
		zap.L().Warn("model returned empty content", zap.String("user", username))
		return "", apperr.New(apperr.KindInternalServer, "model returned empty content")
	}

	usages := []model.Usage{
		model.InputUsage(inputChars),
		model.OutputUsage(utf8.RuneCountInString(output)),
	}
	if err := a.ledger.AttributeCosts(ctx, username, usages); err != nil {
		zap.L().Error("failed to attribute model costs",
			zap.String("user", username),
			zap.Error(err),
		)
	}

	return output, nil
}
