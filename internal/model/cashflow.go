package model

import (
	"math"

	"github.com/google/uuid"
)

// CashFlowOrigin tags where a ledger entry came from.
type CashFlowOrigin string

const (
	OriginAiInputToken  CashFlowOrigin = "ai_input_token"
	OriginAiOutputToken CashFlowOrigin = "ai_output_token"
	OriginPrivateAssets CashFlowOrigin = "private_assets"
	OriginDonation      CashFlowOrigin = "donation"
)

// CashFlow is one immutable ledger row. Amount is in micro-dollars;
// outflows are negative, inflows positive.
type CashFlow struct {
	ID     uuid.UUID      `json:"id"`
	Amount int64          `json:"amount"`
	Origin CashFlowOrigin `json:"origin"`
}

// UsageKind distinguishes input from output token usage.
type UsageKind int

const (
	UsageInput UsageKind = iota
	UsageOutput
)

// Origin maps the usage kind to its cash flow origin.
func (k UsageKind) Origin() CashFlowOrigin {
	if k == UsageOutput {
		return OriginAiOutputToken
	}
	return OriginAiInputToken
}

// charsPerToken is the fixed character-to-token estimate. Together with the
// per-million-token prices it defines what one dollar of usage means; it is
// a contract, not a measured cost.
const charsPerToken = 3.6

// Usage is one token-usage segment of a model call.
type Usage struct {
	Kind   UsageKind
	Tokens int64
}

// InputUsage estimates input tokens from the prompt character count.
func InputUsage(chars int) Usage {
	return Usage{Kind: UsageInput, Tokens: estimateTokens(chars)}
}

// OutputUsage estimates output tokens from the response character count.
func OutputUsage(chars int) Usage {
	return Usage{Kind: UsageOutput, Tokens: estimateTokens(chars)}
}

func estimateTokens(chars int) int64 {
	return int64(math.Ceil(float64(chars) / charsPerToken))
}

// TokenPricing holds the per-million-token price units. A unit is
// dollar-cents times 10^4, so a cost works out in micro-dollars.
type TokenPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultTokenPricing returns the contract prices: 15 input, 60 output.
func DefaultTokenPricing() TokenPricing {
	return TokenPricing{InputPerMTok: 15, OutputPerMTok: 60}
}

// MicroDollar computes the cost of the usage in micro-dollars, rounded up.
func (u Usage) MicroDollar(p TokenPricing) int64 {
	rate := p.InputPerMTok
	if u.Kind == UsageOutput {
		rate = p.OutputPerMTok
	}
	return int64(math.Ceil(float64(u.Tokens) / 1_000_000.0 * rate * 10_000.0))
}

// CashFlow renders the usage as a ledger outflow (negative amount).
func (u Usage) CashFlow(p TokenPricing) CashFlow {
	return CashFlow{
		ID:     uuid.New(),
		Amount: -u.MicroDollar(p),
		Origin: u.Kind.Origin(),
	}
}
