package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chars int
		want  int64
	}{
		{name: "zero", chars: 0, want: 0},
		{name: "single char rounds up", chars: 1, want: 1},
		{name: "exact multiple", chars: 36, want: 10},
		{name: "partial token rounds up", chars: 37, want: 11},
		{name: "typical prompt", chars: 1000, want: 278},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InputUsage(tt.chars).Tokens)
			assert.Equal(t, tt.want, OutputUsage(tt.chars).Tokens)
		})
	}
}

func TestMicroDollar(t *testing.T) {
	t.Parallel()

	pricing := DefaultTokenPricing()

	tests := []struct {
		name  string
		usage Usage
		want  int64
	}{
		{name: "zero tokens cost nothing", usage: Usage{Kind: UsageInput, Tokens: 0}, want: 0},
		{name: "one input token rounds up", usage: Usage{Kind: UsageInput, Tokens: 1}, want: 1},
		{name: "one output token rounds up", usage: Usage{Kind: UsageOutput, Tokens: 1}, want: 1},
		{name: "million input tokens", usage: Usage{Kind: UsageInput, Tokens: 1_000_000}, want: 150_000},
		{name: "million output tokens", usage: Usage{Kind: UsageOutput, Tokens: 1_000_000}, want: 600_000},
		{name: "ten thousand input tokens", usage: Usage{Kind: UsageInput, Tokens: 10_000}, want: 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.usage.MicroDollar(pricing))
		})
	}
}

func TestUsageCashFlow(t *testing.T) {
	t.Parallel()

	pricing := DefaultTokenPricing()

	t.Run("input outflow", func(t *testing.T) {
		t.Parallel()
		flow := Usage{Kind: UsageInput, Tokens: 10_000}.CashFlow(pricing)
		assert.EqualValues(t, -1500, flow.Amount)
		assert.Equal(t, OriginAiInputToken, flow.Origin)
		assert.NotZero(t, flow.ID)
	})

	t.Run("output outflow", func(t *testing.T) {
		t.Parallel()
		flow := Usage{Kind: UsageOutput, Tokens: 10_000}.CashFlow(pricing)
		assert.EqualValues(t, -6000, flow.Amount)
		assert.Equal(t, OriginAiOutputToken, flow.Origin)
	})
}
