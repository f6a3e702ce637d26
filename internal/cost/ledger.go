// Package cost tracks token usage and enforces the generation budget.
// The ledger is the only piece of mutable state shared across concurrent
// section generation, so all access is mutex-guarded.
package cost

import (
	"fmt"
	"sync"
)

// ModelPrice holds per-million-token USD prices for one model.
type ModelPrice struct {
	PromptUSD     float64
	CompletionUSD float64
}

// defaultPrices covers the models the pipeline is configured with; unknown
// models fall back to the most expensive entry so budget checks stay safe.
var defaultPrices = map[string]ModelPrice{
	"gpt-4o":      {PromptUSD: 2.50, CompletionUSD: 10.00},
	"gpt-4o-mini": {PromptUSD: 0.15, CompletionUSD: 0.60},
	"mock":        {PromptUSD: 0, CompletionUSD: 0},
}

// TokenCounts accumulates prompt/completion token totals.
type TokenCounts struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Add accumulates counts in place.
func (c *TokenCounts) Add(prompt, completion int) {
	c.Prompt += prompt
	c.Completion += completion
}

// BudgetDecision says whether further generation is allowed.
type BudgetDecision struct {
	Allowed bool
	Reason  string
}

// Ledger is a context-scoped usage accumulator handed into the generation
// orchestrator. A zero budget disables the limit.
type Ledger struct {
	mu        sync.Mutex
	budgetUSD float64
	totalUSD  float64
	byModel   map[string]TokenCounts
	prices    map[string]ModelPrice
}

// NewLedger creates a ledger with the given budget in USD (0 = unlimited).
func NewLedger(budgetUSD float64) *Ledger {
	return &Ledger{
		budgetUSD: budgetUSD,
		byModel:   make(map[string]TokenCounts),
		prices:    defaultPrices,
	}
}

// AddUsage records one completion's token usage against the running total.
func (l *Ledger) AddUsage(model string, promptTokens, completionTokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := l.byModel[model]
	counts.Add(promptTokens, completionTokens)
	l.byModel[model] = counts

	price := l.priceFor(model)
	l.totalUSD += float64(promptTokens)/1e6*price.PromptUSD +
		float64(completionTokens)/1e6*price.CompletionUSD
}

// TotalCostUSD returns the running cost total.
func (l *Ledger) TotalCostUSD() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalUSD
}

// CheckBudget gates the generation loop before the first attempt.
func (l *Ledger) CheckBudget() BudgetDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.budgetUSD <= 0 {
		return BudgetDecision{Allowed: true}
	}
	if l.totalUSD >= l.budgetUSD {
		return BudgetDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("running total $%.4f exceeds budget $%.2f", l.totalUSD, l.budgetUSD),
		}
	}
	return BudgetDecision{Allowed: true}
}

// UsageByModel returns a copy of per-model token counts.
func (l *Ledger) UsageByModel() map[string]TokenCounts {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]TokenCounts, len(l.byModel))
	for model, counts := range l.byModel {
		out[model] = counts
	}
	return out
}

func (l *Ledger) priceFor(model string) ModelPrice {
	if price, ok := l.prices[model]; ok {
		return price
	}
	// Unknown model: charge the highest known rate.
	var max ModelPrice
	for _, price := range l.prices {
		if price.CompletionUSD > max.CompletionUSD {
			max = price
		}
	}
	return max
}
