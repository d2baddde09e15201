// Package pricing converts normalized usage into money. Cost tracking is
// best effort: an unknown provider/model pair prices at zero instead of
// failing the request.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/gmsas95/playground/internal/llm"
)

// costPrecision is the fractional digit count for per-call costs. Six
// digits keeps sub-cent calls representable without drift.
const costPrecision = 6

// Rate holds per-unit input/output prices in USD. For token-accounted
// backends a unit is one token; for duration-accounted backends one
// millisecond.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Breakdown is the cost of one generation call. TotalCost is always the
// exact sum of the two components.
type Breakdown struct {
	InputCost  decimal.Decimal `json:"input_cost"`
	OutputCost decimal.Decimal `json:"output_cost"`
	TotalCost  decimal.Decimal `json:"total_cost"`
}

func ZeroBreakdown() Breakdown {
	return Breakdown{
		InputCost:  decimal.Zero,
		OutputCost: decimal.Zero,
		TotalCost:  decimal.Zero,
	}
}

// Table maps provider → model → rate. Read-only after construction.
type Table map[string]map[string]Rate

// Calculator derives cost breakdowns from a static rate table.
type Calculator struct {
	table Table
}

func NewCalculator(table Table) *Calculator {
	if table == nil {
		table = Table{}
	}
	return &Calculator{table: table}
}

// Compute prices the given usage. Providers or models absent from the table
// yield a zero breakdown.
func (c *Calculator) Compute(provider, model string, usage llm.Usage) Breakdown {
	models, ok := c.table[provider]
	if !ok {
		return ZeroBreakdown()
	}
	rate, ok := models[model]
	if !ok {
		return ZeroBreakdown()
	}

	inputCost := decimal.NewFromInt(usage.InputUnits).Mul(rate.Input).Round(costPrecision)
	outputCost := decimal.NewFromInt(usage.OutputUnits).Mul(rate.Output).Round(costPrecision)

	return Breakdown{
		InputCost:  inputCost,
		OutputCost: outputCost,
		TotalCost:  inputCost.Add(outputCost),
	}
}
