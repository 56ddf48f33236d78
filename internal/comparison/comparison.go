// Package comparison computes best/worst/average price comparisons
// across a product's sources (§4.6).
package comparison

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// numericValue extracts a comparable float from a stored value, per
// §4.6's "from {amount:...} strings, from {number: n}, from bare
// numeric JSON, from parseable strings; unparseable -> +Inf" rule.
func numericValue(raw []byte) float64 {
	if len(raw) == 0 {
		return math.Inf(1)
	}
	var shaped struct {
		Amount string   `json:"amount"`
		Number *float64 `json:"number"`
	}
	if err := json.Unmarshal(raw, &shaped); err == nil {
		if shaped.Number != nil {
			return *shaped.Number
		}
		if shaped.Amount != "" {
			if f, err := strconv.ParseFloat(shaped.Amount, 64); err == nil {
				return f
			}
		}
	}
	var bare float64
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}
	var bareStr string
	if err := json.Unmarshal(raw, &bareStr); err == nil {
		if f, err := strconv.ParseFloat(bareStr, 64); err == nil {
			return f
		}
	}
	return math.Inf(1)
}

// Compare builds a PriceComparison snapshot from a product's currently
// succeeded sources. Requires at least one source; callers are expected
// to only invoke this when sources_succeeded >= 2, per §4.6.
func Compare(productID string, sources []models.ComparisonSource) (*models.PriceComparison, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("comparison: no sources")
	}

	bestIdx := -1
	bestVal := math.Inf(1)
	worstVal := math.Inf(-1)
	sum := 0.0
	parseableCount := 0

	for i, s := range sources {
		v := numericValue(s.Value)
		if v < bestVal {
			bestVal = v
			bestIdx = i
		}
		// Unparseable values are +Inf and always win "worst", per the
		// comparison contract.
		if v > worstVal {
			worstVal = v
		}
		if !math.IsInf(v, 1) {
			sum += v
			parseableCount++
		}
	}
	if bestIdx == -1 {
		bestIdx = 0
	}

	c := &models.PriceComparison{
		ID:           ulid.Make().String(),
		ProductID:    productID,
		Sources:      sources,
		BestSourceID: sources[bestIdx].SourceID,
		BestValue:    sources[bestIdx].Value,
	}

	if len(sources) >= 2 {
		if !math.IsInf(worstVal, -1) {
			c.WorstValue = renderLike(sources[0].Value, worstVal)
		}
		if parseableCount > 0 {
			avg := sum / float64(parseableCount)
			c.AvgValue = renderLike(sources[0].Value, avg)
		}
		if !math.IsInf(bestVal, 1) && !math.IsInf(worstVal, -1) {
			if savings, pct, ok := Savings(bestVal, worstVal); ok {
				c.Savings = savings
				c.SavingsPercentage = pct
				c.HasSavings = true
			}
		}
	}

	return c, nil
}

// Savings returns (savings, savings_percentage) for a comparison with
// both best and worst populated; savings_percentage is only meaningful
// when worst > 0 per §4.6.
func Savings(best, worst float64) (savings float64, percentage float64, ok bool) {
	savings = worst - best
	if worst <= 0 {
		return savings, 0, false
	}
	return savings, savings / worst * 100, true
}

// renderLike renders a numeric result in the same structural shape as
// shapeLike's value: {amount,currency} if it has an amount field, else
// {number}.
func renderLike(shapeLike []byte, value float64) json.RawMessage {
	var shaped struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Number   *float64 `json:"number"`
	}
	if err := json.Unmarshal(shapeLike, &shaped); err == nil && shaped.Amount != "" {
		out, _ := json.Marshal(struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		}{Amount: strconv.FormatFloat(value, 'f', 2, 64), Currency: shaped.Currency})
		return out
	}
	out, _ := json.Marshal(struct {
		Number float64 `json:"number"`
	}{Number: value})
	return out
}
