package tracker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PriceValue is the canonical stored shape for the Price tracker.
type PriceValue struct {
	Amount   string `json:"amount"`   // 2-dp canonical decimal string
	Currency string `json:"currency"` // ISO-4217
}

var priceNumberRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\d+(?:\.\d{2})?`)

// symbolCurrency maps explicit currency symbols/prefixes to ISO-4217 codes.
// Order doesn't matter here; resolveCurrency sorts by symbol length so
// "US$"/"USD$" match before the bare "$".
var symbolCurrency = map[string]string{
	"US$": "USD", "USD$": "USD",
	"A$": "AUD", "AU$": "AUD",
	"C$": "CAD", "CA$": "CAD",
	"NZ$": "NZD",
	"$":   "USD",
	"€":   "EUR",
	"£":   "GBP",
	"¥":   "JPY",
	"₹":   "INR",
	"₩":   "KRW",
}

var localeCurrency = map[string]string{
	"au": "AUD", "us": "USD", "uk": "GBP", "gb": "GBP",
	"ca": "CAD", "nz": "NZD", "eu": "EUR", "jp": "JPY", "in": "INR",
}

var tldCurrency = []struct {
	suffix   string
	currency string
}{
	{".com.au", "AUD"},
	{".co.uk", "GBP"},
	{".co.nz", "NZD"},
	{".ca", "CAD"},
	{".com", "USD"},
}

// PriceTracker implements the Tracker capability set for monetary values.
type PriceTracker struct {
	defaultCurrency string
	symbols         []string // symbolCurrency keys, longest first
}

// NewPriceTracker constructs a Price tracker with the given configured default
// currency, used when neither an explicit symbol nor website context resolves one.
func NewPriceTracker(defaultCurrency string) *PriceTracker {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	symbols := make([]string, 0, len(symbolCurrency))
	for s := range symbolCurrency {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return len(symbols[i]) > len(symbols[j]) })
	return &PriceTracker{defaultCurrency: defaultCurrency, symbols: symbols}
}

func (t *PriceTracker) Kind() string { return "price" }

// Parse matches the first [currency?]\s*<number> occurrence in text and
// resolves the currency via resolveCurrency's precedence order.
func (t *PriceTracker) Parse(text string, hints ParseHints) ParseResult {
	loc := priceNumberRe.FindStringIndex(text)
	if loc == nil {
		return ParseResult{Success: false, Confidence: 0}
	}
	numText := text[loc[0]:loc[1]]
	amount, err := canonicalAmount(numText)
	if err != nil {
		return ParseResult{Success: false, Confidence: 0}
	}

	prefix := strings.TrimSpace(text[:loc[0]])
	currency := t.resolveCurrency(prefix, hints)

	value := PriceValue{Amount: amount, Currency: currency}
	encoded, _ := json.Marshal(value)
	return ParseResult{
		Success:    true,
		Value:      encoded,
		Normalized: fmt.Sprintf("%s %s", currency, amount),
		Confidence: 0.9,
		Metadata:   map[string]string{"currency": currency},
	}
}

// resolveCurrency implements its three-step precedence: explicit
// symbol (longest match first) -> website context (URL locale segment, then
// HTML lang, then TLD) -> configured default.
func (t *PriceTracker) resolveCurrency(prefix string, hints ParseHints) string {
	for _, sym := range t.symbols {
		if strings.Contains(prefix, sym) {
			return symbolCurrency[sym]
		}
	}
	if hints.URL != "" {
		lowered := strings.ToLower(hints.URL)
		for _, seg := range strings.Split(lowered, "/") {
			seg = strings.Trim(seg, "-_")
			if cur, ok := localeCurrency[seg]; ok {
				return cur
			}
		}
		if hints.HTMLLang != "" {
			if cur, ok := localeCurrency[strings.ToLower(hints.HTMLLang)]; ok {
				return cur
			}
		}
		for _, t := range tldCurrency {
			if strings.Contains(lowered, t.suffix) {
				return t.currency
			}
		}
	}
	return t.defaultCurrency
}

func canonicalAmount(numText string) (string, error) {
	cleaned := strings.ReplaceAll(numText, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', 2, 64), nil
}

func (t *PriceTracker) Format(value []byte) string {
	var v PriceValue
	if err := json.Unmarshal(value, &v); err != nil {
		return ""
	}
	symbol := v.Currency
	for s, c := range symbolCurrency {
		if c == v.Currency && s != "$" {
			symbol = s
			break
		}
	}
	if v.Currency == "USD" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%s %s", symbol, v.Amount, v.Currency)
}

// Compare classifies a price change. Preserved open question: this
// computes percent_change from the two amounts without checking that
// old.Currency == new.Currency, so comparing across currencies silently
// mixes units — flagged, not fixed, left as-is rather than auto-corrected.
func (t *PriceTracker) Compare(oldValue, newValue []byte) CompareResult {
	var oldV, newV PriceValue
	_ = json.Unmarshal(oldValue, &oldV)
	_ = json.Unmarshal(newValue, &newV)
	oldAmt, _ := strconv.ParseFloat(oldV.Amount, 64)
	newAmt, _ := strconv.ParseFloat(newV.Amount, 64)

	if oldAmt == newAmt && oldV.Currency == newV.Currency {
		return CompareResult{Changed: false, Direction: DirectionSame}
	}
	diff := newAmt - oldAmt
	dir := DirectionInc
	if diff < 0 {
		dir = DirectionDec
	}
	result := CompareResult{Changed: true, Direction: dir, Difference: diff}
	if oldAmt != 0 {
		pct := diff / oldAmt * 100
		result.PercentChange = &pct
	}
	return result
}

func (t *PriceTracker) SearchVariations(input string) []string {
	return []string{
		input, input + " price", input + " cost", input + " buy", input + " sale price",
	}
}

// Rank sorts matches by confidence descending ("plain confidence
// descending for Price").
func (t *PriceTracker) Rank(input string, matches []Match) []Match {
	out := append([]Match(nil), matches...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
