package tracker

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NumberValue is the canonical stored shape for the Number tracker.
type NumberValue struct {
	Number    float64 `json:"number"`
	Formatted string  `json:"formatted"`
}

var numberRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?`)

// NumberTracker implements the Tracker capability set for plain numeric counts.
type NumberTracker struct{}

func NewNumberTracker() *NumberTracker { return &NumberTracker{} }

func (t *NumberTracker) Kind() string { return "number" }

func (t *NumberTracker) Parse(text string, _ ParseHints) ParseResult {
	loc := numberRe.FindStringIndex(text)
	if loc == nil {
		return ParseResult{Success: false, Confidence: 0}
	}
	raw := text[loc[0]:loc[1]]
	cleaned := strings.ReplaceAll(raw, ",", "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return ParseResult{Success: false, Confidence: 0}
	}
	value := NumberValue{Number: n, Formatted: raw}
	encoded, _ := json.Marshal(value)
	return ParseResult{
		Success:    true,
		Value:      encoded,
		Normalized: raw,
		Confidence: 0.85,
	}
}

func (t *NumberTracker) Format(value []byte) string {
	var v NumberValue
	if err := json.Unmarshal(value, &v); err != nil {
		return ""
	}
	if v.Formatted != "" {
		return v.Formatted
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// Compare emits PercentChange = (new-old)/old*100 only when old != 0.
func (t *NumberTracker) Compare(oldValue, newValue []byte) CompareResult {
	var oldV, newV NumberValue
	_ = json.Unmarshal(oldValue, &oldV)
	_ = json.Unmarshal(newValue, &newV)

	if oldV.Number == newV.Number {
		return CompareResult{Changed: false, Direction: DirectionSame}
	}
	diff := newV.Number - oldV.Number
	dir := DirectionInc
	if diff < 0 {
		dir = DirectionDec
	}
	result := CompareResult{Changed: true, Direction: dir, Difference: diff}
	if oldV.Number != 0 {
		pct := diff / oldV.Number * 100
		result.PercentChange = &pct
	}
	return result
}

func (t *NumberTracker) SearchVariations(input string) []string {
	return []string{input, input + " count", input + " quantity", input + " total"}
}

// Rank sorts by confidence + 0.1*parse(text).success descending.
func (t *NumberTracker) Rank(input string, matches []Match) []Match {
	out := append([]Match(nil), matches...)
	score := func(m Match) float64 {
		s := m.Confidence
		if t.Parse(m.Text, ParseHints{}).Success {
			s += 0.1
		}
		return s
	}
	sort.SliceStable(out, func(i, j int) bool { return score(out[i]) > score(out[j]) })
	return out
}
