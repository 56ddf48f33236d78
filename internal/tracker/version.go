package tracker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// VersionValue is the canonical stored shape for the Version tracker.
type VersionValue struct {
	Version    string `json:"version"`
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	PreRelease string `json:"pre_release,omitempty"`
}

var versionRe = regexp.MustCompile(`v?(\d+)\.(\d+)\.(\d+)(?:-([A-Za-z0-9.-]+))?`)

// VersionTracker implements the Tracker capability set for SemVer-family values.
type VersionTracker struct{}

func NewVersionTracker() *VersionTracker { return &VersionTracker{} }

func (t *VersionTracker) Kind() string { return "version" }

func (t *VersionTracker) Parse(text string, _ ParseHints) ParseResult {
	m := versionRe.FindStringSubmatch(text)
	if m == nil {
		return ParseResult{Success: false, Confidence: 0}
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	pre := m[4]

	versionStr := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if pre != "" {
		versionStr += "-" + pre
	}
	value := VersionValue{Version: versionStr, Major: major, Minor: minor, Patch: patch, PreRelease: pre}
	encoded, _ := json.Marshal(value)
	return ParseResult{
		Success:    true,
		Value:      encoded,
		Normalized: versionStr,
		Confidence: 0.95,
	}
}

func (t *VersionTracker) Format(value []byte) string {
	var v VersionValue
	if err := json.Unmarshal(value, &v); err != nil {
		return ""
	}
	return "v" + v.Version
}

// Compare orders versions by SemVer-2 precedence: lexicographic on
// (major, minor, patch), then a release beats any pre-release, then
// lexicographic on the pre-release tag. Never emits PercentChange.
//
// Preserved open question: when either side fails to parse as a
// VersionValue (malformed stored JSON), this falls back to plain string
// inequality and reports the result as DirectionInc — preserved as
// specified, not corrected, since spec instructs both flagged behaviors be
// kept as-is.
func (t *VersionTracker) Compare(oldValue, newValue []byte) CompareResult {
	var oldV, newV VersionValue
	oldErr := json.Unmarshal(oldValue, &oldV)
	newErr := json.Unmarshal(newValue, &newV)
	if oldErr != nil || newErr != nil {
		if string(oldValue) == string(newValue) {
			return CompareResult{Changed: false, Direction: DirectionSame}
		}
		return CompareResult{Changed: true, Direction: DirectionInc}
	}

	if oldV.Version == newV.Version {
		return CompareResult{Changed: false, Direction: DirectionSame}
	}

	cmp := compareSemVer(oldV, newV)
	dir := DirectionInc
	if cmp > 0 {
		dir = DirectionDec
	}
	return CompareResult{Changed: true, Direction: dir}
}

// compareSemVer returns <0 if a<b, 0 if equal, >0 if a>b per SemVer-2 precedence.
func compareSemVer(a, b VersionValue) int {
	if a.Major != b.Major {
		return a.Major - b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor - b.Minor
	}
	if a.Patch != b.Patch {
		return a.Patch - b.Patch
	}
	// A release (no pre-release) is greater than any pre-release.
	if a.PreRelease == "" && b.PreRelease != "" {
		return 1
	}
	if a.PreRelease != "" && b.PreRelease == "" {
		return -1
	}
	return strings.Compare(a.PreRelease, b.PreRelease)
}

func (t *VersionTracker) SearchVariations(input string) []string {
	return []string{input, "v" + input, input + " version", input + " release", input + " changelog"}
}

// Rank sorts by confidence + 0.2*parse(text).success descending.
func (t *VersionTracker) Rank(input string, matches []Match) []Match {
	out := append([]Match(nil), matches...)
	score := func(m Match) float64 {
		s := m.Confidence
		if t.Parse(m.Text, ParseHints{}).Success {
			s += 0.2
		}
		return s
	}
	sort.SliceStable(out, func(i, j int) bool { return score(out[i]) > score(out[j]) })
	return out
}
