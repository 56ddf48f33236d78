// Package finder proposes selectors when a Source has no user-supplied
// one, per §4.3 of the extraction design.
package finder

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/pagewatch/internal/fetcher"
	"github.com/jmylchreest/pagewatch/internal/models"
)

// TargetKind names the value shape a candidate match should resemble.
type TargetKind string

const (
	TargetPrice   TargetKind = "price"
	TargetVersion TargetKind = "version"
	TargetNumber  TargetKind = "number"
	TargetText    TargetKind = "text"
)

// Request parameterizes a discovery pass.
type Request struct {
	URL             string
	TargetText      string
	TargetKind      TargetKind
	ContextHints    []string
	ExcludeSelectors []string
	MaxMatches      int
}

// Match is one candidate element found on the page.
type Match struct {
	Selector   string
	Text       string
	HTML       string
	Confidence float64
}

// Result is the finder's output: ranked matches plus refined selector
// suggestions derived from the top few.
type Result struct {
	Matches             []Match
	SuggestedSelectors []string
}

// candidateSelectors is the hand-tuned, kind-specific scan list from §4.3.
var candidateSelectors = map[TargetKind][]string{
	TargetPrice: {
		".price", ".cost", ".amount", ".total", "[data-price]",
		".sale-price", ".current-price", "span", "div", "p", "strong", "b",
	},
	TargetVersion: {
		".version", ".release", "[data-version]", "span", "div", "p", "code",
	},
	TargetNumber: {
		".count", ".quantity", ".stock", "[data-count]", "span", "div", "p",
	},
	TargetText: {
		"span", "div", "p", "strong", "b", "h1", "h2", "h3",
	},
}

const minConfidence = 0.1

// FalsePositiveSource looks up previously recorded false positives for a
// source so the finder can down-weight repeat matches (§9 extension point).
type FalsePositiveSource interface {
	GetBySource(ctx context.Context, sourceID string) ([]models.FalsePositive, error)
}

// Finder discovers candidate selectors on a rendered page.
type Finder struct {
	fetcher      *fetcher.Fetcher
	falsePositives FalsePositiveSource
}

func New(f *fetcher.Fetcher, fp FalsePositiveSource) *Finder {
	return &Finder{fetcher: f, falsePositives: fp}
}

// Discover implements the §4.3 algorithm: fetch, scan candidates, score,
// rank, and derive refined selector suggestions from the top matches.
func (fd *Finder) Discover(ctx context.Context, sourceID string, req Request) (Result, error) {
	fr := fd.fetcher.Fetch(ctx, fetcher.Request{
		URL:          req.URL,
		Selector:     "html",
		SelectorType: fetcher.SelectorCSS,
		Timeout:      0,
	})
	if !fr.Success {
		return Result{}, fmt.Errorf("finder: fetch failed: %s", fr.Error)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fr.HTML))
	if err != nil {
		return Result{}, fmt.Errorf("finder: parse html: %w", err)
	}

	var excluded []string
	if fd.falsePositives != nil {
		if fps, err := fd.falsePositives.GetBySource(ctx, sourceID); err == nil {
			for _, fp := range fps {
				excluded = append(excluded, fp.HTMLContext)
			}
		}
	}

	exclude := make(map[string]bool, len(req.ExcludeSelectors))
	for _, s := range req.ExcludeSelectors {
		exclude[s] = true
	}

	maxMatches := req.MaxMatches
	if maxMatches <= 0 {
		maxMatches = 10
	}

	var matches []Match
	for _, sel := range candidateSelectors[req.TargetKind] {
		if exclude[sel] {
			continue
		}
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			outer, _ := goquery.OuterHtml(s)
			if isFalsePositive(outer, excluded) {
				return
			}
			conf := score(text, outer, req)
			if conf < minConfidence {
				return
			}
			matches = append(matches, Match{
				Selector:   refine(s, sel, s.PrevAllFiltered(goquery.NodeName(s)).Length()),
				Text:       text,
				HTML:       outer,
				Confidence: conf,
			})
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	top := matches
	if len(top) > 3 {
		top = top[:3]
	}
	suggestions := make([]string, 0, len(top))
	seen := map[string]bool{}
	for _, m := range top {
		if !seen[m.Selector] {
			seen[m.Selector] = true
			suggestions = append(suggestions, m.Selector)
		}
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}

	return Result{Matches: matches, SuggestedSelectors: suggestions}, nil
}

func isFalsePositive(html string, excluded []string) bool {
	for _, e := range excluded {
		if e != "" && e == html {
			return true
		}
	}
	return false
}

var (
	currencySymbolRe = regexp.MustCompile(`[$€£¥₹₩]`)
	dollarAmountRe   = regexp.MustCompile(`\$\d+\.?\d*`)
	semverFamilyRe   = regexp.MustCompile(`v?\d+\.\d+(\.\d+)?`)
	plainNumberRe    = regexp.MustCompile(`^\s*\d[\d,]*(\.\d+)?\s*$`)
	numberWithUnitRe = regexp.MustCompile(`\d+\s*(items?|pcs?|units?)`)
)

// score implements the §4.3.1 confidence formula.
func score(text, html string, req Request) float64 {
	conf := 0.2 // non-empty text

	if req.TargetText != "" {
		if strings.Contains(text, req.TargetText) {
			conf += 0.4
		} else if strings.Contains(strings.ToLower(text), strings.ToLower(req.TargetText)) {
			conf += 0.3
		}
	}

	for _, hint := range req.ContextHints {
		if hint == "" {
			continue
		}
		if strings.Contains(text, hint) {
			conf += 0.1
		}
		if strings.Contains(html, hint) {
			conf += 0.05
		}
	}

	switch req.TargetKind {
	case TargetPrice:
		if currencySymbolRe.MatchString(text) {
			conf += 0.3
		}
		if dollarAmountRe.MatchString(text) {
			conf += 0.4
		}
		lowerHTML := strings.ToLower(html)
		for _, kw := range []string{"price", "cost", "amount", "total", "value", "money"} {
			if strings.Contains(lowerHTML, kw) {
				conf += 0.1
				break
			}
		}
	case TargetVersion:
		if semverFamilyRe.MatchString(text) {
			conf += 0.4
		}
		lowerText := strings.ToLower(text)
		for _, kw := range []string{"version", "ver", "v", "release", "build"} {
			if strings.Contains(lowerText, kw) {
				conf += 0.1
			}
		}
	case TargetNumber:
		if plainNumberRe.MatchString(text) {
			conf += 0.3
		}
		if numberWithUnitRe.MatchString(text) {
			conf += 0.2
		}
	}

	if len(text) > 200 {
		conf *= 0.5
	}

	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// refine picks a stable selector for a match per §4.3.2: "#id" when the
// element has an id, else tag.firstClass when that is unique under the
// parent, else tag:nth-child(siblingIndex+1). The candidate selector is
// not used in the result.
func refine(s *goquery.Selection, candidate string, siblingIndex int) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	tag := goquery.NodeName(s)
	if cls, ok := s.Attr("class"); ok && cls != "" {
		first := strings.Fields(cls)[0]
		sel := tag + "." + first
		if s.Parent().Find(sel).Length() == 1 {
			return sel
		}
	}
	return fmt.Sprintf("%s:nth-child(%d)", tag, siblingIndex+1)
}
