package finder

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestScore_PriceBonuses(t *testing.T) {
	conf := score("$24.99", "<div class=\"price\">$24.99</div>", Request{TargetKind: TargetPrice})
	if conf < 0.2+0.3+0.4+0.1 {
		t.Errorf("score() = %v, want at least %v", conf, 0.2+0.3+0.4+0.1)
	}
	if conf > 1 {
		t.Errorf("score() = %v, want clamped to 1", conf)
	}
}

func TestScore_LongTextHalved(t *testing.T) {
	short := score("$24.99", "", Request{TargetKind: TargetPrice})
	long := score("$24.99"+strings.Repeat("x", 250), "", Request{TargetKind: TargetPrice})
	if long != short*0.5 {
		t.Errorf("long text score = %v, want half of %v", long, short)
	}
}

func TestScore_TargetTextMatch(t *testing.T) {
	exact := score("Price: $19.99", "", Request{TargetText: "$19.99"})
	caseInsensitive := score("price: $19.99", "", Request{TargetText: "Price"})
	noMatch := score("nothing here", "", Request{TargetText: "$19.99"})
	if exact <= noMatch || caseInsensitive <= noMatch {
		t.Errorf("target text match should boost confidence: exact=%v ci=%v none=%v", exact, caseInsensitive, noMatch)
	}
}

func TestRefine_PrefersID(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="price-1" class="price">$9.99</div>`))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Find(".price")
	got := refine(sel, ".price", 0)
	if got != "#price-1" {
		t.Errorf("refine() = %q, want #price-1", got)
	}
}

func TestRefine_FallsBackToNthChild(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><span>a</span><span>b</span></div>`))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Find("span").Eq(1)
	got := refine(sel, "span", 1)
	if got != "span:nth-child(2)" {
		t.Errorf("refine() = %q, want span:nth-child(2)", got)
	}
}

func TestIsFalsePositive(t *testing.T) {
	excluded := []string{"<div>a</div>"}
	if !isFalsePositive("<div>a</div>", excluded) {
		t.Error("expected exact HTML context match to be flagged")
	}
	if isFalsePositive("<div>b</div>", excluded) {
		t.Error("did not expect non-matching HTML to be flagged")
	}
}
