package checker

import (
	"encoding/json"
	"testing"

	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

func priceValue(amount string) []byte {
	b, _ := json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{Amount: amount, Currency: "USD"})
	return b
}

// First observation is never notified, regardless of policy.
func TestShouldNotify_FirstObservationNeverNotifies(t *testing.T) {
	cmp := tracker.CompareResult{Changed: true, Direction: tracker.DirectionDec}
	for _, policy := range []models.NotifyPolicy{models.NotifyPolicyAnyChange, models.NotifyPolicyDecrease, models.NotifyPolicyIncrease} {
		if ShouldNotify(models.TrackerKindPrice, policy, nil, nil, priceValue("19.99"), cmp) {
			t.Errorf("policy %v: first observation should not notify", policy)
		}
	}
}

// old == new never notifies.
func TestShouldNotify_UnchangedValueNeverNotifies(t *testing.T) {
	v := priceValue("19.99")
	cmp := tracker.CompareResult{Changed: false, Direction: tracker.DirectionSame}
	if ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, nil, v, v, cmp) {
		t.Error("identical old/new should not notify")
	}
}

// Under Decrease, should_notify implies numeric(new) < numeric(old).
func TestShouldNotify_DecreaseNotifiesOnlyOnNumericDrop(t *testing.T) {
	old := priceValue("24.99")

	lower := priceValue("19.99")
	cmpDec := tracker.CompareResult{Changed: true, Direction: tracker.DirectionDec}
	if !ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyDecrease, nil, old, lower, cmpDec) {
		t.Error("Decrease policy should notify on a price drop")
	}

	higher := priceValue("29.99")
	cmpInc := tracker.CompareResult{Changed: true, Direction: tracker.DirectionInc}
	if ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyDecrease, nil, old, higher, cmpInc) {
		t.Error("Decrease policy should not notify on a price increase")
	}

	if ShouldNotify(models.TrackerKindVersion, models.NotifyPolicyDecrease, nil, old, higher, cmpInc) {
		t.Error("Decrease policy should never fire for Version")
	}
}

// Threshold gate, absolute and relative forms.
func TestShouldNotify_BelowThresholdSuppressed(t *testing.T) {
	old := priceValue("20.00")
	small := priceValue("19.50") // |diff|=0.50
	big := priceValue("17.00")   // |diff|=3.00
	cmpDec := tracker.CompareResult{Changed: true, Direction: tracker.DirectionDec}

	absolute := &models.Threshold{Kind: models.ThresholdAbsolute, Value: 2.00}
	if ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, absolute, old, small, cmpDec) {
		t.Error("diff below absolute threshold should not notify")
	}
	if !ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, absolute, old, big, cmpDec) {
		t.Error("diff at/above absolute threshold should notify")
	}

	relative := &models.Threshold{Kind: models.ThresholdRelative, Value: 10} // 10%
	if ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, relative, old, small, cmpDec) {
		t.Error("2.5% change should not clear a 10% relative threshold")
	}
	if !ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, relative, old, big, cmpDec) {
		t.Error("15% change should clear a 10% relative threshold")
	}
}

func TestShouldNotify_RelativeThreshold_ZeroOldSkipped(t *testing.T) {
	old := priceValue("0")
	new := priceValue("5.00")
	cmp := tracker.CompareResult{Changed: true, Direction: tracker.DirectionInc}
	relative := &models.Threshold{Kind: models.ThresholdRelative, Value: 10}
	if ShouldNotify(models.TrackerKindPrice, models.NotifyPolicyAnyChange, relative, old, new, cmp) {
		t.Error("relative threshold with old=0 should never pass")
	}
}
