// Package checker implements the per-source extraction pipeline, the
// product-level fan-out, and the notification gate (§4.4, §4.5).
package checker

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

// ShouldNotify implements the §4.5 notification gate. old/new are the
// tracker's stored JSON values; old is nil on first observation.
func ShouldNotify(kind models.TrackerKind, policy models.NotifyPolicy, threshold *models.Threshold, oldValue, newValue []byte, cmp tracker.CompareResult) bool {
	if oldValue == nil {
		return false
	}
	if bytes.Equal(oldValue, newValue) {
		return false
	}

	var policyPass bool
	switch policy {
	case models.NotifyPolicyAnyChange:
		policyPass = true
	case models.NotifyPolicyDecrease:
		policyPass = kind != models.TrackerKindVersion && cmp.Direction == tracker.DirectionDec
	case models.NotifyPolicyIncrease:
		if kind == models.TrackerKindVersion {
			policyPass = cmp.Changed
		} else {
			policyPass = cmp.Direction == tracker.DirectionInc
		}
	}
	if !policyPass {
		return false
	}

	if threshold == nil {
		return true
	}
	return passesThreshold(*threshold, oldValue, newValue)
}

func passesThreshold(t models.Threshold, oldValue, newValue []byte) bool {
	oldNum, ok1 := numeric(oldValue)
	newNum, ok2 := numeric(newValue)
	if !ok1 || !ok2 {
		return false
	}
	diff := math.Abs(newNum - oldNum)
	switch t.Kind {
	case models.ThresholdAbsolute:
		return diff >= t.Value
	case models.ThresholdRelative:
		if oldNum == 0 {
			return false
		}
		return diff/math.Abs(oldNum) >= t.Value/100
	default:
		return false
	}
}

// numeric extracts a comparable float64 from a tracker's stored JSON
// value shape: {amount:"..."} (Price), {number: n} (Number), or a bare
// numeric/string JSON scalar.
func numeric(raw []byte) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var generic struct {
		Amount string   `json:"amount"`
		Number *float64 `json:"number"`
	}
	if err := json.Unmarshal(raw, &generic); err == nil {
		if generic.Number != nil {
			return *generic.Number, true
		}
		if generic.Amount != "" {
			if f, err := strconv.ParseFloat(generic.Amount, 64); err == nil {
				return f, true
			}
		}
	}
	var bare float64
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, true
	}
	var bareStr string
	if err := json.Unmarshal(raw, &bareStr); err == nil {
		if f, err := strconv.ParseFloat(bareStr, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
