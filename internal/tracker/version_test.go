package tracker

import "testing"

func TestVersionTracker_Parse(t *testing.T) {
	vt := NewVersionTracker()
	r := vt.Parse("release v1.2.3-beta.1 is out", ParseHints{})
	if !r.Success {
		t.Fatal("Parse() success = false")
	}
	var v VersionValue
	_ = unmarshalValue(r.Value, &v)
	if v.Major != 1 || v.Minor != 2 || v.Patch != 3 || v.PreRelease != "beta.1" {
		t.Errorf("Parse() = %+v, want 1.2.3-beta.1", v)
	}
	if r.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", r.Confidence)
	}

	if vt.Parse("no version here", ParseHints{}).Success {
		t.Error("Parse() succeeded on text with no version")
	}
}

// For any va < vb by SemVer, compare(va, vb).direction = Inc.
func TestVersionTracker_Compare_SemVerOrder(t *testing.T) {
	vt := NewVersionTracker()
	pairs := [][2]string{
		{"1.0.0", "1.3.0"},
		{"1.2.3", "2.0.0"},
		{"1.2.3-alpha", "1.2.3"},
		{"1.2.3-alpha", "1.2.3-beta"},
		{"1.2.0", "1.2.1"},
	}
	for _, p := range pairs {
		oldVal := mustMarshal(versionOf(t, vt, p[0]))
		newVal := mustMarshal(versionOf(t, vt, p[1]))
		r := vt.Compare(oldVal, newVal)
		if !r.Changed || r.Direction != DirectionInc {
			t.Errorf("Compare(%s, %s) = %+v, want changed inc", p[0], p[1], r)
		}
		if r.PercentChange != nil {
			t.Errorf("Compare(%s, %s) percent_change should never be set", p[0], p[1])
		}
	}
}

func TestVersionTracker_Compare_Same(t *testing.T) {
	vt := NewVersionTracker()
	v := mustMarshal(versionOf(t, vt, "1.2.3"))
	if r := vt.Compare(v, v); r.Changed {
		t.Error("Compare(same) changed = true")
	}
}

func versionOf(t *testing.T, vt *VersionTracker, text string) VersionValue {
	t.Helper()
	r := vt.Parse(text, ParseHints{})
	if !r.Success {
		t.Fatalf("failed to parse version %q", text)
	}
	var v VersionValue
	_ = unmarshalValue(r.Value, &v)
	return v
}
