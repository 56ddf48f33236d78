package tracker

import "testing"

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewPriceTracker("USD")); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(NewPriceTracker("USD")); err == nil {
		t.Error("duplicate Register() should fail")
	}
}

func TestNewDefaultRegistry_LooksUpAllKinds(t *testing.T) {
	r := NewDefaultRegistry("USD")
	for _, kind := range []string{"price", "version", "number"} {
		if _, ok := r.Get(kind); !ok {
			t.Errorf("kind %q not registered", kind)
		}
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("unknown kind should not be found")
	}
}
