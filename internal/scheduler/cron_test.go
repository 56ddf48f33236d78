package scheduler

import "testing"

// validate_cron accepts exactly the 5-field grammar over [0-9*,-/];
// it rejects all other inputs.
func TestValidateCron_AcceptsOnlyFiveFieldGrammar(t *testing.T) {
	valid := []string{
		"* * * * *",
		"0 9 * * *",
		"*/15 * * * *",
		"0 0 1,15 * *",
		"0-30 * * * *",
		"0 9-17 * * 1-5",
	}
	for _, c := range valid {
		if err := ValidateCron(c); err != nil {
			t.Errorf("ValidateCron(%q) = %v, want nil", c, err)
		}
	}

	invalid := []string{
		"",
		"* * * *",      // only 4 fields
		"* * * * * *",  // 6 fields
		"@daily",       // not 5-field grammar
		"a * * * *",    // letter in field
		"0 9 * * * ;rm", // stray characters
	}
	for _, c := range invalid {
		if err := ValidateCron(c); err == nil {
			t.Errorf("ValidateCron(%q) = nil, want error", c)
		}
	}
}
