package scheduler

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

// cronFieldChars is the §4.7 grammar: digits, *, comma, hyphen, slash.
// This is an admission filter only — next-fire computation is delegated
// to robfig/cron/v3 ("do not implement a cron evaluator from scratch").
var cronFieldCharsRe = regexp.MustCompile(`^[0-9*,\-/]+$`)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCron accepts exactly the 5-field grammar over
// [0-9*,-/], rejects everything else.
func ValidateCron(expr string) error {
	fields := splitFields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("scheduler: cron expression must have 5 fields, got %d", len(fields))
	}
	for _, f := range fields {
		if !cronFieldCharsRe.MatchString(f) {
			return fmt.Errorf("scheduler: invalid cron field %q", f)
		}
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

func splitFields(expr string) []string {
	var fields []string
	start := 0
	for i := 0; i <= len(expr); i++ {
		if i == len(expr) || expr[i] == ' ' {
			if i > start {
				fields = append(fields, expr[start:i])
			}
			start = i + 1
		}
	}
	return fields
}
