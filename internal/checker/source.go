package checker

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/pagewatch/internal/fetcher"
	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

// SourceCheckResult is the per-source outcome of one check (§4.4).
type SourceCheckResult struct {
	SourceID     string
	Success      bool
	Error        string
	TextChanged  bool
	ValueChanged bool
	ShouldNotify bool
	OldValue     []byte
	NewValue     []byte
	Compare      tracker.CompareResult
}

// Fetcher is the subset of *fetcher.Fetcher the checker depends on,
// narrowed to an interface so tests can substitute a stub instead of
// driving a real browser pool.
type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) fetcher.Result
}

// SourceChecker runs the per-source extraction pipeline (§4.4): fetch,
// parse, diff against the stored value, persist history, decide
// should_notify.
type SourceChecker struct {
	fetcher        Fetcher
	history        repository.PriceHistoryRepository
	sources        repository.SourceRepository
	requestTimeout time.Duration
}

func NewSourceChecker(f Fetcher, history repository.PriceHistoryRepository, sources repository.SourceRepository, requestTimeout time.Duration) *SourceChecker {
	return &SourceChecker{fetcher: f, history: history, sources: sources, requestTimeout: requestTimeout}
}

// Check runs one source check. Product-level policy and threshold are
// injected by the caller (the product checker) so this stays a pure
// extraction/diffing step.
func (c *SourceChecker) Check(ctx context.Context, s *models.Source, kind models.TrackerKind, t tracker.Tracker, policy models.NotifyPolicy, threshold *models.Threshold) SourceCheckResult {
	now := time.Now().UTC()

	fr := c.fetcher.Fetch(ctx, fetcher.Request{
		URL:          s.URL,
		Selector:     s.Selector,
		SelectorType: fetcher.SelectorType(s.SelectorType),
		Timeout:      c.requestTimeout,
	})
	if !fr.Success {
		return c.quarantineStep(ctx, s, now, fr.Error)
	}
	if fr.Text == "" {
		return c.quarantineStep(ctx, s, now, "selector stale")
	}

	parsed := t.Parse(fr.Text, tracker.ParseHints{URL: s.URL})
	if !parsed.Success {
		return c.quarantineStep(ctx, s, now, "value extraction failed")
	}

	oldText, oldValue := s.OriginalText, s.OriginalValue
	if s.CurrentValue != nil {
		oldValue = s.CurrentValue
	}
	if s.CurrentText != "" {
		oldText = s.CurrentText
	}

	firstObservation := s.OriginalText == "" && s.OriginalValue == nil
	if firstObservation {
		s.OriginalText = fr.Text
		s.OriginalValue = parsed.Value
	}
	s.CurrentText = fr.Text
	s.CurrentValue = parsed.Value
	s.LastChecked = &now
	s.ErrorCount = 0
	s.LastError = ""

	textChanged := !firstObservation && oldText != fr.Text
	valueChanged := !firstObservation && string(oldValue) != string(parsed.Value)

	if err := c.history.Append(ctx, &models.PriceHistory{
		ID:        ulid.Make().String(),
		SourceID:  s.ID,
		Value:     parsed.Value,
		Text:      fr.Text,
		Timestamp: now,
	}); err != nil {
		return SourceCheckResult{SourceID: s.ID, Success: false, Error: "repository error: " + err.Error()}
	}

	var cmp tracker.CompareResult
	var notify bool
	if !firstObservation {
		cmp = t.Compare(oldValue, parsed.Value)
		notify = ShouldNotify(kind, policy, threshold, oldValue, parsed.Value, cmp)
	}

	if err := c.sources.Update(ctx, s); err != nil {
		return SourceCheckResult{SourceID: s.ID, Success: false, Error: "repository error: " + err.Error()}
	}

	return SourceCheckResult{
		SourceID:     s.ID,
		Success:      true,
		TextChanged:  textChanged,
		ValueChanged: valueChanged,
		ShouldNotify: notify,
		OldValue:     oldValue,
		NewValue:     parsed.Value,
		Compare:      cmp,
	}
}

// quarantineStep implements the §4.4 failure path shared by fetch
// failure, empty extraction, and parse failure: increment error_count,
// record last_error, leave current_* untouched.
func (c *SourceChecker) quarantineStep(ctx context.Context, s *models.Source, now time.Time, errMsg string) SourceCheckResult {
	s.ErrorCount++
	s.LastError = errMsg
	s.LastChecked = &now
	if err := c.sources.Update(ctx, s); err != nil {
		errMsg = errMsg + "; repository error: " + err.Error()
	}
	return SourceCheckResult{SourceID: s.ID, Success: false, Error: errMsg}
}
