// Package models defines the domain models for the product-tracking control loop.
package models

import (
	"encoding/json"
	"time"
)

// TrackerKind identifies the typed-value interpretation of a source's extracted text.
type TrackerKind string

const (
	TrackerKindPrice   TrackerKind = "price"
	TrackerKindVersion TrackerKind = "version"
	TrackerKindNumber  TrackerKind = "number"
)

// NotifyPolicy controls which changes become user-visible events.
type NotifyPolicy string

const (
	NotifyPolicyAnyChange NotifyPolicy = "any_change"
	NotifyPolicyDecrease  NotifyPolicy = "decrease"
	NotifyPolicyIncrease  NotifyPolicy = "increase"
)

// ThresholdKind distinguishes an absolute difference gate from a relative one.
type ThresholdKind string

const (
	ThresholdAbsolute ThresholdKind = "absolute"
	ThresholdRelative ThresholdKind = "relative"
)

// Threshold is an additional AND-composed gate on notification.
type Threshold struct {
	Kind  ThresholdKind `json:"kind"`
	Value float64       `json:"value"` // must be >= 0
}

// Product is a user-declared tracking target: one or more Sources observed
// together under a single cron schedule, notify policy, and optional threshold.
type Product struct {
	ID           string          `json:"id"` // 32 lowercase hex chars (UUID-v4, simple form)
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Kind         TrackerKind     `json:"kind"`
	NotifyPolicy NotifyPolicy    `json:"notify_policy"`
	Threshold    *Threshold      `json:"threshold,omitempty"`
	Cron         string          `json:"cron"`
	IsActive     bool            `json:"is_active"`
	IsPaused     bool            `json:"is_paused"`
	BestSourceID *string         `json:"best_source_id,omitempty"`
	BestValue    json.RawMessage `json:"best_value,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LastChecked  *time.Time      `json:"last_checked,omitempty"`
	NextCheck    *time.Time      `json:"next_check,omitempty"`
}

// SelectorType identifies how a Source's selector should be evaluated.
type SelectorType string

const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	SelectorText  SelectorType = "text"
)

// QuarantineThreshold is the consecutive-error count at which a source is
// skipped by the checker until an admin resets it or is_active transitions.
const QuarantineThreshold = 5

// Source is one URL+selector observation target belonging to a Product.
type Source struct {
	ID           string       `json:"id"`
	ProductID    string       `json:"product_id"`
	URL          string       `json:"url"`
	StoreName    string       `json:"store_name,omitempty"`
	Title        string       `json:"title,omitempty"`
	Selector     string       `json:"selector,omitempty"`
	SelectorType SelectorType `json:"selector_type"`

	OriginalText  string          `json:"original_text,omitempty"`
	OriginalValue json.RawMessage `json:"original_value,omitempty"`
	CurrentText   string          `json:"current_text,omitempty"`
	CurrentValue  json.RawMessage `json:"current_value,omitempty"`

	IsActive    bool       `json:"is_active"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	ErrorCount  int        `json:"error_count"`
	LastError   string     `json:"last_error,omitempty"`
}

// Eligible reports whether the checker may check this source.
func (s *Source) Eligible() bool {
	return s.IsActive && s.ErrorCount < QuarantineThreshold
}

// PriceHistory is an append-only record written on every successful extraction.
type PriceHistory struct {
	ID        string          `json:"id"` // ULID, time-ordered
	SourceID  string          `json:"source_id"`
	Value     json.RawMessage `json:"value"`
	Text      string          `json:"text"`
	Timestamp time.Time       `json:"timestamp"`
}

// ComparisonSource is one row of a PriceComparison snapshot.
type ComparisonSource struct {
	SourceID  string          `json:"source_id"`
	StoreName string          `json:"store_name,omitempty"`
	Value     json.RawMessage `json:"value"`
	Formatted string          `json:"formatted"`
	URL       string          `json:"url"`
}

// PriceComparison is a derived, per-product snapshot across sources.
type PriceComparison struct {
	ID                string             `json:"id"` // ULID
	ProductID         string             `json:"product_id"`
	Sources           []ComparisonSource `json:"sources"`
	BestSourceID      string             `json:"best_source_id"`
	BestValue         json.RawMessage    `json:"best_value"`
	WorstValue        json.RawMessage    `json:"worst_value,omitempty"`
	AvgValue          json.RawMessage    `json:"avg_value,omitempty"`
	Savings           float64            `json:"savings,omitempty"`
	SavingsPercentage float64            `json:"savings_percentage,omitempty"`
	HasSavings        bool               `json:"has_savings"`
	Timestamp         time.Time          `json:"timestamp"`
}

// NotifierKind identifies a registered Notifier plugin.
type NotifierKind string

const (
	NotifierKindWebhook  NotifierKind = "webhook"
	NotifierKindTelegram NotifierKind = "telegram"
	NotifierKindSMTP     NotifierKind = "smtp"
)

// NotificationStatus is the outcome of one dispatch attempt.
type NotificationStatus string

const (
	NotificationSent     NotificationStatus = "sent"
	NotificationFailed   NotificationStatus = "failed"
	NotificationActioned NotificationStatus = "actioned"
)

// NotificationAction is external user feedback on a prior notification.
type NotificationAction string

const (
	ActionDismissed     NotificationAction = "dismissed"
	ActionFalsePositive NotificationAction = "false_positive"
	ActionPurchased     NotificationAction = "purchased"
)

// NotificationLog records one dispatch attempt for a product change event.
type NotificationLog struct {
	ID           string              `json:"id"` // ULID
	ProductID    string              `json:"product_id"`
	NotifierKind NotifierKind        `json:"notifier_kind"`
	Status       NotificationStatus  `json:"status"`
	Action       *NotificationAction `json:"action,omitempty"`
	Error        string              `json:"error,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	ActionedAt   *time.Time          `json:"actioned_at,omitempty"`
}

// FalsePositive is negative feedback recorded when a user marks a detection invalid.
// Used by the element finder to down-weight matches with a matching html context.
type FalsePositive struct {
	ID            string          `json:"id"` // ULID
	SourceID      string          `json:"source_id"`
	DetectedText  string          `json:"detected_text"`
	DetectedValue json.RawMessage `json:"detected_value,omitempty"`
	ActualText    string          `json:"actual_text,omitempty"`
	HTMLContext   string          `json:"html_context"`
	ScreenshotRef string          `json:"screenshot_ref,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// JobStatus is the scheduler-internal lifecycle state of a JobInfo.
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusPaused   JobStatus = "paused"
	JobStatusDisabled JobStatus = "disabled"
	JobStatusError    JobStatus = "error"
)

// JobInfo is the scheduler's in-memory-authoritative record for one product's
// cron job. The repository persists it only for startup recovery.
type JobInfo struct {
	JobID        string     `json:"job_id"`
	ProductID    string     `json:"product_id"`
	Cron         string     `json:"cron"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	RunCount     int64      `json:"run_count"`
	SuccessCount int64      `json:"success_count"`
	ErrorCount   int64      `json:"error_count"`
	LastError    string     `json:"last_error,omitempty"`
}

// SuccessRate returns successful/total runs, or 1 when no runs have happened yet.
func (j *JobInfo) SuccessRate() float64 {
	if j.RunCount == 0 {
		return 1
	}
	return float64(j.SuccessCount) / float64(j.RunCount)
}

// HealthStatus classifies a job's recent reliability.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health classifies SuccessRate per its thresholds.
func (j *JobInfo) Health() HealthStatus {
	rate := j.SuccessRate()
	switch {
	case rate > 0.8:
		return HealthHealthy
	case rate > 0.5:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

// ActionURLs are the deep links a notifier may render as buttons/links.
type ActionURLs struct {
	Dismiss       string `json:"dismiss,omitempty"`
	FalsePositive string `json:"false_positive,omitempty"`
	Purchased     string `json:"purchased,omitempty"`
	ViewProduct   string `json:"view_product,omitempty"`
}

// NotificationEvent is the polymorphic payload handed to every Notifier
// implementation for one dispatch attempt.
type NotificationEvent struct {
	ProductID     string
	ProductName   string
	SourceID      string
	StoreName     string
	Kind          TrackerKind
	ChangeType    string // direction tag: "inc", "dec", "same"
	OldValue      json.RawMessage
	NewValue      json.RawMessage
	OldFormatted  string
	NewFormatted  string
	Threshold     *Threshold
	Comparison    *PriceComparison
	Actions       ActionURLs
	ScreenshotRef string
}

// NotifyResult is a single notifier's outcome for one dispatch attempt.
type NotifyResult struct {
	Success   bool
	MessageID string
	Error     string
}

// SystemSetting is a single key/value row in the settings table.
type SystemSetting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}
