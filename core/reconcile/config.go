package reconcile

import "time"

// TrackerConfig configures the trackers of a hosted core.
type TrackerConfig struct {
	// Core names the hosted index core.
	Core string `mapstructure:"core" default:"alfresco"`
	// BatchSize bounds the units fetched per repository call.
	BatchSize int `mapstructure:"batch_size" default:"1000"`
	// HoleScanIDs re-examines this many ids below each watermark. 0 disables it.
	HoleScanIDs int64 `mapstructure:"hole_scan_ids" default:"0"`
	// HoleRetention bounds the hole scan by commit time, e.g. "1h". 0 means unbounded.
	HoleRetention time.Duration `mapstructure:"hole_retention" default:"0s"`
	// ContentWorkers bounds concurrent text extraction.
	ContentWorkers int `mapstructure:"content_workers" default:"4"`
	// RateLimit caps repository calls per second. 0 disables throttling.
	RateLimit float64 `mapstructure:"rate_limit" default:"0"`
	// RateBurst is the burst allowed above RateLimit.
	RateBurst int `mapstructure:"rate_burst" default:"10"`
	// Cron holds the schedule of each tracker.
	Cron CronConfig `mapstructure:"cron"`
}

// CronConfig holds one cron spec per tracker. An empty spec leaves the tracker
// unscheduled; it can still be run through the admin API.
type CronConfig struct {
	Acl      string `mapstructure:"acl" default:"@every 10s"`
	Metadata string `mapstructure:"metadata" default:"@every 10s"`
	Content  string `mapstructure:"content" default:"@every 15s"`
	Cascade  string `mapstructure:"cascade" default:"@every 15s"`
	Model    string `mapstructure:"model" default:"@every 1m"`
}

// Spec returns the cron spec of the named tracker.
func (c CronConfig) Spec(tracker string) string {
	switch Kind(tracker) {
	case KindAcl:
		return c.Acl
	case KindMetadata:
		return c.Metadata
	case KindContent:
		return c.Content
	case KindCascade:
		return c.Cascade
	case KindModel:
		return c.Model
	}
	return ""
}

// Options returns the engine options.
func (c TrackerConfig) Options() Options {
	return Options{BatchSize: c.BatchSize, HoleScanIDs: c.HoleScanIDs, HoleRetention: c.HoleRetention}
}
