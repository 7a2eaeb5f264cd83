package reconcile

import (
	"time"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/shard"
)

// Kind identifies a tracker type.
type Kind string

const (
	KindAcl      Kind = "acl"
	KindMetadata Kind = "metadata"
	KindContent  Kind = "content"
	KindCascade  Kind = "cascade"
	KindModel    Kind = "model"
)

// State is the position of a tracker in its cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateApplying   State = "applying"
	StateCommitting State = "committing"
	StateErroring   State = "erroring"
)

// Unit is one fetched item a tracker applies: a transaction, an ACL change-set,
// or a document for trackers that page with a cursor.
type Unit struct {
	ID           int64
	CommitTimeMs int64
	// Payload is the adapter's own representation of the unit.
	Payload any
}

// Outcome counts what applying units did to the index.
type Outcome struct {
	Written int `json:"written"`
	Deleted int `json:"deleted"`
	// Errors counts error node markers written.
	Errors int `json:"errors"`
	// Skipped counts items not owned by this shard or otherwise ignored.
	Skipped int `json:"skipped"`
}

// Add accumulates o2 into o.
func (o *Outcome) Add(o2 Outcome) {
	o.Written += o2.Written
	o.Deleted += o2.Deleted
	o.Errors += o2.Errors
	o.Skipped += o2.Skipped
}

// CycleResult describes one finished cycle.
type CycleResult struct {
	Tracker   string        `json:"tracker"`
	Iteration string        `json:"iteration"`
	Units     int           `json:"units"`
	Batches   int           `json:"batches"`
	Holes     int           `json:"holes"`
	Outcome   Outcome       `json:"outcome"`
	Watermark int64         `json:"watermark"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// TrackerState is the published state of one tracker.
type TrackerState struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	State State  `json:"state"`
	// Space is empty for trackers without a watermark.
	Space      index.IDSpace `json:"space,omitempty"`
	Watermark  int64         `json:"watermark"`
	Cycles     int64         `json:"cycles"`
	LastRun    *time.Time    `json:"last_run,omitempty"`
	LastResult *CycleResult  `json:"last_result,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

// Summary is the administrative view of a core.
type Summary struct {
	Core       string            `json:"core"`
	Instance   int               `json:"instance"`
	Count      int               `json:"count"`
	Method     shard.Method      `json:"method"`
	Generation int64             `json:"generation"`
	ErrorNodes int               `json:"error_nodes"`
	Documents  map[string]int    `json:"documents"`
	Range      *shard.RangeCheck `json:"range,omitempty"`
	Trackers   []TrackerState    `json:"trackers"`
}

// TargetKind is the entity type a maintenance operation addresses.
type TargetKind string

const (
	TargetTransaction  TargetKind = "transaction"
	TargetNode         TargetKind = "node"
	TargetAcl          TargetKind = "acl"
	TargetAclChangeSet TargetKind = "aclchangeset"
)

// ParseTargetKind accepts the names used by the admin routes and CLI.
func ParseTargetKind(s string) (TargetKind, bool) {
	switch k := TargetKind(s); k {
	case TargetTransaction, TargetNode, TargetAcl, TargetAclChangeSet:
		return k, true
	case "tx", "txn":
		return TargetTransaction, true
	case "acltx":
		return TargetAclChangeSet, true
	}
	return "", false
}

// Target addresses one entity.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

// Mode distinguishes the reindex flavours of a maintenance operation.
type Mode string

const (
	// ModeIndex writes the entity, keeping any stored state it does not replace.
	ModeIndex Mode = "index"
	// ModeReindex replaces every document derived from the entity.
	ModeReindex Mode = "reindex"
)

// MaintenanceResult reports an out-of-band operation.
type MaintenanceResult struct {
	Op         string  `json:"op"`
	Target     *Target `json:"target,omitempty"`
	Status     string  `json:"status"`
	Outcome    Outcome `json:"outcome"`
	Generation int64   `json:"generation,omitempty"`
	Message    string  `json:"message,omitempty"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusDryRun = "dry_run"
)

// RetryResult reports a retry of every error node.
type RetryResult struct {
	Attempted int     `json:"attempted"`
	Fixed     []int64 `json:"fixed"`
	Failing   []int64 `json:"failing"`
}

// PurgeOptions guards destructive purges.
type PurgeOptions struct {
	// DryRun plans without deleting.
	DryRun bool
	// Confirmed must be set for ApplyPurge to delete anything.
	Confirmed bool
}

// PurgePlan lists the documents a purge would remove.
type PurgePlan struct {
	Target Target   `json:"target"`
	Keys   []string `json:"keys"`
	// NodeIDs are nodes whose cached content text is dropped too.
	NodeIDs []int64 `json:"node_ids,omitempty"`
}
