package shard

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Alfresco/SearchServices-sub009/core/repo"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Method names a shard assignment policy.
type Method string

const (
	MethodMod        Method = "MOD"
	MethodDBIDRange  Method = "DB_ID_RANGE"
	MethodDate       Method = "DATE"
	MethodProperty   Method = "PROPERTY"
	MethodExplicitID Method = "EXPLICIT_ID"
)

// Policy decides which shard instance owns a node. ACLs are never routed.
type Policy interface {
	Method() Method
	// NeedsMetadata reports whether Owns reads node metadata.
	NeedsMetadata() bool
	// Owns reports whether instance owns node. md may be nil.
	Owns(instance int, node repo.Node, md *repo.NodeMetadata) bool
}

// New builds the policy named by cfg.Method. Unknown methods and unusable
// settings fall back to MOD with a warning.
func New(cfg Config, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	mod := modPolicy{count: cfg.Count}

	switch Method(strings.ToUpper(strings.TrimSpace(cfg.Method))) {
	case MethodMod, "":
		return mod
	case MethodDBIDRange:
		p, err := NewRangePolicy(cfg)
		if err != nil {
			log.Warn("Invalid shard range, falling back to MOD", zap.String("range", cfg.Range), zap.Error(err))
			return mod
		}
		return p
	case MethodDate:
		grouping := cfg.DateGrouping
		if grouping < 1 {
			grouping = 1
		}
		return datePolicy{mod: mod, property: cfg.DateProperty, grouping: grouping}
	case MethodProperty:
		p := propertyPolicy{mod: mod, property: cfg.Property}
		if cfg.Regex != "" {
			re, err := regexp.Compile(cfg.Regex)
			if err != nil {
				log.Warn("Invalid shard regex, hashing whole property value", zap.String("regex", cfg.Regex), zap.Error(err))
			} else {
				p.re = re
			}
		}
		return p
	case MethodExplicitID:
		return explicitPolicy{count: cfg.Count}
	default:
		log.Warn("Unknown shard method, falling back to MOD", zap.String("method", cfg.Method))
		return mod
	}
}

// Stable returns a view of p that does not change for the rest of a cycle.
func Stable(p Policy) Policy {
	if s, ok := p.(interface{ Snapshot() Policy }); ok {
		return s.Snapshot()
	}
	return p
}

// routingValue is the node's routing hint, or the first value of property in md.
func routingValue(node repo.Node, md *repo.NodeMetadata, property string) (string, bool) {
	if node.ShardPropertyValue != nil {
		return *node.ShardPropertyValue, true
	}
	if md == nil || property == "" {
		return "", false
	}
	v, ok := md.Properties[property]
	if !ok {
		return "", false
	}
	s := v.First()
	return s, s != ""
}

type modPolicy struct {
	count int
}

func (modPolicy) Method() Method      { return MethodMod }
func (modPolicy) NeedsMetadata() bool { return false }

func (p modPolicy) Owns(instance int, node repo.Node, _ *repo.NodeMetadata) bool {
	if p.count <= 1 {
		return true
	}
	return int(node.ID%int64(p.count)) == instance
}

type datePolicy struct {
	mod      modPolicy
	property string
	grouping int
}

func (datePolicy) Method() Method      { return MethodDate }
func (datePolicy) NeedsMetadata() bool { return true }

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func (p datePolicy) Owns(instance int, node repo.Node, md *repo.NodeMetadata) bool {
	if p.mod.count <= 1 {
		return true
	}
	v, ok := routingValue(node, md, p.property)
	if !ok {
		return p.mod.Owns(instance, node, md)
	}
	t, ok := parseDate(v)
	if !ok {
		return p.mod.Owns(instance, node, md)
	}
	bucket := (t.Year()*12 + int(t.Month()) - 1) / p.grouping
	return bucket%p.mod.count == instance
}

type propertyPolicy struct {
	mod      modPolicy
	property string
	re       *regexp.Regexp
}

func (propertyPolicy) Method() Method      { return MethodProperty }
func (propertyPolicy) NeedsMetadata() bool { return true }

func (p propertyPolicy) Owns(instance int, node repo.Node, md *repo.NodeMetadata) bool {
	if p.mod.count <= 1 {
		return true
	}
	v, ok := routingValue(node, md, p.property)
	if !ok {
		return p.mod.Owns(instance, node, md)
	}
	if p.re != nil {
		m := p.re.FindStringSubmatch(v)
		if len(m) < 2 || m[1] == "" {
			return p.mod.Owns(instance, node, md)
		}
		v = m[1]
	}
	return int(xxhash.Sum64String(v)%uint64(p.mod.count)) == instance
}

type explicitPolicy struct {
	count int
}

func (explicitPolicy) Method() Method      { return MethodExplicitID }
func (explicitPolicy) NeedsMetadata() bool { return false }

// Owns is true only for the instance named by the node's hint. A missing or
// out-of-range hint leaves the node unowned.
func (p explicitPolicy) Owns(instance int, node repo.Node, _ *repo.NodeMetadata) bool {
	if node.ShardPropertyValue == nil {
		return false
	}
	id, err := strconv.Atoi(strings.TrimSpace(*node.ShardPropertyValue))
	if err != nil || id < 0 || id >= p.count {
		return false
	}
	return id == instance
}
