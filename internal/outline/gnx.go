package outline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// HiddenRootGnx is the gnx of every outline's invisible root vnode.
const HiddenRootGnx = "hidden-root-vnode-gnx"

// gnxTimeLayout is the timestamp component of a gnx (YYYYmmddHHMMSS).
const gnxTimeLayout = "20060102150405"

// GnxParts are the components of a parsed gnx.
type GnxParts struct {
	Owner      string
	Timestamp  string
	Counter    int
	HasCounter bool
}

// NodeIndices allocates gnxs and keeps the gnx -> vnode registry of one
// document. It is not safe for concurrent use.
type NodeIndices struct {
	defaultID string
	ownerID   string
	lastTime  string
	lastIndex int
	clock     func() time.Time
	registry  map[string]*VNode
	log       *slog.Logger
}

// NewNodeIndices returns an allocator issuing gnxs for ownerID.
// A nil clock means time.Now.
func NewNodeIndices(ownerID string, clock func() time.Time, log *slog.Logger) *NodeIndices {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if ownerID == "" {
		ownerID = DefaultOwnerID
	}
	return &NodeIndices{
		defaultID: ownerID,
		ownerID:   ownerID,
		clock:     clock,
		registry:  make(map[string]*VNode),
		log:       log,
	}
}

// DefaultOwnerID is used when no owner id is configured.
const DefaultOwnerID = "leo"

// OwnerID returns the id written into newly issued gnxs.
func (ni *NodeIndices) OwnerID() string { return ni.ownerID }

func (ni *NodeIndices) stamp() string {
	return ni.clock().Format(gnxTimeLayout)
}

// NewIndex issues a fresh gnx for v and registers it. A collision with a
// different vnode is logged and the next counter is tried.
func (ni *NodeIndices) NewIndex(v *VNode) string {
	for {
		t := ni.stamp()
		if t == ni.lastTime {
			ni.lastIndex++
		} else {
			ni.lastTime = t
			ni.lastIndex = 1
		}
		gnx := fmt.Sprintf("%s.%s.%d", ni.ownerID, ni.lastTime, ni.lastIndex)
		if old, ok := ni.registry[gnx]; ok && old != v {
			ni.log.Warn("gnx collision", "gnx", gnx)
			continue
		}
		ni.registry[gnx] = v
		return gnx
	}
}

// Register records v under gnx. It reports false when gnx already names a
// different vnode; the existing mapping is kept.
func (ni *NodeIndices) Register(gnx string, v *VNode) bool {
	if gnx == HiddenRootGnx {
		return true
	}
	if old, ok := ni.registry[gnx]; ok && old != v {
		return false
	}
	ni.registry[gnx] = v
	return true
}

// Lookup returns the vnode registered under gnx, or nil.
func (ni *NodeIndices) Lookup(gnx string) *VNode {
	return ni.registry[gnx]
}

func (ni *NodeIndices) forget(gnx string, v *VNode) {
	if ni.registry[gnx] == v {
		delete(ni.registry, gnx)
	}
}

// reindex drops entries naming a vnode that no longer holds the gnx, then
// maps every gnx in held to its holder.
func (ni *NodeIndices) reindex(held map[string]*VNode) {
	for gnx, v := range ni.registry {
		if v.gnx != gnx {
			ni.forget(gnx, v)
		}
	}
	for gnx, v := range held {
		ni.registry[gnx] = v
	}
}

// ParseGnx splits s into owner, timestamp and counter. A missing owner
// falls back to the default owner id. Unparseable input returns
// ErrMalformedGnx; callers treat it as an unknown remote gnx.
func (ni *NodeIndices) ParseGnx(s string) (GnxParts, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GnxParts{}, fmt.Errorf("%w: empty", ErrMalformedGnx)
	}
	fields := strings.SplitN(s, ".", 3)
	parts := GnxParts{Owner: fields[0]}
	if parts.Owner == "" {
		parts.Owner = ni.defaultID
	}
	if len(fields) > 1 {
		parts.Timestamp = fields[1]
	}
	if len(fields) > 2 {
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return parts, fmt.Errorf("%w: counter %q", ErrMalformedGnx, fields[2])
		}
		parts.Counter = n
		parts.HasCounter = true
	}
	return parts, nil
}

// RecomputeLastIndex raises the counter above every gnx in o issued for
// the current timestamp, so the next NewIndex cannot reuse one.
func (ni *NodeIndices) RecomputeLastIndex(o *Outline) {
	t := ni.stamp()
	if t != ni.lastTime {
		ni.lastTime = t
		ni.lastIndex = 0
	}
	for v := range o.AllUniqueNodes() {
		parts, err := ni.ParseGnx(v.gnx)
		if err != nil || !parts.HasCounter {
			continue
		}
		if parts.Owner == ni.ownerID && parts.Timestamp == t && parts.Counter > ni.lastIndex {
			ni.lastIndex = parts.Counter
		}
	}
}
