// Package unlock implements the dependency-propagation graph that turns
// received facts into unlocked chapters.
//
// Each node starts with an outstanding prerequisite set. A reverse index maps
// every fact to the nodes still waiting on it, so receiving a fact touches
// only its dependents. Nodes move locked → unlocked exactly once and never
// revert.
package unlock

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tcslink/internal/progress"
)

// NodeID names a node, e.g. a chapter's short name.
type NodeID string

// State is a node's lock state.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Graph tracks outstanding prerequisites per node.
//
// Thread-safety: not safe for concurrent use. The poll loop owns it.
type Graph struct {
	order       []NodeID
	outstanding map[NodeID]map[progress.Fact]struct{}
	unlocked    map[NodeID]bool
	reverse     map[progress.Fact][]NodeID

	logger *slog.Logger
	strict bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for inconsistency reports.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// Strict makes reverse-index inconsistencies panic instead of being logged
// and skipped. Tests and development builds enable it.
func Strict() Option {
	return func(g *Graph) { g.strict = true }
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		outstanding: make(map[NodeID]map[progress.Fact]struct{}),
		unlocked:    make(map[NodeID]bool),
		reverse:     make(map[progress.Fact][]NodeID),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds a node. A node with no prerequisites is unlocked at once.
// Registering the same node twice is an error.
func (g *Graph) Register(node NodeID, prerequisites []progress.Fact) error {
	if _, dup := g.outstanding[node]; dup {
		return fmt.Errorf("node %q already registered", node)
	}
	set := make(map[progress.Fact]struct{}, len(prerequisites))
	for _, f := range prerequisites {
		if _, seen := set[f]; seen {
			continue
		}
		set[f] = struct{}{}
		g.reverse[f] = append(g.reverse[f], node)
	}
	g.order = append(g.order, node)
	g.outstanding[node] = set
	if len(set) == 0 {
		g.unlocked[node] = true
	}
	return nil
}

// OnFactReceived removes f from every dependent node's outstanding set and
// returns the nodes that became unlocked, in registration order. Facts no
// node depends on, and facts already processed, are no-ops.
func (g *Graph) OnFactReceived(f progress.Fact) []NodeID {
	dependents, ok := g.reverse[f]
	if !ok {
		return nil
	}
	delete(g.reverse, f)

	var newly []NodeID
	for _, node := range dependents {
		if g.unlocked[node] {
			continue
		}
		set := g.outstanding[node]
		if _, waiting := set[f]; !waiting {
			g.inconsistent(node, f)
			continue
		}
		delete(set, f)
		if len(set) == 0 {
			g.unlocked[node] = true
			newly = append(newly, node)
		}
	}
	return newly
}

func (g *Graph) inconsistent(node NodeID, f progress.Fact) {
	if g.strict {
		panic(fmt.Sprintf("unlock: fact %d indexed for node %q but not outstanding", f, node))
	}
	g.logger.Error("reverse index inconsistent, skipping propagation",
		"node", string(node),
		"fact", int64(f))
}

// State returns the node's state. Unknown nodes are locked.
func (g *Graph) State(node NodeID) State {
	if g.unlocked[node] {
		return Unlocked
	}
	return Locked
}

// Unlocked returns unlocked nodes in registration order.
func (g *Graph) Unlocked() []NodeID {
	var out []NodeID
	for _, n := range g.order {
		if g.unlocked[n] {
			out = append(out, n)
		}
	}
	return out
}

// Outstanding returns the facts node still waits on, ascending.
func (g *Graph) Outstanding(node NodeID) []progress.Fact {
	set := g.outstanding[node]
	out := make([]progress.Fact, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
