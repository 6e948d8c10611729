package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeKind enumerates the types of nodes in the design graph.
type NodeKind int

const (
	NodeStock  NodeKind = iota // rectangular raw stock
	NodeDrill                  // cylindrical hole
	NodePocket                 // rectangular pocket
)

func (k NodeKind) String() string {
	switch k {
	case NodeStock:
		return "stock"
	case NodeDrill:
		return "drill"
	case NodePocket:
		return "pocket"
	default:
		return "unknown"
	}
}

// NodeID is a content-addressed identifier derived from the node's path in
// the script (e.g. "stock/drill/0").
type NodeID [32]byte

// NewNodeID hashes path into a NodeID.
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether the id is unset.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 hex characters, for messages.
func (id NodeID) Short() string {
	return id.String()[:8]
}

// MarshalText encodes the id as hex so it can key JSON maps.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex id.
func (id *NodeID) UnmarshalText(b []byte) error {
	if len(b) != hex.EncodedLen(len(id)) {
		return fmt.Errorf("node id: want %d hex chars, got %d", hex.EncodedLen(len(id)), len(b))
	}
	_, err := hex.Decode(id[:], b)
	return err
}

// SourceRef points back to the script form that created a node.
type SourceRef struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Node is the fundamental element of the design graph.
type Node struct {
	ID       NodeID    `json:"id"`
	Kind     NodeKind  `json:"kind"`
	Name     string    `json:"name,omitempty"`
	Source   SourceRef `json:"source"`
	Children []NodeID  `json:"children,omitempty"`
	Data     NodeData  `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
