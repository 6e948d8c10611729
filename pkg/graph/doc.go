// Package graph defines the design graph for machined parts.
// A graph holds one stock block and the drill and pocket operations cut
// into its faces. It is produced by part-script evaluation and never
// mutated afterwards; each evaluation produces a new graph.
package graph
