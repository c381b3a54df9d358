// Package graph tracks dependency edges between constructs and turns them
// into orderings. It holds the per-run edge registry, detects cycles, and
// produces the topological order the synthesizer generates documents in.
// A standalone document-graph view over finished manifests is also provided
// for external tooling.
package graph
