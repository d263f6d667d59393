// Package types defines the code knowledge graph data model shared by the
// storage adapter, search, and protocol surfaces: graph nodes with closed
// label sets, confidence-scored relationships, and search result shapes.
package types
